package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tangerine/internal/db"
	"github.com/tangerine/internal/logger"
	"gorm.io/gorm"
)

var (
	// ErrCommentsDisabled indicates comments are switched off globally or on the post.
	ErrCommentsDisabled = errors.New("comments are disabled")
	// ErrParentMismatch indicates the reply target belongs to another post.
	ErrParentMismatch = errors.New("parent comment belongs to a different post")
)

const (
	defaultSpamTimeout   = 5 * time.Second
	defaultNotifyTimeout = 10 * time.Second
)

// Identity describes who is submitting. Authenticated visitors get their
// display name and email from the account, never from the form.
type Identity struct {
	Authenticated bool
	UserID        uint
	DisplayName   string
	Email         string
}

// RequestMeta carries transport details captured with the comment.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// CommentSubmission is the untrusted form input.
type CommentSubmission struct {
	Name     string `json:"name" form:"name" validate:"max=100"`
	Email    string `json:"email" form:"email" validate:"omitempty,email"`
	Website  string `json:"website" form:"website" validate:"omitempty,url"`
	Body     string `json:"body" form:"body" validate:"required"`
	ParentID *uint  `json:"parent_id" form:"-"`
}

// SubmitRequest bundles everything one submission needs.
type SubmitRequest struct {
	Tenant     string
	PostID     uint
	Submission CommentSubmission
	Identity   Identity
	Meta       RequestMeta
}

// CommentPipeline turns a submission into a stored comment: validation,
// parent binding, identity override, spam check, sanitizing, approval and
// notification, in that order.
type CommentPipeline struct {
	db            *gorm.DB
	spam          SpamChecker
	notifier      Notifier
	sanitizer     *CommentSanitizer
	spamTimeout   time.Duration
	notifyTimeout time.Duration
}

// NewCommentPipeline constructs a CommentPipeline. Nil collaborators are
// replaced by no-op implementations.
func NewCommentPipeline(gdb *gorm.DB, spam SpamChecker, notifier Notifier) *CommentPipeline {
	if spam == nil {
		spam = noSpamChecker{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CommentPipeline{
		db:            gdb,
		spam:          spam,
		notifier:      notifier,
		sanitizer:     NewCommentSanitizer(),
		spamTimeout:   defaultSpamTimeout,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// SetTimeouts bounds the spam check and the notification; zero keeps the current value.
func (p *CommentPipeline) SetTimeouts(spam, notify time.Duration) {
	if spam > 0 {
		p.spamTimeout = spam
	}
	if notify > 0 {
		p.notifyTimeout = notify
	}
}

// Submit validates and stores one comment. Nothing is persisted when
// validation or binding fails. Spam service and notifier failures are logged
// and never fail the submission.
func (p *CommentPipeline) Submit(ctx context.Context, req SubmitRequest) (*db.Comment, error) {
	in := req.Submission
	if err := validateSubmission(in); err != nil {
		return nil, err
	}

	blog, err := loadBlog(p.db, req.Tenant)
	if err != nil {
		return nil, err
	}

	var post db.Post
	err = p.db.Where("id = ? AND tenant = ? AND published = ? AND trashed = ?", req.PostID, blog.Slug, true, false).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if !blog.EnableCommentsGlobal || !post.EnableComments {
		return nil, ErrCommentsDisabled
	}

	comment := db.Comment{
		Tenant:    blog.Slug,
		PostID:    post.ID,
		Name:      in.Name,
		Email:     in.Email,
		Website:   in.Website,
		Body:      in.Body,
		IPAddress: normalizeIP(req.Meta.IP),
		UserAgent: req.Meta.UserAgent,
	}

	if in.ParentID != nil {
		var parent db.Comment
		if err := p.db.Where("id = ? AND tenant = ?", *in.ParentID, blog.Slug).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCommentNotFound
			}
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, ErrParentMismatch
		}
		parentID := parent.ID
		comment.ParentID = &parentID
	}

	if req.Identity.Authenticated {
		comment.Name = req.Identity.DisplayName
		comment.Email = req.Identity.Email
		if req.Identity.UserID != 0 {
			userID := req.Identity.UserID
			comment.AuthorID = &userID
		}
	}

	comment.Spam = p.checkSpam(ctx, blog, &comment)
	comment.Body = p.sanitizer.Clean(comment.Body, blog.AllowedTagList())

	err = p.db.Transaction(func(tx *gorm.DB) error {
		approved := req.Identity.Authenticated
		if !approved && blog.AutoApprovePreviousCommentors {
			known, err := isApprovedCommentor(tx, blog.Slug, comment.Email)
			if err != nil {
				return err
			}
			approved = known
		}
		comment.Approved = approved
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, fmt.Errorf("store comment: %w", err)
	}

	p.notify(ctx, blog, &post, &comment)
	return &comment, nil
}

func (p *CommentPipeline) checkSpam(ctx context.Context, blog *db.Blog, comment *db.Comment) bool {
	checkCtx, cancel := context.WithTimeout(ctx, p.spamTimeout)
	defer cancel()

	spam, err := p.spam.Check(checkCtx, blog, signalFor(comment))
	if err != nil {
		logger.Warnw("comment_spam_check_failed",
			"tenant", blog.Slug,
			"post_id", comment.PostID,
			"error", err,
		)
		return false
	}
	return spam
}

func (p *CommentPipeline) notify(ctx context.Context, blog *db.Blog, post *db.Post, comment *db.Comment) {
	if strings.TrimSpace(blog.ModerationEmail) == "" {
		logger.Debugw("comment_notify_skipped", "tenant", blog.Slug, "reason", "no moderation email")
		return
	}

	permalink := ""
	if post.PType == db.PostTypePost {
		permalink = blog.SiteURL + EncodePermalink(post).Path()
	}
	msg := ModerationMessage(blog, post, comment, permalink)

	// 通知不应受请求取消影响，但仍需有上限
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.notifyTimeout)
	defer cancel()
	if err := p.notifier.Send(notifyCtx, msg); err != nil {
		logger.Warnw("comment_notify_failed",
			"tenant", blog.Slug,
			"comment_id", comment.ID,
			"error", err,
		)
	}
}

func validateSubmission(in CommentSubmission) error {
	err := validateStruct(in)
	var verr *ValidationError
	if err != nil && !errors.As(err, &verr) {
		return err
	}
	if strings.TrimSpace(in.Body) == "" {
		if verr == nil {
			verr = &ValidationError{Fields: map[string]string{}}
		}
		verr.Fields["body"] = "required"
	}
	if verr != nil {
		return verr
	}
	return nil
}

func isApprovedCommentor(tx *gorm.DB, tenant, email string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, nil
	}
	var count int64
	err := tx.Model(&db.ApprovedCommentor{}).
		Where("tenant = ? AND email = ?", tenant, email).
		Count(&count).Error
	return count > 0, err
}

func signalFor(comment *db.Comment) SpamSignal {
	return SpamSignal{
		IP:          comment.IPAddress,
		UserAgent:   comment.UserAgent,
		Author:      comment.Name,
		AuthorEmail: comment.Email,
		AuthorURL:   comment.Website,
		Content:     comment.Body,
	}
}

// normalizeIP keeps only parseable IPv4/IPv6 addresses.
func normalizeIP(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return ""
	}
	return ip.String()
}

type noSpamChecker struct{}

func (noSpamChecker) Check(context.Context, *db.Blog, SpamSignal) (bool, error) { return false, nil }

func (noSpamChecker) Submit(context.Context, *db.Blog, SpamSignal, bool) (bool, error) {
	return false, nil
}
