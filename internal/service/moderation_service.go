package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tangerine/internal/db"
	"github.com/tangerine/internal/logger"
	"gorm.io/gorm"
)

// ModerationService 提供评论审核操作。每个状态变更都在单个事务内完成，
// 审核状态与邮箱白名单不会出现部分更新。
type ModerationService struct {
	db          *gorm.DB
	spam        SpamChecker
	spamTimeout time.Duration
}

// NewModerationService 构造 ModerationService，spam 为 nil 时不向反垃圾服务反馈。
func NewModerationService(gdb *gorm.DB, spam SpamChecker) *ModerationService {
	if spam == nil {
		spam = noSpamChecker{}
	}
	return &ModerationService{db: gdb, spam: spam, spamTimeout: defaultSpamTimeout}
}

// SetSpamTimeout 设置反馈请求的超时。
func (s *ModerationService) SetSpamTimeout(d time.Duration) {
	if d > 0 {
		s.spamTimeout = d
	}
}

// ToggleApproval 翻转审核状态。开启自动通过时同步维护白名单：
// 撤销通过会删除该邮箱的全部白名单记录，批准会在缺失时补一条。
func (s *ModerationService) ToggleApproval(ctx context.Context, tenant string, commentID uint) (*db.Comment, error) {
	var result *db.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blog, err := loadBlog(tx, tenant)
		if err != nil {
			return err
		}
		comment, err := loadComment(tx, blog.Slug, commentID)
		if err != nil {
			return err
		}
		if err := toggleApprovalTx(tx, blog, comment); err != nil {
			return err
		}
		result = comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("comment_approval_toggled",
		"tenant", result.Tenant,
		"comment_id", result.ID,
		"approved", result.Approved,
	)
	return result, nil
}

// ToggleSpam 翻转垃圾标记，并把新的分类反馈给反垃圾服务，随后翻转审核状态。
// 反馈失败只记录日志；数据库中的两个字段在同一事务内更新。
func (s *ModerationService) ToggleSpam(ctx context.Context, tenant string, commentID uint) (*db.Comment, error) {
	blog, err := loadBlog(s.db, tenant)
	if err != nil {
		return nil, err
	}
	current, err := loadComment(s.db, blog.Slug, commentID)
	if err != nil {
		return nil, err
	}

	s.submitClassification(ctx, blog, current, !current.Spam)

	var result *db.Comment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comment, err := loadComment(tx, blog.Slug, commentID)
		if err != nil {
			return err
		}
		comment.Spam = !comment.Spam
		if err := tx.Model(comment).Update("spam", comment.Spam).Error; err != nil {
			return fmt.Errorf("update spam flag: %w", err)
		}
		if err := toggleApprovalTx(tx, blog, comment); err != nil {
			return err
		}
		result = comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("comment_spam_toggled",
		"tenant", result.Tenant,
		"comment_id", result.ID,
		"spam", result.Spam,
		"approved", result.Approved,
	)
	return result, nil
}

// Delete 永久删除评论及其全部回复。
func (s *ModerationService) Delete(ctx context.Context, tenant string, commentID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comment, err := loadComment(tx, tenant, commentID)
		if err != nil {
			return err
		}

		ids := []uint{comment.ID}
		frontier := []uint{comment.ID}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&db.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}

		if err := tx.Unscoped().Where("id IN ?", ids).Delete(&db.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		logger.Infow("comment_deleted", "tenant", comment.Tenant, "comment_id", comment.ID, "removed", len(ids))
		return nil
	})
}

func (s *ModerationService) submitClassification(ctx context.Context, blog *db.Blog, comment *db.Comment, spam bool) {
	submitCtx, cancel := context.WithTimeout(ctx, s.spamTimeout)
	defer cancel()

	submitted, err := s.spam.Submit(submitCtx, blog, signalFor(comment), spam)
	if err != nil {
		logger.Warnw("comment_spam_feedback_failed",
			"tenant", blog.Slug,
			"comment_id", comment.ID,
			"spam", spam,
			"error", err,
		)
		return
	}
	if submitted {
		logger.Debugw("comment_spam_feedback_sent", "tenant", blog.Slug, "comment_id", comment.ID, "spam", spam)
	}
}

func toggleApprovalTx(tx *gorm.DB, blog *db.Blog, comment *db.Comment) error {
	email := strings.TrimSpace(comment.Email)
	if blog.AutoApprovePreviousCommentors && email != "" {
		if comment.Approved {
			if err := tx.Where("tenant = ? AND email = ?", blog.Slug, comment.Email).
				Delete(&db.ApprovedCommentor{}).Error; err != nil {
				return fmt.Errorf("remove approved commentor: %w", err)
			}
		} else {
			known, err := isApprovedCommentor(tx, blog.Slug, comment.Email)
			if err != nil {
				return err
			}
			if !known {
				if err := tx.Create(&db.ApprovedCommentor{Tenant: blog.Slug, Email: comment.Email}).Error; err != nil {
					return fmt.Errorf("add approved commentor: %w", err)
				}
			}
		}
	}

	comment.Approved = !comment.Approved
	if err := tx.Model(comment).Update("approved", comment.Approved).Error; err != nil {
		return fmt.Errorf("update approval: %w", err)
	}
	return nil
}
