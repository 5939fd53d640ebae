package service

import (
	"errors"
	"strings"

	"github.com/tangerine/internal/db"
	"gorm.io/gorm"
)

// ErrCommentNotFound indicates the comment does not exist for the tenant.
var ErrCommentNotFound = errors.New("comment not found")

const (
	manageCommentsPerPage = 25
	commentOrder          = "comments.updated_at asc, comments.id asc"
)

// CommentNode is an approved comment together with its approved replies.
type CommentNode struct {
	Comment db.Comment    `json:"comment"`
	Replies []CommentNode `json:"replies"`
}

// CommentFilter narrows the moderation listing.
type CommentFilter struct {
	CommentID *uint
	Query     string
	Page      int
}

// CommentListResult is one page of the moderation listing.
type CommentListResult struct {
	Comments   []db.Comment
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// CommentService serves the read side of comments: public threads, counts,
// recent activity and the moderation listing.
type CommentService struct {
	db *gorm.DB
}

// NewCommentService constructs a CommentService.
func NewCommentService(gdb *gorm.DB) *CommentService {
	return &CommentService{db: gdb}
}

// TopLevel returns the approved comments of a post that have no parent,
// oldest update first.
func (s *CommentService) TopLevel(tenant string, postID uint) ([]db.Comment, error) {
	scoped, err := s.scoped(tenant)
	if err != nil {
		return nil, err
	}
	var comments []db.Comment
	err = scoped.Where("post_id = ? AND parent_id IS NULL AND approved = ?", postID, true).
		Order(commentOrder).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// Replies returns the approved direct children of a comment.
func (s *CommentService) Replies(tenant string, commentID uint) ([]db.Comment, error) {
	scoped, err := s.scoped(tenant)
	if err != nil {
		return nil, err
	}
	var comments []db.Comment
	err = scoped.Where("parent_id = ? AND approved = ?", commentID, true).
		Order(commentOrder).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// Count returns the number of approved comments on a post, replies included.
func (s *CommentService) Count(tenant string, postID uint) (int64, error) {
	scoped, err := s.scoped(tenant)
	if err != nil {
		return 0, err
	}
	var count int64
	err = scoped.Model(&db.Comment{}).
		Where("post_id = ? AND approved = ?", postID, true).
		Count(&count).Error
	return count, err
}

// Thread loads every approved comment of the post in one query and nests
// replies under their parents. Replies whose parent is not approved are not
// reachable and therefore omitted.
func (s *CommentService) Thread(tenant string, postID uint) ([]CommentNode, error) {
	scoped, err := s.scoped(tenant)
	if err != nil {
		return nil, err
	}
	var comments []db.Comment
	err = scoped.Where("post_id = ? AND approved = ?", postID, true).
		Order(commentOrder).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	children := make(map[uint][]db.Comment)
	var roots []db.Comment
	for _, c := range comments {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	var build func(list []db.Comment) []CommentNode
	build = func(list []db.Comment) []CommentNode {
		nodes := make([]CommentNode, 0, len(list))
		for _, c := range list {
			nodes = append(nodes, CommentNode{Comment: c, Replies: build(children[c.ID])})
		}
		return nodes
	}
	return build(roots), nil
}

// scoped 限定到已配置租户的评论。
func (s *CommentService) scoped(tenant string) (*gorm.DB, error) {
	blog, err := loadBlog(s.db, tenant)
	if err != nil {
		return nil, err
	}
	return s.db.Where("tenant = ?", blog.Slug), nil
}

// Recent returns the newest approved comments across visible posts of the
// tenant, with their post preloaded.
func (s *CommentService) Recent(tenant string, limit int) ([]db.Comment, error) {
	blog, err := loadBlog(s.db, tenant)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	var comments []db.Comment
	err = s.db.Preload("Post").
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("comments.tenant = ? AND comments.approved = ? AND posts.published = ? AND posts.trashed = ?",
			blog.Slug, true, true, false).
		Order("comments.created_at desc, comments.id desc").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// Get loads one comment of the tenant with its post.
func (s *CommentService) Get(tenant string, id uint) (*db.Comment, error) {
	return loadComment(s.db, tenant, id)
}

// Manage lists every comment of the tenant, newest first, 25 per page.
// Query matches body, name or email case-insensitively.
func (s *CommentService) Manage(tenant string, filter CommentFilter) (*CommentListResult, error) {
	blog, err := loadBlog(s.db, tenant)
	if err != nil {
		return nil, err
	}

	result := &CommentListResult{Page: clampPage(filter.Page), PerPage: manageCommentsPerPage}

	scope := func(tx *gorm.DB) *gorm.DB {
		tx = tx.Where("comments.tenant = ?", blog.Slug)
		if filter.CommentID != nil {
			tx = tx.Where("comments.id = ?", *filter.CommentID)
		}
		if term := strings.ToLower(strings.TrimSpace(filter.Query)); term != "" {
			pattern := "%" + escapeLike(term) + "%"
			tx = tx.Where("(LOWER(comments.body) LIKE ? ESCAPE '\\' OR LOWER(comments.name) LIKE ? ESCAPE '\\' OR LOWER(comments.email) LIKE ? ESCAPE '\\')",
				pattern, pattern, pattern)
		}
		return tx
	}

	if err := s.db.Model(&db.Comment{}).Scopes(scope).Count(&result.Total).Error; err != nil {
		return nil, err
	}

	var comments []db.Comment
	err = s.db.Model(&db.Comment{}).Scopes(scope).
		Preload("Post").
		Order("comments.created_at desc, comments.id desc").
		Offset((result.Page - 1) * result.PerPage).
		Limit(result.PerPage).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	result.Comments = comments

	if result.Total == 0 {
		result.TotalPages = 1
	} else {
		result.TotalPages = int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	}
	return result, nil
}

func loadComment(tx *gorm.DB, tenant string, id uint) (*db.Comment, error) {
	var comment db.Comment
	err := tx.Preload("Post").
		Where("tenant = ?", normalizeTenant(tenant)).
		First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}
