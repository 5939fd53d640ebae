package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tangerine/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrTenantNotConfigured 表示租户尚未创建站点配置。
	ErrTenantNotConfigured = errors.New("site not yet configured")
	// ErrConfigExists 表示租户已存在站点配置，不能再创建第二条。
	ErrConfigExists = errors.New("site config already exists for tenant")
)

const (
	defaultSiteTitle    = "Arbitrary Site Title"
	defaultPostsPerPage = 10
)

var commentSystems = map[string]struct{}{
	db.CommentSystemNative:   {},
	db.CommentSystemDisqus:   {},
	db.CommentSystemFacebook: {},
	db.CommentSystemNone:     {},
}

// BlogInput 用于创建或更新站点配置。指针字段为 nil 时沿用默认值或现有值。
type BlogInput struct {
	SiteTitle                     string
	Tagline                       string
	SiteURL                       string
	PostsPerPage                  int
	GoogleAnalyticsID             string
	EnableCommentsGlobal          *bool
	CommentSystem                 string
	AutoApprovePreviousCommentors *bool
	ShowFuture                    *bool
	FromEmail                     string
	ModerationEmail               string
	AkismetKey                    string
	TimeZone                      string
	AllowedTags                   []string
}

// BlogService 管理每个租户唯一的站点配置。
type BlogService struct {
	db *gorm.DB
}

// NewBlogService 构造 BlogService。
func NewBlogService(gdb *gorm.DB) *BlogService {
	return &BlogService{db: gdb}
}

// Get 返回租户配置，不存在时返回 ErrTenantNotConfigured。
func (s *BlogService) Get(tenant string) (*db.Blog, error) {
	return loadBlog(s.db, tenant)
}

// Create 为租户创建配置，已存在时返回 ErrConfigExists。
func (s *BlogService) Create(tenant string, input BlogInput) (*db.Blog, error) {
	slug := normalizeTenant(tenant)
	if slug == "" {
		return nil, newValidationError("tenant", "required")
	}

	blog := db.Blog{
		Slug:                          slug,
		SiteTitle:                     defaultSiteTitle,
		PostsPerPage:                  defaultPostsPerPage,
		EnableCommentsGlobal:          true,
		CommentSystem:                 db.CommentSystemNative,
		AutoApprovePreviousCommentors: true,
		TimeZone:                      "UTC",
	}
	if err := applyBlogInput(&blog, input); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Blog{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConfigExists
		}
		return insertBlog(tx, &blog)
	})
	if err != nil {
		if errors.Is(err, ErrConfigExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create site config: %w", err)
	}
	return &blog, nil
}

// insertBlog 写入配置行。并发创建时由 slug 唯一索引兜底，冲突同样报 ErrConfigExists。
func insertBlog(tx *gorm.DB, blog *db.Blog) error {
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(blog)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConfigExists
	}
	return nil
}

// Update 修改已有配置。
func (s *BlogService) Update(tenant string, input BlogInput) (*db.Blog, error) {
	var updated *db.Blog
	err := s.db.Transaction(func(tx *gorm.DB) error {
		blog, err := loadBlog(tx, tenant)
		if err != nil {
			return err
		}
		if err := applyBlogInput(blog, input); err != nil {
			return err
		}
		if err := tx.Save(blog).Error; err != nil {
			return fmt.Errorf("update site config: %w", err)
		}
		updated = blog
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyBlogInput(blog *db.Blog, input BlogInput) error {
	if title := strings.TrimSpace(input.SiteTitle); title != "" {
		blog.SiteTitle = title
	}
	if tagline := strings.TrimSpace(input.Tagline); tagline != "" {
		blog.Tagline = tagline
	}
	if siteURL := strings.TrimSpace(input.SiteURL); siteURL != "" {
		blog.SiteURL = strings.TrimRight(siteURL, "/")
	}
	if input.PostsPerPage < 0 {
		return newValidationError("posts_per_page", "must be positive")
	}
	if input.PostsPerPage > 0 {
		blog.PostsPerPage = input.PostsPerPage
	}
	if ga := strings.TrimSpace(input.GoogleAnalyticsID); ga != "" {
		blog.GoogleAnalyticsID = ga
	}
	if input.EnableCommentsGlobal != nil {
		blog.EnableCommentsGlobal = *input.EnableCommentsGlobal
	}
	if system := strings.ToLower(strings.TrimSpace(input.CommentSystem)); system != "" {
		if _, ok := commentSystems[system]; !ok {
			return newValidationError("comment_system", "unsupported comment system")
		}
		blog.CommentSystem = system
	}
	if input.AutoApprovePreviousCommentors != nil {
		blog.AutoApprovePreviousCommentors = *input.AutoApprovePreviousCommentors
	}
	if input.ShowFuture != nil {
		blog.ShowFuture = *input.ShowFuture
	}
	if from := strings.TrimSpace(input.FromEmail); from != "" {
		blog.FromEmail = from
	}
	if to := strings.TrimSpace(input.ModerationEmail); to != "" {
		blog.ModerationEmail = to
	}
	if key := strings.TrimSpace(input.AkismetKey); key != "" {
		blog.AkismetKey = key
	}
	if zone := strings.TrimSpace(input.TimeZone); zone != "" {
		if _, err := time.LoadLocation(zone); err != nil {
			return newValidationError("time_zone", "unknown time zone")
		}
		blog.TimeZone = zone
	}
	if len(input.AllowedTags) > 0 {
		tags := make([]string, 0, len(input.AllowedTags))
		for _, tag := range input.AllowedTags {
			if trimmed := strings.ToLower(strings.TrimSpace(tag)); trimmed != "" {
				tags = append(tags, trimmed)
			}
		}
		blog.AllowedTags = strings.Join(tags, ",")
	}
	return nil
}

// loadBlog 读取租户配置，tx 可以是事务内连接。
func loadBlog(tx *gorm.DB, tenant string) (*db.Blog, error) {
	slug := normalizeTenant(tenant)
	if slug == "" {
		return nil, ErrTenantNotConfigured
	}
	var blog db.Blog
	if err := tx.Where("slug = ?", slug).First(&blog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotConfigured
		}
		return nil, fmt.Errorf("load site config: %w", err)
	}
	return &blog, nil
}

func normalizeTenant(tenant string) string {
	return strings.ToLower(strings.TrimSpace(tenant))
}
