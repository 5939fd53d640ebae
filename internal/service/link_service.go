package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tangerine/internal/db"
	"gorm.io/gorm"
)

// ErrLinkGroupNotFound 表示链接组不存在
var ErrLinkGroupNotFound = errors.New("related link group not found")

// RelatedLinkInput 是链接组中的一条链接。
type RelatedLinkInput struct {
	SiteTitle string
	SiteURL   string
	LinkOrder uint
}

// RelatedLinkService 维护站点侧栏等处使用的外部链接组。
type RelatedLinkService struct {
	db *gorm.DB
}

// NewRelatedLinkService 构造 RelatedLinkService。
func NewRelatedLinkService(gdb *gorm.DB) *RelatedLinkService {
	return &RelatedLinkService{db: gdb}
}

// Get 返回链接组，链接按 LinkOrder 升序。
func (s *RelatedLinkService) Get(tenant, slug string) (*db.RelatedLinkGroup, error) {
	blog, err := loadBlog(s.db, tenant)
	if err != nil {
		return nil, err
	}
	var group db.RelatedLinkGroup
	err = s.db.Preload("Links", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("link_order asc, id asc")
	}).Where("tenant = ? AND slug = ?", blog.Slug, strings.TrimSpace(slug)).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

// Save 创建或整体替换链接组的内容。
func (s *RelatedLinkService) Save(tenant, slug string, links []RelatedLinkInput) (*db.RelatedLinkGroup, error) {
	blog, err := loadBlog(s.db, tenant)
	if err != nil {
		return nil, err
	}
	slug = slugify(slug)
	if slug == "" {
		return nil, newValidationError("slug", "required")
	}
	for i, link := range links {
		if strings.TrimSpace(link.SiteTitle) == "" {
			return nil, newValidationError(fmt.Sprintf("links[%d].site_title", i), "required")
		}
		parsed, err := url.Parse(strings.TrimSpace(link.SiteURL))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, newValidationError(fmt.Sprintf("links[%d].site_url", i), "invalid url")
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var group db.RelatedLinkGroup
		err := tx.Where("tenant = ? AND slug = ?", blog.Slug, slug).First(&group).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			group = db.RelatedLinkGroup{Tenant: blog.Slug, Slug: slug}
			if err := tx.Create(&group).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		if err := tx.Unscoped().Where("group_id = ?", group.ID).Delete(&db.RelatedLink{}).Error; err != nil {
			return err
		}
		for _, link := range links {
			record := db.RelatedLink{
				GroupID:   group.ID,
				SiteTitle: strings.TrimSpace(link.SiteTitle),
				SiteURL:   strings.TrimSpace(link.SiteURL),
				LinkOrder: link.LinkOrder,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save related links: %w", err)
	}
	return s.Get(blog.Slug, slug)
}
