package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tangerine/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrCategoryNotFound 表示分类不存在
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryExists 表示同一租户内的分类 slug 重复
	ErrCategoryExists = errors.New("category already exists")
)

// CategoryService 提供分类维护与按分类的文章查询。
type CategoryService struct {
	db    *gorm.DB
	posts *PostService
}

// NewCategoryService 构造 CategoryService，可见性判断复用 posts。
func NewCategoryService(gdb *gorm.DB, posts *PostService) *CategoryService {
	return &CategoryService{db: gdb, posts: posts}
}

// Create 新建分类，slug 为空时由标题生成。
func (s *CategoryService) Create(tenant, title, slug string) (*db.Category, error) {
	blog, err := loadBlog(s.db, tenant)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, newValidationError("title", "required")
	}
	slug = slugify(slug)
	if slug == "" {
		slug = slugify(title)
	}
	if slug == "" {
		return nil, newValidationError("slug", "required")
	}

	category := db.Category{Tenant: blog.Slug, Title: title, Slug: slug}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Category{}).Where("tenant = ? AND slug = ?", blog.Slug, slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrCategoryExists
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		if errors.Is(err, ErrCategoryExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

// List 返回租户的全部分类（含无文章的），按标题排序。
func (s *CategoryService) List(tenant string) ([]db.Category, error) {
	var categories []db.Category
	if err := s.db.Where("tenant = ?", normalizeTenant(tenant)).Order("title asc").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Visible 只返回至少含有一篇可见文章的分类。
func (s *CategoryService) Visible(tenant string) ([]db.Category, error) {
	set, err := s.posts.Visible(tenant)
	if err != nil {
		return nil, err
	}
	sub, err := set.Filter(func(tx *gorm.DB) *gorm.DB {
		return tx.Joins("JOIN post_categories ON post_categories.post_id = posts.id").
			Select("post_categories.category_id")
	}).query()
	if err != nil {
		return nil, err
	}

	var categories []db.Category
	err = s.db.Where("tenant = ? AND id IN (?)", normalizeTenant(tenant), sub).
		Order("title asc").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// Posts 返回分类本身及其下可见文章的惰性集合。
func (s *CategoryService) Posts(tenant, slug string) (*db.Category, *PostSet, error) {
	set, err := s.posts.Visible(tenant)
	if err != nil {
		return nil, nil, err
	}

	var category db.Category
	if err := s.db.Where("tenant = ? AND slug = ?", normalizeTenant(tenant), slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCategoryNotFound
		}
		return nil, nil, err
	}

	categoryID := category.ID
	filtered := set.Filter(func(tx *gorm.DB) *gorm.DB {
		return tx.Joins("JOIN post_categories ON post_categories.post_id = posts.id").
			Where("post_categories.category_id = ?", categoryID)
	})
	return &category, filtered, nil
}
