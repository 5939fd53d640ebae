package db

import "gorm.io/gorm"

// Category 定义了分类，slug 在租户内唯一。
type Category struct {
	gorm.Model
	Tenant string `gorm:"size:64;not null;uniqueIndex:idx_categories_tenant_slug,priority:1"`
	Title  string `gorm:"size:140;not null"`
	Slug   string `gorm:"size:140;not null;uniqueIndex:idx_categories_tenant_slug,priority:2"`
	Posts  []Post `gorm:"many2many:post_categories;" json:"-"`
}
