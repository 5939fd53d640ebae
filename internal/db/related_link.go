package db

import "gorm.io/gorm"

// RelatedLinkGroup 是一组按 LinkOrder 排列的外部链接。
type RelatedLinkGroup struct {
	gorm.Model
	Tenant string        `gorm:"size:64;not null;uniqueIndex:idx_link_groups_tenant_slug,priority:1"`
	Slug   string        `gorm:"size:64;not null;uniqueIndex:idx_link_groups_tenant_slug,priority:2"`
	Links  []RelatedLink `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE;"`
}

type RelatedLink struct {
	gorm.Model
	GroupID   uint   `gorm:"not null;index"`
	SiteTitle string `gorm:"size:80;not null"`
	SiteURL   string `gorm:"not null"`
	LinkOrder uint   `gorm:"not null;default:0;index"`
}
