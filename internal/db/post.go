package db

import (
	"time"

	"gorm.io/gorm"
)

const (
	PostTypePost = "post"
	PostTypePage = "page"

	// PubDayLayout 是 PubDay 列使用的本地日期格式。
	PubDayLayout = "2006-01-02"
)

// Post 定义了文章与独立页面。
// PubDate 始终以 UTC 存储；PubOffset 记录发布时租户时区相对 UTC 的秒数，
// PubDay 是按该偏移换算后的本地日期，永久链接以它为准。
type Post struct {
	gorm.Model
	Tenant         string     `gorm:"size:64;not null;index:idx_posts_visibility,priority:1;uniqueIndex:idx_posts_tenant_day_slug,priority:1"`
	Title          string     `gorm:"size:140;not null"`
	Slug           string     `gorm:"size:140;not null;uniqueIndex:idx_posts_tenant_day_slug,priority:3"`
	AuthorID       *uint      `gorm:"index"`
	Author         *User      `gorm:"constraint:OnDelete:SET NULL;"`
	Summary        string     `gorm:"type:text"`
	Content        string     `gorm:"type:text"`
	Published      bool       `gorm:"index:idx_posts_visibility,priority:2"`
	Trashed        bool       `gorm:"index:idx_posts_visibility,priority:3"`
	PType          string     `gorm:"column:ptype;size:6;not null;index:idx_posts_visibility,priority:4"`
	PubDate        time.Time  `gorm:"not null;index:idx_posts_visibility,priority:5"`
	PubOffset      int        `gorm:"not null;default:0"`
	PubDay         string     `gorm:"size:10;not null;uniqueIndex:idx_posts_tenant_day_slug,priority:2"`
	EnableComments bool       `gorm:"not null"`
	Categories     []Category `gorm:"many2many:post_categories;"`
}

// LocalPubDate 返回按发布时偏移呈现的发布时间。
func (p *Post) LocalPubDate() time.Time {
	return p.PubDate.In(time.FixedZone("", p.PubOffset))
}

// SetPubDate 以租户时区记录发布时间，同时刷新 PubOffset 与 PubDay。
func (p *Post) SetPubDate(t time.Time, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	_, offset := local.Zone()
	p.PubDate = t.UTC()
	p.PubOffset = offset
	p.PubDay = local.Format(PubDayLayout)
}

// BeforeSave 保证 PubDate 以 UTC 写入，并让 PubDay 与偏移保持一致。
func (p *Post) BeforeSave(tx *gorm.DB) error {
	if p.PubDate.IsZero() {
		return nil
	}
	p.PubDate = p.PubDate.UTC()
	p.PubDay = p.LocalPubDate().Format(PubDayLayout)
	return nil
}
