package db

import (
	"time"

	"gorm.io/gorm"
)

// Comment 定义了文章评论；ParentID 为空表示顶层评论。
type Comment struct {
	gorm.Model
	Tenant    string   `gorm:"size:64;not null;index"`
	PostID    uint     `gorm:"not null;index:idx_comments_tree,priority:1"`
	Post      *Post    `gorm:"constraint:OnDelete:CASCADE;" json:",omitempty"`
	ParentID  *uint    `gorm:"index:idx_comments_tree,priority:2"`
	Parent    *Comment `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	AuthorID  *uint    `gorm:"index"`
	Author    *User    `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Name      string   `gorm:"size:100"`
	Email     string
	Website   string
	Body      string `gorm:"type:text;not null"`
	IPAddress string `gorm:"size:45"`
	UserAgent string `gorm:"type:text"`
	Approved  bool   `gorm:"index:idx_comments_tree,priority:3"`
	Spam      bool
}

// ApprovedCommentor 记录曾被人工批准过的邮箱，用于自动通过后续评论。
type ApprovedCommentor struct {
	ID        uint   `gorm:"primaryKey"`
	Tenant    string `gorm:"size:64;not null;index:idx_approved_commentors_tenant_email,priority:1"`
	Email     string `gorm:"not null;index:idx_approved_commentors_tenant_email,priority:2"`
	CreatedAt time.Time
}
