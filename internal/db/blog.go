package db

import (
	"strings"
	"time"
	_ "time/tzdata"

	"gorm.io/gorm"
)

const (
	CommentSystemNative   = "native"
	CommentSystemDisqus   = "disqus"
	CommentSystemFacebook = "facebook"
	CommentSystemNone     = "none"
)

// Blog 是单个租户的站点配置，每个租户至多一条。
// 布尔字段不设置 gorm 默认值：零值 false 在 Create 时会被默认值覆盖。
type Blog struct {
	gorm.Model
	Slug                          string `gorm:"size:64;uniqueIndex;not null"`
	SiteTitle                     string `gorm:"size:140;not null"`
	Tagline                       string `gorm:"size:140"`
	SiteURL                       string
	PostsPerPage                  int
	GoogleAnalyticsID             string `gorm:"size:16"`
	EnableCommentsGlobal          bool
	CommentSystem                 string `gorm:"size:12"`
	AutoApprovePreviousCommentors bool
	ShowFuture                    bool
	FromEmail                     string
	ModerationEmail               string
	AkismetKey                    string `json:"-"`
	TimeZone                      string `gorm:"size:64"`
	AllowedTags                   string `gorm:"type:text"`
}

// Location 返回租户时区；未配置或无法识别时使用 UTC。
func (b *Blog) Location() *time.Location {
	name := strings.TrimSpace(b.TimeZone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AllowedTagList 解析逗号分隔的评论标签白名单，空值返回 nil。
func (b *Blog) AllowedTagList() []string {
	raw := strings.TrimSpace(b.AllowedTags)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
