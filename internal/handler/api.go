package handler

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tangerine/internal/cache"
	"github.com/tangerine/internal/db"
	"github.com/tangerine/internal/logger"
	"github.com/tangerine/internal/service"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	contentPolicy = bluemonday.UGCPolicy()
)

const renderedContentTTL = 24 * time.Hour

// Dependencies 是构造 API 所需的外部协作者。未设置的字段使用安全的默认实现。
type Dependencies struct {
	DB            *gorm.DB
	Spam          service.SpamChecker
	Notifier      service.Notifier
	Cache         *cache.Redis
	Clock         func() time.Time
	SpamTimeout   time.Duration
	NotifyTimeout time.Duration
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	cache      *cache.Redis
	blogs      *service.BlogService
	posts      *service.PostService
	categories *service.CategoryService
	comments   *service.CommentService
	pipeline   *service.CommentPipeline
	moderation *service.ModerationService
	permalinks *service.PermalinkResolver
	links      *service.RelatedLinkService
	users      *service.UserService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(deps Dependencies) *API {
	posts := service.NewPostService(deps.DB)
	posts.SetClock(deps.Clock)

	pipeline := service.NewCommentPipeline(deps.DB, deps.Spam, deps.Notifier)
	pipeline.SetTimeouts(deps.SpamTimeout, deps.NotifyTimeout)

	moderation := service.NewModerationService(deps.DB, deps.Spam)
	moderation.SetSpamTimeout(deps.SpamTimeout)

	return &API{
		db:         deps.DB,
		cache:      deps.Cache,
		blogs:      service.NewBlogService(deps.DB),
		posts:      posts,
		categories: service.NewCategoryService(deps.DB, posts),
		comments:   service.NewCommentService(deps.DB),
		pipeline:   pipeline,
		moderation: moderation,
		permalinks: service.NewPermalinkResolver(deps.DB),
		links:      service.NewRelatedLinkService(deps.DB),
		users:      service.NewUserService(deps.DB),
	}
}

// DB exposes the underlying gorm instance for health checks and tooling.
func (a *API) DB() *gorm.DB {
	return a.db
}

// renderMarkdown 把文章正文渲染为经过 UGC 策略清洗的 HTML。
// 结果按文章 ID 与更新时间缓存，内容变化后自然换键。
func (a *API) renderMarkdown(ctx context.Context, post *db.Post) string {
	key := fmt.Sprintf("post_html:%d:%d", post.ID, post.UpdatedAt.UnixNano())
	var cached string
	if hit, err := a.cache.GetJSON(ctx, key, &cached); err != nil {
		logger.Debugw("post_render_cache_get_failed", "post_id", post.ID, "error", err)
	} else if hit {
		return cached
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(post.Content), &buf); err != nil {
		logger.Warnw("post_render_failed", "post_id", post.ID, "error", err)
		return contentPolicy.Sanitize(post.Content)
	}
	rendered := contentPolicy.SanitizeBytes(buf.Bytes())

	if err := a.cache.SetJSON(ctx, key, string(rendered), renderedContentTTL); err != nil {
		logger.Debugw("post_render_cache_set_failed", "post_id", post.ID, "error", err)
	}
	return string(rendered)
}

func (a *API) tenant(c *gin.Context) string {
	return TenantFrom(c)
}
