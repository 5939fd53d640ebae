package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tangerine/internal/logger"
	"github.com/tangerine/internal/service"
)

type siteRequest struct {
	SiteTitle                     string   `json:"site_title"`
	Tagline                       string   `json:"tagline"`
	SiteURL                       string   `json:"site_url"`
	PostsPerPage                  int      `json:"posts_per_page"`
	GoogleAnalyticsID             string   `json:"google_analytics_id"`
	EnableCommentsGlobal          *bool    `json:"enable_comments_global"`
	CommentSystem                 string   `json:"comment_system"`
	AutoApprovePreviousCommentors *bool    `json:"auto_approve_previous_commentors"`
	ShowFuture                    *bool    `json:"show_future"`
	FromEmail                     string   `json:"from_email"`
	ModerationEmail               string   `json:"moderation_email"`
	AkismetKey                    string   `json:"akismet_key"`
	TimeZone                      string   `json:"time_zone"`
	AllowedTags                   []string `json:"allowed_tags"`
}

func (r siteRequest) toInput() service.BlogInput {
	return service.BlogInput{
		SiteTitle:                     r.SiteTitle,
		Tagline:                       r.Tagline,
		SiteURL:                       r.SiteURL,
		PostsPerPage:                  r.PostsPerPage,
		GoogleAnalyticsID:             r.GoogleAnalyticsID,
		EnableCommentsGlobal:          r.EnableCommentsGlobal,
		CommentSystem:                 r.CommentSystem,
		AutoApprovePreviousCommentors: r.AutoApprovePreviousCommentors,
		ShowFuture:                    r.ShowFuture,
		FromEmail:                     r.FromEmail,
		ModerationEmail:               r.ModerationEmail,
		AkismetKey:                    r.AkismetKey,
		TimeZone:                      r.TimeZone,
		AllowedTags:                   r.AllowedTags,
	}
}

// GetSiteSettings 返回当前租户的完整站点配置（不含 Akismet key 明文）。
func (a *API) GetSiteSettings(c *gin.Context) {
	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": newManageSiteView(blog)})
}

// CreateSiteSettings 为尚未配置的租户创建站点配置。
func (a *API) CreateSiteSettings(c *gin.Context) {
	var req siteRequest
	if !bindJSON(c, &req, "invalid site payload") {
		return
	}
	blog, err := a.blogs.Create(a.tenant(c), req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	logger.Infow("site_created", "tenant", blog.Slug)
	c.JSON(http.StatusCreated, gin.H{"site": newManageSiteView(blog)})
}

// UpdateSiteSettings 修改站点配置，缺省字段保持不变。
func (a *API) UpdateSiteSettings(c *gin.Context) {
	var req siteRequest
	if !bindJSON(c, &req, "invalid site payload") {
		return
	}
	blog, err := a.blogs.Update(a.tenant(c), req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": newManageSiteView(blog)})
}
