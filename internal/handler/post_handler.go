package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tangerine/internal/db"
	"github.com/tangerine/internal/logger"
	"github.com/tangerine/internal/service"
)

type postRequest struct {
	Title          string     `json:"title"`
	Slug           string     `json:"slug"`
	Summary        string     `json:"summary"`
	Content        string     `json:"content"`
	Published      *bool      `json:"published"`
	Type           string     `json:"type"`
	PubDate        *time.Time `json:"pub_date"`
	EnableComments *bool      `json:"enable_comments"`
	CategoryIDs    []uint     `json:"category_ids"`
}

func (r postRequest) toInput(authorID *uint) service.PostInput {
	return service.PostInput{
		Title:          r.Title,
		Slug:           r.Slug,
		Summary:        r.Summary,
		Content:        r.Content,
		AuthorID:       authorID,
		Published:      r.Published,
		PType:          r.Type,
		PubDate:        r.PubDate,
		EnableComments: r.EnableComments,
		CategoryIDs:    r.CategoryIDs,
	}
}

// managePostView 额外带出管理端关心的状态字段。
func managePostView(post *db.Post, siteURL string) gin.H {
	return gin.H{
		"post":      newPostView(post, siteURL),
		"type":      post.PType,
		"published": post.Published,
		"trashed":   post.Trashed,
		"content":   post.Content,
	}
}

// GetPost 获取单篇文章（不论是否可见）
func (a *API) GetPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	post, err := a.posts.Get(blog.Slug, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, managePostView(post, blog.SiteURL))
}

// CreatePost 创建新文章，作者为当前登录用户。
func (a *API) CreatePost(c *gin.Context) {
	var req postRequest
	if !bindJSON(c, &req, "invalid post payload") {
		return
	}
	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var authorID *uint
	if identity := IdentityFrom(c); identity.Authenticated {
		authorID = &identity.UserID
	}
	post, err := a.posts.Create(blog.Slug, req.toInput(authorID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	logger.Infow("post_created", "tenant", blog.Slug, "post_id", post.ID, "pub_day", post.PubDay)
	c.JSON(http.StatusCreated, managePostView(post, blog.SiteURL))
}

// UpdatePost 更新文章，未提供 pub_date 时保留原发布时间与偏移。
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	var req postRequest
	if !bindJSON(c, &req, "invalid post payload") {
		return
	}
	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	post, err := a.posts.Update(blog.Slug, id, req.toInput(nil))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, managePostView(post, blog.SiteURL))
}

// TrashPost 移入回收站
func (a *API) TrashPost(c *gin.Context) {
	a.setPostTrashed(c, true)
}

// RestorePost 从回收站恢复
func (a *API) RestorePost(c *gin.Context) {
	a.setPostTrashed(c, false)
}

func (a *API) setPostTrashed(c *gin.Context, trashed bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if trashed {
		err = a.posts.Trash(a.tenant(c), id)
	} else {
		err = a.posts.Restore(a.tenant(c), id)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
