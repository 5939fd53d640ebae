package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tangerine/internal/service"
)

type categoryRequest struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type linkGroupRequest struct {
	Links []struct {
		SiteTitle string `json:"site_title"`
		SiteURL   string `json:"site_url"`
		Order     uint   `json:"order"`
	} `json:"links"`
}

// ManageCategories 列出全部分类，包括还没有文章的。
func (a *API) ManageCategories(c *gin.Context) {
	categories, err := a.categories.List(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": newCategoryViews(categories)})
}

// CreateCategory 新建分类
func (a *API) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req, "invalid category payload") {
		return
	}
	category, err := a.categories.Create(a.tenant(c), req.Title, req.Slug)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": categoryView{ID: category.ID, Title: category.Title, Slug: category.Slug}})
}

// SaveLinkGroup 整体替换链接组
func (a *API) SaveLinkGroup(c *gin.Context) {
	var req linkGroupRequest
	if !bindJSON(c, &req, "invalid link group payload") {
		return
	}
	links := make([]service.RelatedLinkInput, 0, len(req.Links))
	for _, link := range req.Links {
		links = append(links, service.RelatedLinkInput{
			SiteTitle: link.SiteTitle,
			SiteURL:   link.SiteURL,
			LinkOrder: link.Order,
		})
	}
	group, err := a.links.Save(a.tenant(c), c.Param("slug"), links)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, linkGroupResponse(group))
}
