package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ShowPage returns a published standalone page by slug.
func (a *API) ShowPage(c *gin.Context) {
	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	page, err := a.posts.Page(blog.Slug, c.Param("slug"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view := newPostView(page, blog.SiteURL)
	view.HTML = a.renderMarkdown(c.Request.Context(), page)
	c.JSON(http.StatusOK, gin.H{"page": view})
}
