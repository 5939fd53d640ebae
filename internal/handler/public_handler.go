package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tangerine/internal/db"
	"github.com/tangerine/internal/service"
)

const recentCommentsLimit = 5

func postListResponse(result *service.PostListResult, siteURL string) gin.H {
	return gin.H{
		"posts":       newPostViews(result.Posts, siteURL),
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total":       result.Total,
		"total_pages": result.TotalPages,
		"has_more":    result.Page < result.TotalPages,
	}
}

// pageOf 按租户的每页数量读取集合中的一页。
func (a *API) pageOf(c *gin.Context, blog *db.Blog, set *service.PostSet) (gin.H, bool) {
	page := parsePositiveInt(c.DefaultQuery("page", "1"), 1)
	result, err := set.Page(page, blog.PostsPerPage)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return postListResponse(result, blog.SiteURL), true
}

// ShowHome 返回首页文章列表。
func (a *API) ShowHome(c *gin.Context) {
	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	result, err := a.posts.ListVisible(blog.Slug, parsePositiveInt(c.DefaultQuery("page", "1"), 1))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	payload := postListResponse(result, blog.SiteURL)
	payload["site"] = newSiteView(blog)
	c.JSON(http.StatusOK, payload)
}

// ShowSite 返回公开的站点信息。
func (a *API) ShowSite(c *gin.Context) {
	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": newSiteView(blog)})
}

func (a *API) resolvePermalink(c *gin.Context) (*db.Post, bool) {
	link, err := service.ParsePermalink(c.Param("year"), c.Param("month"), c.Param("day"), c.Param("slug"))
	if err != nil {
		respondError(c, http.StatusNotFound, service.ErrPostNotFound.Error())
		return nil, false
	}
	post, err := a.permalinks.Resolve(a.tenant(c), link)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return post, true
}

// ShowPost 按永久链接返回文章详情、评论树与相邻文章。
func (a *API) ShowPost(c *gin.Context) {
	post, ok := a.resolvePermalink(c)
	if !ok {
		return
	}
	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	thread, err := a.comments.Thread(blog.Slug, post.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	count, err := a.comments.Count(blog.Slug, post.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	previous, next, err := a.posts.Adjacent(blog.Slug, post)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view := newPostView(post, blog.SiteURL)
	view.HTML = a.renderMarkdown(c.Request.Context(), post)

	payload := gin.H{
		"post":             view,
		"comments":         newPublicCommentViews(thread),
		"comment_count":    count,
		"comments_enabled": blog.EnableCommentsGlobal && post.EnableComments,
	}
	if previous != nil {
		payload["previous"] = newPostView(previous, blog.SiteURL)
	}
	if next != nil {
		payload["next"] = newPostView(next, blog.SiteURL)
	}
	c.JSON(http.StatusOK, payload)
}

// SubmitComment 处理评论提交，表单与 JSON 均可。
func (a *API) SubmitComment(c *gin.Context) {
	post, ok := a.resolvePermalink(c)
	if !ok {
		return
	}

	var submission service.CommentSubmission
	if err := c.ShouldBind(&submission); err != nil {
		respondError(c, http.StatusBadRequest, "invalid comment payload")
		return
	}
	if raw := strings.TrimSpace(c.PostForm("parent_id")); raw != "" && submission.ParentID == nil {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid parent_id")
			return
		}
		parentID := uint(parsed)
		submission.ParentID = &parentID
	}

	comment, err := a.pipeline.Submit(c.Request.Context(), service.SubmitRequest{
		Tenant:     a.tenant(c),
		PostID:     post.ID,
		Submission: submission,
		Identity:   IdentityFrom(c),
		Meta: service.RequestMeta{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		},
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	status := "pending"
	if comment.Approved {
		status = "published"
	}
	c.JSON(http.StatusCreated, gin.H{
		"comment": publicCommentView{
			ID:        comment.ID,
			ParentID:  comment.ParentID,
			Name:      comment.Name,
			Website:   comment.Website,
			Body:      comment.Body,
			CreatedAt: comment.CreatedAt,
		},
		"status": status,
	})
}

// ListCategories 返回至少含有一篇可见文章的分类。
func (a *API) ListCategories(c *gin.Context) {
	categories, err := a.categories.Visible(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": newCategoryViews(categories)})
}

// ShowCategory 返回分类及其下可见文章。
func (a *API) ShowCategory(c *gin.Context) {
	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	category, set, err := a.categories.Posts(blog.Slug, c.Param("slug"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	payload, ok := a.pageOf(c, blog, set)
	if !ok {
		return
	}
	payload["category"] = newCategoryViews([]db.Category{*category})[0]
	c.JSON(http.StatusOK, payload)
}

// ShowArchive 按本地发布日期返回年、月或日归档。
func (a *API) ShowArchive(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		respondError(c, http.StatusNotFound, service.ErrInvalidArchiveDate.Error())
		return
	}
	month, day := 0, 0
	if raw := c.Param("month"); raw != "" {
		if month, err = strconv.Atoi(raw); err != nil {
			respondError(c, http.StatusNotFound, service.ErrInvalidArchiveDate.Error())
			return
		}
	}
	if raw := c.Param("day"); raw != "" {
		if day, err = strconv.Atoi(raw); err != nil {
			respondError(c, http.StatusNotFound, service.ErrInvalidArchiveDate.Error())
			return
		}
	}

	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	set, err := a.posts.DateArchive(blog.Slug, year, month, day)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	payload, ok := a.pageOf(c, blog, set)
	if !ok {
		return
	}
	payload["year"] = year
	if month > 0 {
		payload["month"] = month
	}
	if day > 0 {
		payload["day"] = day
	}
	c.JSON(http.StatusOK, payload)
}

// ListArchiveDates 返回有文章的月份（?by=year 时为年份）。
func (a *API) ListArchiveDates(c *gin.Context) {
	byYear := strings.EqualFold(c.Query("by"), "year")
	periods, err := a.posts.ArchiveDates(a.tenant(c), byYear)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	items := make([]gin.H, 0, len(periods))
	for _, period := range periods {
		item := gin.H{"year": period.Year, "count": period.Count}
		if !byYear {
			item["month"] = period.Month
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"dates": items})
}

// Search 在可见文章的标题、摘要与正文中搜索。
func (a *API) Search(c *gin.Context) {
	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	query := strings.TrimSpace(c.Query("q"))
	set, err := a.posts.Search(blog.Slug, query)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	payload, ok := a.pageOf(c, blog, set)
	if !ok {
		return
	}
	payload["q"] = query
	c.JSON(http.StatusOK, payload)
}

// ShowLinks 返回链接组，链接按顺序排列。
func (a *API) ShowLinks(c *gin.Context) {
	group, err := a.links.Get(a.tenant(c), c.Param("slug"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, linkGroupResponse(group))
}

func linkGroupResponse(group *db.RelatedLinkGroup) gin.H {
	links := make([]gin.H, 0, len(group.Links))
	for _, link := range group.Links {
		links = append(links, gin.H{"site_title": link.SiteTitle, "site_url": link.SiteURL, "order": link.LinkOrder})
	}
	return gin.H{"slug": group.Slug, "links": links}
}

// RecentComments 返回最新的已审核评论。
func (a *API) RecentComments(c *gin.Context) {
	blog, err := a.blogs.Get(a.tenant(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	limit := parsePositiveInt(c.DefaultQuery("limit", ""), recentCommentsLimit)
	if limit > 50 {
		limit = 50
	}
	comments, err := a.comments.Recent(blog.Slug, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	items := make([]gin.H, 0, len(comments))
	for _, comment := range comments {
		item := gin.H{
			"id":         comment.ID,
			"name":       comment.Name,
			"body":       comment.Body,
			"created_at": comment.CreatedAt,
		}
		if comment.Post != nil {
			item["post"] = newPostView(comment.Post, blog.SiteURL)
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"comments": items})
}

// HealthCheck 提供负载均衡与监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
		"cache":    a.cache.Enabled(),
	})
}
