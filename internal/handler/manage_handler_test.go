package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tangerine/internal/db"
	"github.com/tangerine/internal/service"
)

type manageCommentBody struct {
	Comment manageCommentView `json:"comment"`
}

type manageListBody struct {
	Comments   []manageCommentView `json:"comments"`
	Total      int64               `json:"total"`
	TotalPages int                 `json:"total_pages"`
}

type managePostBody struct {
	Post      postView `json:"post"`
	Type      string   `json:"type"`
	Published bool     `json:"published"`
	Trashed   bool     `json:"trashed"`
}

func manageRoutes(api *API) func(r *gin.Engine) {
	return func(r *gin.Engine) {
		r.GET("/posts/:year/:month/:day/:slug/", api.ShowPost)
		manage := r.Group("/manage", SuperuserRequired())
		manage.GET("/comments", api.ManageComments)
		manage.GET("/comments/:id", api.ManageComment)
		manage.POST("/comments/:id/toggle-approval", api.ToggleCommentApproval)
		manage.POST("/comments/:id/toggle-spam", api.ToggleCommentSpam)
		manage.DELETE("/comments/:id", api.DeleteComment)
		manage.POST("/posts", api.CreatePost)
		manage.GET("/posts/:id", api.GetPost)
		manage.PUT("/posts/:id", api.UpdatePost)
		manage.POST("/posts/:id/trash", api.TrashPost)
		manage.POST("/posts/:id/restore", api.RestorePost)
		manage.GET("/site", api.GetSiteSettings)
		manage.POST("/site", api.CreateSiteSettings)
		manage.PUT("/site", api.UpdateSiteSettings)
		manage.GET("/categories", api.ManageCategories)
		manage.POST("/categories", api.CreateCategory)
		manage.PUT("/links/:slug", api.SaveLinkGroup)
	}
}

func newSuperuser(t *testing.T, env *handlerEnv) *db.User {
	t.Helper()
	return env.createUser(t, db.User{Username: "editor", FirstName: "Ed", Email: "ed@example.com", IsSuperuser: true})
}

func TestToggleCommentApprovalMaintainsAllowList(t *testing.T) {
	env := setupHandlerTest(t)
	env.createBlog(t, testTenant, service.BlogInput{})
	post := env.createPost(t, testTenant, service.PostInput{Title: "Talk", PubDate: timePtr(testNow.Add(-time.Hour))})
	comment := db.Comment{Tenant: testTenant, PostID: post.ID, Name: "Ann", Email: "ann@example.com", Body: "hi"}
	require.NoError(t, env.db.Create(&comment).Error)

	r := env.engine(testTenant, newSuperuser(t, env), manageRoutes(env.api))
	target := fmt.Sprintf("/manage/comments/%d/toggle-approval", comment.ID)

	w := doJSON(t, r, http.MethodPost, target, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeBody[manageCommentBody](t, w).Comment.Approved)

	var known int64
	require.NoError(t, env.db.Model(&db.ApprovedCommentor{}).Where("tenant = ? AND email = ?", testTenant, "ann@example.com").Count(&known).Error)
	assert.EqualValues(t, 1, known)

	w = doJSON(t, r, http.MethodPost, target, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeBody[manageCommentBody](t, w).Comment.Approved)
	require.NoError(t, env.db.Model(&db.ApprovedCommentor{}).Where("tenant = ? AND email = ?", testTenant, "ann@example.com").Count(&known).Error)
	assert.Zero(t, known)

	w = doJSON(t, r, http.MethodPost, "/manage/comments/9999/toggle-approval", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/manage/comments/abc/toggle-approval", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleCommentSpamReportsClassification(t *testing.T) {
	env := setupHandlerTest(t)
	env.createBlog(t, testTenant, service.BlogInput{})
	post := env.createPost(t, testTenant, service.PostInput{Title: "Talk", PubDate: timePtr(testNow.Add(-time.Hour))})
	comment := db.Comment{Tenant: testTenant, PostID: post.ID, Name: "Spammer", Body: "buy now", Approved: true}
	require.NoError(t, env.db.Create(&comment).Error)

	r := env.engine(testTenant, newSuperuser(t, env), manageRoutes(env.api))
	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/manage/comments/%d/toggle-spam", comment.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	view := decodeBody[manageCommentBody](t, w).Comment
	assert.True(t, view.Spam)
	assert.False(t, view.Approved)
	assert.Equal(t, []bool{true}, env.spam.submitted)
}

func TestManageCommentsListAndDelete(t *testing.T) {
	env := setupHandlerTest(t)
	env.createBlog(t, testTenant, service.BlogInput{})
	env.createBlog(t, "beta", service.BlogInput{})
	post := env.createPost(t, testTenant, service.PostInput{Title: "Talk", PubDate: timePtr(testNow.Add(-time.Hour))})
	foreign := env.createPost(t, "beta", service.PostInput{Title: "Other", PubDate: timePtr(testNow.Add(-time.Hour))})

	root := db.Comment{Tenant: testTenant, PostID: post.ID, Name: "Ann", Email: "ann@example.com", Body: "root", Approved: true}
	require.NoError(t, env.db.Create(&root).Error)
	reply := db.Comment{Tenant: testTenant, PostID: post.ID, ParentID: &root.ID, Name: "Bob", Body: "reply"}
	require.NoError(t, env.db.Create(&reply).Error)
	spam := db.Comment{Tenant: testTenant, PostID: post.ID, Name: "Eve", Body: "cheap pills", Spam: true}
	require.NoError(t, env.db.Create(&spam).Error)
	outsider := db.Comment{Tenant: "beta", PostID: foreign.ID, Name: "Zed", Body: "elsewhere"}
	require.NoError(t, env.db.Create(&outsider).Error)

	r := env.engine(testTenant, newSuperuser(t, env), manageRoutes(env.api))

	w := doJSON(t, r, http.MethodGet, "/manage/comments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[manageListBody](t, w)
	assert.EqualValues(t, 3, list.Total)

	w = doJSON(t, r, http.MethodGet, "/manage/comments?q=pills", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = decodeBody[manageListBody](t, w)
	require.Len(t, list.Comments, 1)
	assert.Equal(t, spam.ID, list.Comments[0].ID)
	assert.True(t, list.Comments[0].Spam)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/manage/comments/%d", root.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = decodeBody[manageListBody](t, w)
	require.Len(t, list.Comments, 1)
	assert.Equal(t, "ann@example.com", list.Comments[0].Email)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/manage/comments/%d", outsider.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/manage/comments/%d", root.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	var remaining int64
	require.NoError(t, env.db.Model(&db.Comment{}).Where("tenant = ?", testTenant).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/manage/comments/%d", outsider.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateUpdateAndTrashPost(t *testing.T) {
	env := setupHandlerTest(t)
	env.createBlog(t, testTenant, service.BlogInput{})
	editor := newSuperuser(t, env)
	r := env.engine(testTenant, editor, manageRoutes(env.api))

	w := doJSON(t, r, http.MethodPost, "/manage/posts", map[string]any{
		"title":    "Launch Day",
		"content":  "We shipped.",
		"pub_date": "2024-03-05T23:30:00-05:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[managePostBody](t, w)
	assert.Equal(t, "launch-day", created.Post.Slug)
	assert.Equal(t, "/posts/2024/03/06/launch-day/", created.Post.Permalink)
	assert.Equal(t, db.PostTypePost, created.Type)

	var stored db.Post
	require.NoError(t, env.db.First(&stored, created.Post.ID).Error)
	require.NotNil(t, stored.AuthorID)
	assert.Equal(t, editor.ID, *stored.AuthorID)

	w = doJSON(t, r, http.MethodPost, "/manage/posts", map[string]any{
		"title":    "Launch Day",
		"pub_date": "2024-03-06T10:00:00Z",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/manage/posts", map[string]any{"content": "untitled"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/manage/posts/%d", created.Post.ID), map[string]any{"summary": "short"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody[managePostBody](t, w)
	assert.Equal(t, "short", updated.Post.Summary)
	assert.Equal(t, created.Post.Permalink, updated.Post.Permalink)

	w = doJSON(t, r, http.MethodGet, created.Post.Permalink, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/manage/posts/%d/trash", created.Post.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, r, http.MethodGet, created.Post.Permalink, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/manage/posts/%d", created.Post.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[managePostBody](t, w).Trashed)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/manage/posts/%d/restore", created.Post.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, r, http.MethodGet, created.Post.Permalink, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/manage/posts/4242", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSiteSettingsLifecycle(t *testing.T) {
	env := setupHandlerTest(t)
	r := env.engine(testTenant, newSuperuser(t, env), manageRoutes(env.api))

	w := doJSON(t, r, http.MethodGet, "/manage/site", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, r, http.MethodPost, "/manage/site", map[string]any{
		"site_title":  "Alpha",
		"akismet_key": "secret-key",
		"time_zone":   "UTC",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secret-key")
	site := decodeBody[struct {
		Site manageSiteView `json:"site"`
	}](t, w).Site
	assert.Equal(t, "Alpha", site.SiteTitle)
	assert.True(t, site.AkismetConfigured)
	assert.True(t, site.EnableCommentsGlobal)
	assert.Equal(t, service.DefaultCommentTags, site.AllowedTags)

	w = doJSON(t, r, http.MethodPost, "/manage/site", map[string]any{"site_title": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPut, "/manage/site", map[string]any{"enable_comments_global": false, "posts_per_page": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	site = decodeBody[struct {
		Site manageSiteView `json:"site"`
	}](t, w).Site
	assert.False(t, site.EnableCommentsGlobal)
	assert.Equal(t, 5, site.PostsPerPage)
	assert.Equal(t, "Alpha", site.SiteTitle)

	w = doJSON(t, r, http.MethodPut, "/manage/site", map[string]any{"time_zone": "Mars/Olympus"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "time_zone")
}

func TestManageCategoriesAndLinks(t *testing.T) {
	env := setupHandlerTest(t)
	env.createBlog(t, testTenant, service.BlogInput{})
	r := env.engine(testTenant, newSuperuser(t, env), manageRoutes(env.api))

	w := doJSON(t, r, http.MethodPost, "/manage/categories", map[string]any{"title": "Release Notes"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"slug":"release-notes"`)

	w = doJSON(t, r, http.MethodPost, "/manage/categories", map[string]any{"title": "Release Notes"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodGet, "/manage/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[struct {
		Categories []categoryView `json:"categories"`
	}](t, w).Categories, 1)

	w = doJSON(t, r, http.MethodPut, "/manage/links/Blog%20Roll", map[string]any{
		"links": []map[string]any{
			{"site_title": "Go", "site_url": "https://go.dev", "order": 2},
			{"site_title": "Gin", "site_url": "https://gin-gonic.com", "order": 1},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decodeBody[struct {
		Slug  string `json:"slug"`
		Links []struct {
			SiteTitle string `json:"site_title"`
		} `json:"links"`
	}](t, w)
	assert.Equal(t, "blog-roll", saved.Slug)
	require.Len(t, saved.Links, 2)
	assert.Equal(t, "Gin", saved.Links[0].SiteTitle)

	w = doJSON(t, r, http.MethodPut, "/manage/links/blog-roll", map[string]any{
		"links": []map[string]any{{"site_title": "Broken", "site_url": "not a url"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
