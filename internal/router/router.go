package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/tangerine/internal/config"
	"github.com/tangerine/internal/handler"
	"github.com/tangerine/internal/logger"
)

const sessionName = "tangerine_session"

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, cfg *config.AppConfig, limiter RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   14 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(TenantMiddleware(cfg.Tenant))
	r.Use(api.LoadIdentity())

	r.GET("/healthz", api.HealthCheck)

	// 公开路由
	r.GET("/", api.ShowHome)
	r.GET("/site", api.ShowSite)

	posts := r.Group("/posts/:year/:month/:day/:slug")
	{
		posts.GET("/", api.ShowPost)
		posts.POST("/comments", CommentRateLimit(limiter, cfg.RateLimit), api.SubmitComment)
	}

	r.GET("/categories", api.ListCategories)
	r.GET("/categories/:slug", api.ShowCategory)

	r.GET("/archive", api.ListArchiveDates)
	r.GET("/archive/:year", api.ShowArchive)
	r.GET("/archive/:year/:month", api.ShowArchive)
	r.GET("/archive/:year/:month/:day", api.ShowArchive)

	r.GET("/search", api.Search)
	r.GET("/pages/:slug", api.ShowPage)
	r.GET("/links/:slug", api.ShowLinks)
	r.GET("/comments/recent", api.RecentComments)

	r.POST("/login", api.Login)
	r.POST("/logout", api.Logout)
	r.GET("/me", api.ShowMe)

	// 后台管理路由，只对超级用户开放
	manage := r.Group("/manage")
	manage.Use(handler.SuperuserRequired())
	{
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

	return r
}
