package router

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tangerine/internal/config"
	"github.com/tangerine/internal/handler"
	"github.com/tangerine/internal/logger"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// RateLimiter 是评论限流所需的计数器，*cache.Redis 实现了它。
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(handler.ContextRequestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = logger.Z()
	}
	sugar := base.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", c.GetString(handler.ContextRequestIDKey),
			"tenant", handler.TenantFrom(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

// TenantMiddleware 解析租户：优先使用请求头，其次是 <slug>.<base_domain> 子域名，最后回退到默认租户。
func TenantMiddleware(cfg config.TenantConfig) gin.HandlerFunc {
	header := strings.TrimSpace(cfg.Header)
	fallback := strings.ToLower(strings.TrimSpace(cfg.Default))
	return func(c *gin.Context) {
		tenant := ""
		if header != "" {
			tenant = strings.ToLower(strings.TrimSpace(c.GetHeader(header)))
		}
		if tenant == "" {
			tenant = tenantFromHost(c.Request.Host, cfg.BaseDomain)
		}
		if tenant == "" {
			tenant = fallback
		}
		c.Set(handler.ContextTenantKey, tenant)
		c.Next()
	}
}

// tenantFromHost 取 base 之前的单级子域名，不匹配时返回空串。
func tenantFromHost(host, base string) string {
	base = strings.ToLower(strings.Trim(strings.TrimSpace(base), "."))
	if base == "" {
		return ""
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	suffix := "." + base
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	sub := strings.TrimSuffix(host, suffix)
	if sub == "" || strings.Contains(sub, ".") {
		return ""
	}
	return sub
}

// CommentRateLimit 按租户与客户端 IP 做固定窗口限流。计数器出错时放行。
func CommentRateLimit(limiter RateLimiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	limit := cfg.CommentsPerWindow
	window := cfg.Window()
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		key := "comment_rate:" + handler.TenantFrom(c) + ":" + c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warnw("comment_rate_limit_failed", "key", key, "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", formatSeconds(window))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many comments, slow down"})
			return
		}
		c.Next()
	}
}

func formatSeconds(d time.Duration) string {
	seconds := int(d / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
