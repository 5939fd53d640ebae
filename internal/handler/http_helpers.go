package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tangerine/internal/logger"
	"github.com/tangerine/internal/service"
)

const (
	// ContextTenantKey 保存由路由中间件解析出的租户 slug。
	ContextTenantKey = "tangerine.tenant"
	// ContextIdentityKey 保存当前请求者的 service.Identity。
	ContextIdentityKey = "tangerine.identity"
	// ContextUserKey 保存已登录的 *db.User。
	ContextUserKey = "tangerine.user"
	// ContextRequestIDKey 保存请求 ID。
	ContextRequestIDKey = "tangerine.request_id"
)

// TenantFrom 返回当前请求的租户 slug。
func TenantFrom(c *gin.Context) string {
	return c.GetString(ContextTenantKey)
}

// IdentityFrom 返回当前请求者身份，未登录时为匿名身份。
func IdentityFrom(c *gin.Context) service.Identity {
	if value, ok := c.Get(ContextIdentityKey); ok {
		if identity, ok := value.(service.Identity); ok {
			return identity
		}
	}
	return service.Identity{}
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondServiceError 把 service 层错误映射为 HTTP 状态码。
func respondServiceError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, service.ErrTenantNotConfigured):
		respondError(c, http.StatusServiceUnavailable, "site not yet configured")
	case errors.Is(err, service.ErrCommentsDisabled):
		respondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrParentMismatch):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConfigExists),
		errors.Is(err, service.ErrSlugTaken),
		errors.Is(err, service.ErrCategoryExists):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrInvalidArchiveDate),
		errors.Is(err, service.ErrPageNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrLinkGroupNotFound),
		errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	default:
		logger.Errorw("request_failed",
			"path", c.FullPath(),
			"tenant", TenantFrom(c),
			"request_id", c.GetString(ContextRequestIDKey),
			"error", err,
		)
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
