package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/tangerine/internal/db"
	"github.com/tangerine/internal/logger"
	"github.com/tangerine/internal/service"
)

const sessionUserIDKey = "user_id"

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login 校验用户名密码并写入会话。
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid login payload")
		return
	}

	user, err := a.users.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "invalid username or password")
			return
		}
		respondServiceError(c, err)
		return
	}

	// 设置会话
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserIDKey, user.ID)
	if err := session.Save(); err != nil {
		logger.Warnw("session_save_failed", "user_id", user.ID, "error", err)
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return
	}

	logger.Infow("user_login", "user_id", user.ID, "username", user.Username)
	c.JSON(http.StatusOK, gin.H{
		"username":     user.Username,
		"is_superuser": user.IsSuperuser,
	})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		logger.Warnw("session_clear_failed", "error", err)
	}
	c.Status(http.StatusNoContent)
}

// LoadIdentity 从会话恢复当前用户。会话指向的账号不存在时按匿名处理。
func (a *API) LoadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionUserIDKey).(uint)
		if !ok || userID == 0 {
			c.Next()
			return
		}

		user, err := a.users.Get(userID)
		if err != nil {
			if !errors.Is(err, service.ErrUserNotFound) {
				logger.Warnw("session_user_load_failed", "user_id", userID, "error", err)
			}
			c.Next()
			return
		}
		c.Set(ContextUserKey, user)
		c.Set(ContextIdentityKey, service.IdentityFor(user))
		c.Next()
	}
}

// SuperuserRequired 只放行超级用户：未登录返回 401，普通用户返回 403。
func SuperuserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		user, ok := value.(*db.User)
		if !exists || !ok || user == nil {
			respondError(c, http.StatusUnauthorized, "login required")
			c.Abort()
			return
		}
		if !user.IsSuperuser {
			respondError(c, http.StatusForbidden, "superuser required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ShowMe 返回当前登录用户。
func (a *API) ShowMe(c *gin.Context) {
	identity := IdentityFrom(c)
	if !identity.Authenticated {
		respondError(c, http.StatusUnauthorized, "login required")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           identity.UserID,
		"display_name": identity.DisplayName,
		"email":        identity.Email,
	})
}
