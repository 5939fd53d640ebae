package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tangerine/internal/service"
)

// ManageComments 列出租户全部评论（含未审核与垃圾评论），?q 匹配正文、名字与邮箱。
func (a *API) ManageComments(c *gin.Context) {
	filter := service.CommentFilter{
		Query: c.Query("q"),
		Page:  parsePositiveInt(c.DefaultQuery("page", "1"), 1),
	}
	result, err := a.comments.Manage(a.tenant(c), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, commentListResponse(result))
}

// ManageComment 返回只包含指定评论的管理列表，与 ManageComments 的结构一致。
func (a *API) ManageComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.comments.Manage(a.tenant(c), service.CommentFilter{CommentID: &id, Query: c.Query("q")})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if result.Total == 0 {
		respondError(c, http.StatusNotFound, service.ErrCommentNotFound.Error())
		return
	}
	c.JSON(http.StatusOK, commentListResponse(result))
}

func commentListResponse(result *service.CommentListResult) gin.H {
	items := make([]manageCommentView, 0, len(result.Comments))
	for i := range result.Comments {
		items = append(items, newManageCommentView(&result.Comments[i]))
	}
	return gin.H{
		"comments":    items,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total":       result.Total,
		"total_pages": result.TotalPages,
	}
}

// ToggleCommentApproval 翻转评论的审核状态。
func (a *API) ToggleCommentApproval(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	comment, err := a.moderation.ToggleApproval(c.Request.Context(), a.tenant(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": newManageCommentView(comment)})
}

// ToggleCommentSpam 翻转垃圾标记，并随之翻转审核状态。
func (a *API) ToggleCommentSpam(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	comment, err := a.moderation.ToggleSpam(c.Request.Context(), a.tenant(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": newManageCommentView(comment)})
}

// DeleteComment 永久删除评论及其回复。
func (a *API) DeleteComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.moderation.Delete(c.Request.Context(), a.tenant(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
