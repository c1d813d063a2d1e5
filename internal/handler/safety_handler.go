package handler

import (
	"imin-server/internal/model"
	"imin-server/internal/service"
	"imin-server/pkg/jwt"
	"imin-server/pkg/response"

	"github.com/gin-gonic/gin"
)

type SafetyHandler struct {
	service *service.SafetyService
}

func NewSafetyHandler(s *service.SafetyService) *SafetyHandler {
	return &SafetyHandler{service: s}
}

// Block 拉黑用户，重复拉黑无副作用
func (h *SafetyHandler) Block(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.service.Block(c.Request.Context(), jwt.GetUserID(c), req.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterBlock(b))
}

func (h *SafetyHandler) Unblock(c *gin.Context) {
	if err := h.service.Unblock(c.Request.Context(), jwt.GetUserID(c), c.Param("user_id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *SafetyHandler) ListBlocked(c *gin.Context) {
	list, err := h.service.ListBlocked(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterBlockList(list))
}

// Report 举报会话、消息或用户
func (h *SafetyHandler) Report(c *gin.Context) {
	var req struct {
		ThreadID       string             `json:"thread_id"`
		MessageID      *string            `json:"message_id"`
		ReportedUserID *string            `json:"reported_user_id"`
		Reason         model.ReportReason `json:"reason" binding:"required"`
		Details        *string            `json:"details"`
	}
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.service.Report(c.Request.Context(), jwt.GetUserID(c), service.ReportInput{
		ThreadID:       req.ThreadID,
		MessageID:      req.MessageID,
		ReportedUserID: req.ReportedUserID,
		Reason:         req.Reason,
		Details:        req.Details,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, gin.H{"id": report.ID, "created_at": report.CreatedAt})
}
