package handler

import (
	"imin-server/internal/model"
	"imin-server/internal/service"
	"imin-server/pkg/jwt"
	"imin-server/pkg/response"

	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	service *service.PresenceService
}

func NewPresenceHandler(s *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{service: s}
}

// SetPresence 设置在线状态，重复提交相同内容结果一致
func (h *PresenceHandler) SetPresence(c *gin.Context) {
	var req struct {
		State               model.PresenceState  `json:"state" binding:"required"`
		VisibilityMode      model.VisibilityMode `json:"visibility_mode"`
		VisibilityCircleIDs []string             `json:"visibility_circle_ids"`
		ResetDuration       *model.AutoReset     `json:"reset_duration"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.VisibilityMode == "" {
		req.VisibilityMode = model.VisibleToEveryone
	}
	p, err := h.service.SetPresence(c.Request.Context(), jwt.GetUserID(c), service.SetPresenceInput{
		State:               req.State,
		VisibilityMode:      req.VisibilityMode,
		VisibilityCircleIDs: req.VisibilityCircleIDs,
		ResetDuration:       req.ResetDuration,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterPresence(p))
}

// GetPresence 查看某个用户的状态
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	p, err := h.service.GetPresence(c.Request.Context(), jwt.GetUserID(c), c.Param("user_id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterPresence(p))
}

// ListVisible 当前对我可见且处于 in 的用户
func (h *PresenceHandler) ListVisible(c *gin.Context) {
	list, err := h.service.GetVisiblePresences(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	infos := make([]*response.VisiblePresenceInfo, 0, len(list))
	for _, v := range list {
		infos = append(infos, &response.VisiblePresenceInfo{
			UserID:    v.UserID,
			Name:      v.Name,
			Handle:    v.Handle,
			State:     v.State,
			ExpiresAt: v.ExpiresAt,
		})
	}
	response.Success(c, infos)
}
