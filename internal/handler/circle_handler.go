package handler

import (
	"imin-server/internal/service"
	"imin-server/pkg/jwt"
	"imin-server/pkg/response"

	"github.com/gin-gonic/gin"
)

type CircleHandler struct {
	service *service.CircleService
}

func NewCircleHandler(s *service.CircleService) *CircleHandler {
	return &CircleHandler{service: s}
}

type circleNameRequest struct {
	Name string `json:"name"`
}

// Create 创建分组
func (h *CircleHandler) Create(c *gin.Context) {
	var req circleNameRequest
	if !bindJSON(c, &req) {
		return
	}
	circle, err := h.service.CreateCircle(c.Request.Context(), jwt.GetUserID(c), req.Name)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, response.FilterCircle(circle))
}

func (h *CircleHandler) List(c *gin.Context) {
	circles, err := h.service.ListCircles(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterCircleList(circles))
}

func (h *CircleHandler) Get(c *gin.Context) {
	circle, err := h.service.GetCircle(c.Request.Context(), c.Param("id"), jwt.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterCircle(circle))
}

// Rename 重命名分组
func (h *CircleHandler) Rename(c *gin.Context) {
	var req circleNameRequest
	if !bindJSON(c, &req) {
		return
	}
	circle, err := h.service.RenameCircle(c.Request.Context(), c.Param("id"), jwt.GetUserID(c), req.Name)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterCircle(circle))
}

// Delete 删除分组，同时从在线状态的可见范围中移除
func (h *CircleHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteCircle(c.Request.Context(), c.Param("id"), jwt.GetUserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *CircleHandler) AddMember(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	circle, err := h.service.AddMember(c.Request.Context(), c.Param("id"), jwt.GetUserID(c), req.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterCircle(circle))
}

func (h *CircleHandler) RemoveMember(c *gin.Context) {
	circle, err := h.service.RemoveMember(c.Request.Context(), c.Param("id"), jwt.GetUserID(c), c.Param("user_id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterCircle(circle))
}
