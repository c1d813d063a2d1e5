package handler

import (
	"imin-server/internal/service"
	"imin-server/pkg/jwt"
	"imin-server/pkg/response"

	"github.com/gin-gonic/gin"
)

type FriendHandler struct {
	service *service.FriendService
}

func NewFriendHandler(s *service.FriendService) *FriendHandler {
	return &FriendHandler{service: s}
}

// SendRequest 按 handle 或邮箱发送好友请求
// 已存在待处理或已接受的请求时返回原请求（200），新建时返回 201
func (h *FriendHandler) SendRequest(c *gin.Context) {
	var req struct {
		Recipient string `json:"recipient"`
	}
	if !bindJSON(c, &req) {
		return
	}
	fr, created, err := h.service.SendRequest(c.Request.Context(), jwt.GetUserID(c), req.Recipient)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if created {
		response.Created(c, response.FilterFriendRequest(fr))
		return
	}
	response.Success(c, response.FilterFriendRequest(fr))
}

// Respond 接收方接受或拒绝
func (h *FriendHandler) Respond(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required,oneof=accept decline"`
	}
	if !bindJSON(c, &req) {
		return
	}
	fr, err := h.service.Respond(c.Request.Context(), c.Param("id"), jwt.GetUserID(c), req.Action == "accept")
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterFriendRequest(fr))
}

// ListRequests 待处理的好友请求，direction 默认 incoming
func (h *FriendHandler) ListRequests(c *gin.Context) {
	list, err := h.service.ListRequests(c.Request.Context(), jwt.GetUserID(c), c.DefaultQuery("direction", "incoming"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterFriendRequestList(list))
}

func (h *FriendHandler) ListFriends(c *gin.Context) {
	friends, err := h.service.ListFriends(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterUserList(friends))
}
