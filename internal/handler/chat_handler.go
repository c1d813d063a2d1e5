package handler

import (
	"imin-server/internal/service"
	"imin-server/pkg/jwt"
	"imin-server/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChatHandler 会话与消息
type ChatHandler struct {
	service *service.ChatService
}

func NewChatHandler(s *service.ChatService) *ChatHandler {
	return &ChatHandler{service: s}
}

// OpenOrCreate 打开与某个用户的私聊，不存在时创建；双方并发调用得到同一个会话
func (h *ChatHandler) OpenOrCreate(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.service.OpenOrCreateThread(c.Request.Context(), jwt.GetUserID(c), req.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterThread(view.Thread, view.DisplayTitle))
}

// CreateGroup 创建群聊
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	var req struct {
		ParticipantIDs []string `json:"participant_ids" binding:"required"`
		Title          string   `json:"title"`
	}
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.service.CreateGroupThread(c.Request.Context(), jwt.GetUserID(c), req.ParticipantIDs, req.Title)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, response.FilterThread(view.Thread, view.DisplayTitle))
}

// ListThreads 会话列表，按最近更新排序
func (h *ChatHandler) ListThreads(c *gin.Context) {
	views, err := h.service.ListThreads(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	infos := make([]*response.ThreadInfo, 0, len(views))
	for _, v := range views {
		infos = append(infos, response.FilterThread(v.Thread, v.DisplayTitle))
	}
	response.Success(c, infos)
}

// DeleteThread 退出会话
func (h *ChatHandler) DeleteThread(c *gin.Context) {
	if err := h.service.DeleteThread(c.Request.Context(), c.Param("id"), jwt.GetUserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// SendMessage 发送消息
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		Body string `json:"body"`
	}
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.service.SendMessage(c.Request.Context(), c.Param("id"), jwt.GetUserID(c), req.Body)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, response.FilterMessageInfo(msg))
}

// ListMessages 消息历史
func (h *ChatHandler) ListMessages(c *gin.Context) {
	list, err := h.service.ListMessages(c.Request.Context(), c.Param("id"), jwt.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.FilterMessageList(list))
}
