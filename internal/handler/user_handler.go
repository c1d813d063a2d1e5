package handler

import (
	"imin-server/internal/model"
	"imin-server/internal/service"
	"imin-server/pkg/jwt"
	"imin-server/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler 个人资料与设置
type UserHandler struct {
	service          *service.UserService
	defaultAutoReset model.AutoReset
}

func NewUserHandler(s *service.UserService, defaultAutoReset model.AutoReset) *UserHandler {
	return &UserHandler{service: s, defaultAutoReset: defaultAutoReset}
}

// GetProfile 获取当前用户资料
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.service.GetProfile(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.Profile(user, h.defaultAutoReset))
}

// UpdateProfile 修改名称与 handle
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name   *string `json:"name"`
		Handle *string `json:"handle"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.UpdateProfile(c.Request.Context(), jwt.GetUserID(c), service.ProfileInput{
		Name:   req.Name,
		Handle: req.Handle,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.Profile(user, h.defaultAutoReset))
}

// UpdateSettings 修改自动重置、可搜索与时区设置
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		AutoReset          *model.AutoReset `json:"auto_reset"`
		SearchableByHandle *bool            `json:"searchable_by_handle"`
		TimeZone           *string          `json:"time_zone"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.UpdateSettings(c.Request.Context(), jwt.GetUserID(c), service.SettingsInput{
		AutoReset:          req.AutoReset,
		SearchableByHandle: req.SearchableByHandle,
		TimeZone:           req.TimeZone,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.Profile(user, h.defaultAutoReset))
}

// DeleteAccount 注销账号并清除其全部数据
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	if err := h.service.DeleteAccount(c.Request.Context(), jwt.GetUserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}
