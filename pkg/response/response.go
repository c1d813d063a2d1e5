package response

import (
	"net/http"

	"imin-server/pkg/apperr"
	"imin-server/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`             // 状态码：0表示成功，其他为HTTP状态码
	Message string      `json:"message"`          // 响应消息
	Reason  string      `json:"reason,omitempty"` // 业务错误码，如 VALIDATION
	Data    interface{} `json:"data,omitempty"`   // 响应数据
	Error   string      `json:"error,omitempty"`  // 错误详情（仅在开发环境显示）
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error 错误响应，HTTP 状态码与 code 一致
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Code:    status,
		Message: message,
	})
}

// FromError 将业务错误映射为 HTTP 状态码
func FromError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := StatusOf(code)

	resp := Response{
		Code:    status,
		Message: err.Error(),
		Reason:  string(code),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		// 内部错误不向调用方暴露细节
		resp.Message = "internal server error"
		if gin.Mode() == gin.DebugMode {
			resp.Error = err.Error()
		}
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

// StatusOf 业务错误码对应的 HTTP 状态码
func StatusOf(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeAuthorization, apperr.CodeBlocked:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeInvalidRecipient:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    http.StatusBadRequest,
		Message: message,
		Reason:  string(apperr.CodeValidation),
	})
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// NotFound 404错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}
