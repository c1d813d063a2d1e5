package handler

import (
	"context"
	"time"

	"imin-server/internal/model"
	"imin-server/internal/service"
	"imin-server/pkg/jwt"
	"imin-server/pkg/logger"
	"imin-server/pkg/response"

	"github.com/gin-gonic/gin"
)

// Services 路由依赖的业务服务
type Services struct {
	Users    *service.UserService
	Presence *service.PresenceService
	Circles  *service.CircleService
	Friends  *service.FriendService
	Chat     *service.ChatService
	Safety   *service.SafetyService
}

// RouterOptions 路由构建参数
// Realtime 为空时不注册 /ws；HealthChecks 中任一失败时 /health 返回 degraded
type RouterOptions struct {
	JWT              *jwt.JWTService
	Services         Services
	Realtime         gin.HandlerFunc
	DefaultAutoReset model.AutoReset
	HealthChecks     map[string]func(context.Context) error
}

// NewRouter 构建完整的 Gin 路由
func NewRouter(opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(logger.RequestLogger())
	router.Use(logger.ErrorLoggerMiddleware())

	router.GET("/health", healthHandler(opts.HealthChecks))

	svc := opts.Services
	users := NewUserHandler(svc.Users, opts.DefaultAutoReset)
	presence := NewPresenceHandler(svc.Presence)
	circles := NewCircleHandler(svc.Circles)
	friends := NewFriendHandler(svc.Friends)
	chat := NewChatHandler(svc.Chat)
	safety := NewSafetyHandler(svc.Safety)

	v1 := router.Group("/api/v1")
	v1.Use(opts.JWT.AuthMiddleware(), EnsureUser(svc.Users))
	{
		v1.GET("/me", users.GetProfile)
		v1.PUT("/me", users.UpdateProfile)
		v1.PUT("/me/settings", users.UpdateSettings)
		v1.DELETE("/me", users.DeleteAccount)

		v1.PUT("/presence", presence.SetPresence)
		v1.GET("/presence/visible", presence.ListVisible)
		v1.GET("/presence/:user_id", presence.GetPresence)

		v1.POST("/circles", circles.Create)
		v1.GET("/circles", circles.List)
		v1.GET("/circles/:id", circles.Get)
		v1.PUT("/circles/:id", circles.Rename)
		v1.DELETE("/circles/:id", circles.Delete)
		v1.POST("/circles/:id/members", circles.AddMember)
		v1.DELETE("/circles/:id/members/:user_id", circles.RemoveMember)

		v1.POST("/friends/requests", friends.SendRequest)
		v1.GET("/friends/requests", friends.ListRequests)
		v1.POST("/friends/requests/:id/respond", friends.Respond)
		v1.GET("/friends", friends.ListFriends)

		v1.POST("/threads", chat.OpenOrCreate)
		v1.POST("/threads/group", chat.CreateGroup)
		v1.GET("/threads", chat.ListThreads)
		v1.DELETE("/threads/:id", chat.DeleteThread)
		v1.GET("/threads/:id/messages", chat.ListMessages)
		v1.POST("/threads/:id/messages", chat.SendMessage)

		v1.POST("/blocks", safety.Block)
		v1.GET("/blocks", safety.ListBlocked)
		v1.DELETE("/blocks/:user_id", safety.Unblock)
		v1.POST("/reports", safety.Report)
	}

	if opts.Realtime != nil {
		router.GET("/ws", opts.JWT.QueryAuthMiddleware(), EnsureUser(svc.Users), opts.Realtime)
	}
	return router
}

// EnsureUser 首次携带有效令牌的请求自动创建用户记录
func EnsureUser(users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := jwt.GetIdentity(c)
		if identity == nil {
			response.Unauthorized(c, "unauthenticated")
			c.Abort()
			return
		}
		if _, err := users.Ensure(c.Request.Context(), service.Identity{
			UserID: identity.UserID,
			Name:   identity.Name,
			Email:  identity.Email,
		}); err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func healthHandler(checks map[string]func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = err.Error()
				status = "degraded"
				continue
			}
			components[name] = "ok"
		}
		response.Success(c, gin.H{
			"status":     status,
			"components": components,
			"time":       time.Now().Format(time.RFC3339),
		})
	}
}

// bindJSON 解析请求体，失败时直接写入 400
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}
