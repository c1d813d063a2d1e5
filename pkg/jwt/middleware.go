package jwt

import (
	"strings"

	"imin-server/pkg/logger"
	"imin-server/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ContextUserIDKey 用户ID在gin.Context中的键名
	ContextUserIDKey = "user_id"
	// ContextIdentityKey 用户身份在gin.Context中的键名
	ContextIdentityKey = "jwt_identity"
)

// AuthMiddleware JWT认证中间件
// 从请求头中提取 Authorization: Bearer <token>，验证后将用户身份存入gin.Context
func (s *JWTService) AuthMiddleware() gin.HandlerFunc {
	return s.authenticate(false)
}

// QueryAuthMiddleware 与 AuthMiddleware 相同，但额外允许 ?token= 查询参数（浏览器 WebSocket 无法设置请求头）
func (s *JWTService) QueryAuthMiddleware() gin.HandlerFunc {
	return s.authenticate(true)
}

func (s *JWTService) authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := ExtractToken(c, allowQuery)
		if !ok {
			response.Unauthorized(c, "missing or malformed bearer token")
			c.Abort()
			return
		}

		identity, err := s.Verify(tokenString)
		if err != nil {
			logger.Warn("jwt verification failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, identity.UserID)
		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// ExtractToken 读取 Bearer 令牌，allowQuery 时请求头缺失则读取 token 查询参数
func ExtractToken(c *gin.Context, allowQuery bool) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		return token, token != ""
	}
	if allowQuery {
		if token := c.Query("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// GetUserID 从gin.Context中获取用户ID
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get(ContextUserIDKey); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}

// GetIdentity 从gin.Context中获取用户身份
func GetIdentity(c *gin.Context) *Identity {
	if v, exists := c.Get(ContextIdentityKey); exists {
		if id, ok := v.(*Identity); ok {
			return id
		}
	}
	return nil
}
