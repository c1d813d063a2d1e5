package jwt

import (
	"errors"
	"fmt"
	"time"

	"imin-server/config"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// JWTService 外部身份提供方签发的访问令牌的校验（HS256）
// Subject 为用户ID，名称与邮箱放在 Data 中
// GenerateToken 仅用于开发环境与测试（tools/issue_token）
type JWTService struct {
	secretKey   []byte        // 对称密钥
	issuer      string        // 签发者
	expireAfter time.Duration // 过期时间
}

// CustomClaims 自定义声明载荷
// Data 用于扩展非敏感业务字段
type CustomClaims struct {
	Data map[string]interface{} `json:"data,omitempty"`
	jwtv5.RegisteredClaims
}

// Identity 令牌中解析出的用户身份
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// NewJWTService 创建 JWT 服务
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secretKey:   []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		expireAfter: cfg.ExpireTime,
	}
}

// GenerateToken 生成访问令牌
// userID 作为 Subject 存入标准声明，name/email 写入 Data
func (s *JWTService) GenerateToken(userID, name, email string) (string, error) {
	if userID == "" {
		return "", errors.New("userID is required")
	}

	now := time.Now()
	data := map[string]interface{}{}
	if name != "" {
		data["name"] = name
	}
	if email != "" {
		data["email"] = email
	}

	claims := &CustomClaims{
		Data: data,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(s.expireAfter)),
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

// ValidateToken 校验并解析令牌
func (s *JWTService) ValidateToken(tokenString string) (*CustomClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token is empty")
	}
	claims := &CustomClaims{}
	parsedToken, err := jwtv5.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwtv5.Token) (interface{}, error) {
			// 验证签名方法
			if token.Method != jwtv5.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
		jwtv5.WithIssuer(s.issuer),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	if !parsedToken.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Verify 校验令牌并返回用户身份
func (s *JWTService) Verify(tokenString string) (*Identity, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims.Identity(), nil
}

// Identity 从声明中提取用户身份
func (c *CustomClaims) Identity() *Identity {
	id := &Identity{UserID: c.Subject}
	if c.Data != nil {
		if v, ok := c.Data["name"].(string); ok {
			id.Name = v
		}
		if v, ok := c.Data["email"].(string); ok {
			id.Email = v
		}
	}
	return id
}
