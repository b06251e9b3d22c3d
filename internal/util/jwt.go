package util

import (
	"careiq_backend/internal/model"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims 外部身份提供方签发的令牌声明，subject 唯一标识员工
type IdentityClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenKeys HS256 共享密钥或 RS256 公钥，二者至少配置其一
type TokenKeys struct {
	Secret    []byte
	PublicKey *rsa.PublicKey
	Issuer    string
	Audience  string
}

// GenerateIdentityToken 使用共享密钥签发令牌，供本地调试和测试使用
func GenerateIdentityToken(subject, email, name, secret string, expiration time.Duration) (string, error) {
	claims := &IdentityClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseIdentityToken(tokenString string, keys TokenKeys) (*IdentityClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(keys.validMethods()),
		jwt.WithExpirationRequired(),
	}
	if keys.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(keys.Issuer))
	}
	if keys.Audience != "" {
		opts = append(opts, jwt.WithAudience(keys.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA:
			return keys.PublicKey, nil
		case *jwt.SigningMethodHMAC:
			return keys.Secret, nil
		}
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (k TokenKeys) validMethods() []string {
	var methods []string
	if k.PublicKey != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	if len(k.Secret) > 0 {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	return methods
}

// GetUserFromContext 返回认证中间件写入的当前用户
func GetUserFromContext(c *gin.Context) *model.User {
	user, exists := c.Get("user")
	if !exists {
		return nil
	}
	u, ok := user.(*model.User)
	if !ok {
		return nil
	}
	return u
}
