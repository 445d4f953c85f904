package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"go-soilsync/models"
	"go-soilsync/utils"
)

// 上下文中保存调用者的 key
const (
	ContextUser   = "user"
	ContextUserID = "userID"
)

// Claims 外部认证服务签发的令牌声明
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware 解析 Bearer 令牌。
// 没有 Authorization 头或未配置密钥时按匿名用户处理；令牌无效时返回 401。
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		if authorization == "" || secret == "" {
			setUser(c, models.User{Role: models.RoleAnonymous})
			c.Next()
			return
		}

		parts := strings.SplitN(authorization, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer")) {
			utils.Unauthorized(c, "Authorization header format must be Bearer {token}")
			c.Abort()
			return
		}

		user, err := ParseToken(parts[1], secret)
		if err != nil {
			utils.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// ParseToken 校验 HS256 令牌并返回调用者。匿名角色的令牌（如前端的 anon key）得到空 ID。
func ParseToken(tokenString, secret string) (models.User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return models.User{}, err
	}
	if !token.Valid {
		return models.User{}, errors.New("token is not valid")
	}

	if claims.Role == "" {
		claims.Role = models.RoleUser
	}
	if claims.Role == models.RoleAnonymous {
		return models.User{Role: models.RoleAnonymous}, nil
	}
	if claims.Subject == "" {
		return models.User{}, errors.New("token has no subject")
	}
	return models.User{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

func setUser(c *gin.Context, user models.User) {
	c.Set(ContextUser, user)
	c.Set(ContextUserID, user.ID)
}

// CurrentUser 取出 AuthMiddleware 保存的调用者，未经过中间件时为匿名
func CurrentUser(c *gin.Context) models.User {
	if v, ok := c.Get(ContextUser); ok {
		if user, ok := v.(models.User); ok {
			return user
		}
	}
	return models.User{Role: models.RoleAnonymous}
}
