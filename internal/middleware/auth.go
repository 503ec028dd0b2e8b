package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// 身份上下文键
const UserIDKey = "user_id"

// Identity 身份提取中间件
// 令牌校验由上游网关完成，这里只把 Bearer 令牌携带的用户 ID 放进请求上下文
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token != "" {
				c.Set(UserIDKey, token)
			}
		}
		c.Next()
	}
}

// UserID 读取请求上下文里的用户 ID，未登录时返回空串
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
