package middleware

import "github.com/gin-gonic/gin"

// securityHeaders はすべてのレスポンスに付与するヘッダー。
var securityHeaders = [...][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
}

// SecurityHeaders はボディが書き込まれる前に固定のセキュリティヘッダーを付与するミドルウェアを返す。
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range securityHeaders {
			c.Header(h[0], h[1])
		}
		c.Next()
	}
}
