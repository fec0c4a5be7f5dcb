package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/logingate/pkg/apperr"
)

// CORS は許可リストに含まれるオリジンからのクロスオリジンリクエストだけを通すGinミドルウェアを返す。
// Originヘッダーの無いリクエスト（ブラウザ以外や同一オリジン）はそのまま通す。
// 許可リストに無いオリジンはCORSヘッダーを付けずにCodeCORSRejectedで中断する。
func CORS(allowedOrigins []string, logger *zap.Logger) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o != "" {
			originsSet[o] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originsSet[origin]; !ok {
				logger.Warn("CORSで許可されていないオリジンからのリクエストを拒否",
					zap.String("origin", origin),
					zap.String("path", c.Request.URL.Path),
				)
				abortWithError(c, apperr.New(apperr.CodeCORSRejected, "origin not allowed: "+origin))
				return
			}
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
			c.Writer.Header().Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
