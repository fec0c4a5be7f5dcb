package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/logingate/pkg/apperr"
)

// ErrorHandler は後続のハンドラが記録したエラーをJSONレスポンスに変換するミドルウェアを返す。
// 最も外側に登録する。内部エラーは原因とともにログに出力し、レスポンスには含めない。
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		code := apperr.CodeOf(last.Err)
		if code == apperr.CodeInternal {
			logger.Error("リクエスト処理中にエラーが発生",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", RequestIDFrom(c)),
				zap.Error(last.Err),
			)
		}
		c.JSON(code.HTTPStatus(), gin.H{"error": code.PublicMessage()})
	}
}

// abortWithError はエラーを記録して後続のハンドラを中断する。
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// NotFound は一致するルートが無いリクエストに使用するハンドラを返す。
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		abortWithError(c, apperr.ErrNotFound)
	}
}
