package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/logingate/pkg/apperr"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニックの値とスタックトレースをログに出力し、内部エラーとして記録する。
// ErrorHandlerより内側に登録する。
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("パニックから回復しました",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				abortWithError(c, apperr.Wrap(apperr.CodeInternal, "panic recovered", fmt.Errorf("%v", r)))
			}
		}()
		c.Next()
	}
}
