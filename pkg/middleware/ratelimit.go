package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/logingate/pkg/apperr"
	"github.com/nao1215/logingate/pkg/ratelimit"
)

// Admitter はクライアントキーのリクエストを通してよいか判定する。
// *ratelimit.Limiter が実装する。
type Admitter interface {
	Admit(ctx context.Context, clientKey string, now time.Time) (ratelimit.Decision, error)
}

// RateLimit はクライアントIPごとにリクエスト数を制限するミドルウェアを返す。
// 上限超過時はCodeRateLimitedで中断する。Retry-Afterは付与しない。
// ストアのエラーはCodeInternalとして扱い、リクエストを通さない。
func RateLimit(limiter Admitter, now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}

	return func(c *gin.Context) {
		d, err := limiter.Admit(c.Request.Context(), c.ClientIP(), now())
		if err != nil {
			abortWithError(c, apperr.Wrap(apperr.CodeInternal, "rate limiter failed", err))
			return
		}
		if !d.Allowed {
			abortWithError(c, apperr.ErrRateLimited)
			return
		}
		c.Next()
	}
}
