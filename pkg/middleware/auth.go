package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/nao1215/logingate/pkg/apperr"
	"github.com/nao1215/logingate/pkg/identity"
)

// identityKey はGinコンテキストにIdentityを格納するキー。
const identityKey = "identity"

// Auth はBearerトークンを検証するGinミドルウェアを返す。
// トークンが無い場合はプロバイダを呼ばずにCodeMissingTokenで中断する。
// 検証に成功した場合はIdentityをコンテキストに設定する。
func Auth(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := identity.ExtractBearer(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, err)
			return
		}

		id, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// IdentityFrom はGinコンテキストからIdentityを取得する。
// Authミドルウェアが事前に適用されている必要がある。
func IdentityFrom(c *gin.Context) (identity.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}

// WithIdentity は認証済みのIdentityを引数で受け取るハンドラをgin.HandlerFuncに変換する。
// Identityが無い場合はハンドラを呼ばずにCodeMissingTokenで中断する。
func WithIdentity(h func(c *gin.Context, id identity.Identity)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			abortWithError(c, apperr.ErrMissingToken)
			return
		}
		h(c, id)
	}
}
