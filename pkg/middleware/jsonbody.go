package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/logingate/pkg/apperr"
)

// DefaultJSONBodyLimit はJSONボディのデフォルト上限（100KiB）。
const DefaultJSONBodyLimit int64 = 100 << 10

// JSONBody はContent-TypeがJSONのリクエストボディを検査するミドルウェアを返す。
// 上限を超えるボディはCodeBodyTooLarge、構文が不正なボディはCodeInvalidBodyで中断する。
// 検査後のボディは後続のハンドラが再度読めるように戻す。
func JSONBody(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		limit = DefaultJSONBodyLimit
	}

	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 || !isJSONContentType(c.ContentType()) {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
		if err != nil {
			abortWithError(c, apperr.Wrap(apperr.CodeInvalidBody, "failed to read body", err))
			return
		}
		if int64(len(body)) > limit {
			abortWithError(c, apperr.New(apperr.CodeBodyTooLarge, "body exceeds limit"))
			return
		}
		if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
			abortWithError(c, apperr.New(apperr.CodeInvalidBody, "malformed JSON body"))
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

func isJSONContentType(ct string) bool {
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}
