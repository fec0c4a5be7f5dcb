package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	want := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"X-XSS-Protection":          "1; mode=block",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	}

	check := func(t *testing.T, w *httptest.ResponseRecorder) {
		t.Helper()
		for k, v := range want {
			if got := w.Header().Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
	}

	t.Run("正常なレスポンスにセキュリティヘッダーが付くこと", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(SecurityHeaders())
		router.GET("/ok", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

		check(t, w)
	})

	t.Run("CORSで拒否されたレスポンスにもセキュリティヘッダーが付くこと", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(SecurityHeaders(), CORS([]string{"http://localhost:3000"}, zap.NewNop()))
		router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
		check(t, w)
	})
}
