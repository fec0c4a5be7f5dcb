package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const callbackPath = "/callback"

// callbackResult はブラウザからのコールバックの結果。
type callbackResult struct {
	code string
	err  error
}

// Login はPKCEフローでGoogleログインを行い、取得したセッションを保存する。
// openは認可URLをブラウザで開く関数で、ループバックのコールバックを受け取るかctxが終わるまで待つ。
func (c *Client) Login(ctx context.Context, open func(authURL string) error) (Session, error) {
	p, err := newPKCE()
	if err != nil {
		return Session{}, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return Session{}, fmt.Errorf("コールバック用ポートの確保に失敗: %w", err)
	}

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackRouter(results),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Warn("コールバックサーバーが停止", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	redirectTo := "http://" + ln.Addr().String() + callbackPath
	authURL := c.AuthorizeURL(redirectTo, p.challenge)
	c.logger.Debug("ログインを開始", zap.String("redirect_to", redirectTo))
	if err := open(authURL); err != nil {
		return Session{}, fmt.Errorf("ブラウザの起動に失敗: %w", err)
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return Session{}, fmt.Errorf("ログインが完了しませんでした: %w", ctx.Err())
	case res = <-results:
	}
	if res.err != nil {
		return Session{}, res.err
	}

	sess, err := c.exchangeCode(ctx, res.code, p.verifier)
	if err != nil {
		return Session{}, err
	}
	if err := c.sessions.Save(sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// callbackRouter はプロバイダからのリダイレクトを受け取るルーターを返す。
// 最初の結果だけをresultsに送る。
func callbackRouter(results chan<- callbackResult) http.Handler {
	router := gin.New()
	router.GET(callbackPath, func(c *gin.Context) {
		var res callbackResult
		switch {
		case c.Query("error") != "":
			res.err = fmt.Errorf("ログインが拒否されました: %s %s", c.Query("error"), c.Query("error_description"))
		case c.Query("code") == "":
			res.err = errors.New("コールバックに認可コードがありません")
		default:
			res.code = c.Query("code")
		}

		select {
		case results <- res:
		default:
		}

		if res.err != nil {
			c.String(http.StatusBadRequest, "Login failed. You can close this window.")
			return
		}
		c.String(http.StatusOK, "Login complete. You can close this window.")
	})
	return router
}
