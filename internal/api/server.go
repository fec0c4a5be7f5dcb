package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/logingate/pkg/identity"
	"github.com/nao1215/logingate/pkg/middleware"
	"github.com/nao1215/logingate/pkg/ratelimit"
)

const (
	// timestampLayout はレスポンスとログに使うISO 8601（ミリ秒、UTC）形式。
	timestampLayout = "2006-01-02T15:04:05.000Z"
	// shutdownTimeout は停止時に処理中のリクエストを待つ時間。
	shutdownTimeout = 10 * time.Second
)

// Server はAPIサーバーのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// logger は構造化ロガー。
	logger *zap.Logger
	// limiter は/api配下に適用するレートリミッタ。
	limiter *ratelimit.Limiter
	// verifier はBearerトークンの検証器。
	verifier identity.Verifier
	// sweepInterval は期限切れエントリの掃除間隔。0以下なら掃除しない。
	sweepInterval time.Duration
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

// Option はServerの任意設定。
type Option func(*Server)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer は新しいAPIサーバーを生成する。
func NewServer(cfg Config, store ratelimit.Store, verifier identity.Verifier, logger *zap.Logger, opts ...Option) (*Server, error) {
	if verifier == nil {
		return nil, errors.New("トークン検証器が指定されていません")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter, err := ratelimit.New(store, cfg.LimiterConfig())
	if err != nil {
		return nil, fmt.Errorf("レートリミッタの初期化に失敗: %w", err)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIESが不正です: %w", err)
	}
	router.HandleMethodNotAllowed = false

	s := &Server{
		router:        router,
		port:          cfg.Port,
		logger:        logger,
		limiter:       limiter,
		verifier:      verifier,
		sweepInterval: cfg.SweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.AllowedOrigins(), logger))
	router.Use(middleware.JSONBody(cfg.BodyLimit()))
	s.setupRoutes()

	return s, nil
}

// Handler はサーバーのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// ヘルスチェック（認証・レートリミットなし）
	s.router.GET("/health", s.handleHealth())

	api := s.router.Group("/api")
	api.Use(middleware.RateLimit(s.limiter, s.now))
	{
		api.GET("/protected", middleware.Auth(s.verifier), middleware.WithIdentity(s.handleProtected))
	}

	s.router.NoRoute(middleware.NotFound())
}

// handleHealth は稼働状態と現在時刻を返すハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": s.now().UTC().Format(timestampLayout),
		})
	}
}

// handleProtected は認証済みユーザーにだけ固定のメッセージを返す。
// アクセスのたびにメールアドレス、時刻、IPを1件ログに残す。
func (s *Server) handleProtected(c *gin.Context, id identity.Identity) {
	s.logger.Info("protected endpoint accessed",
		zap.String("email", id.Email),
		zap.String("timestamp", s.now().UTC().Format(timestampLayout)),
		zap.String("ip", c.ClientIP()),
	)
	c.JSON(http.StatusOK, gin.H{"message": "hello"})
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
// キャンセル後は処理中のリクエストを待ってから停止する。
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.runSweeper(sweepCtx)

	serveErr := make(chan error, 1)
	s.logger.Info("APIサーバーを起動します", zap.String("addr", httpServer.Addr))
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("APIサーバーを停止します")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
	}
}

// runSweeper は一定間隔でレートリミットの期限切れエントリを削除する。
func (s *Server) runSweeper(ctx context.Context) {
	if s.sweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep は期限切れエントリを1回削除する。
func (s *Server) sweep(ctx context.Context) {
	n, err := s.limiter.Sweep(ctx, s.now())
	if err != nil {
		s.logger.Warn("レートリミットの掃除に失敗", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Debug("期限切れのレートリミットを削除", zap.Int("removed", n))
	}
}
