// APIサーバーのエントリポイント。
// 認証プロバイダが発行したBearerトークンを検証し、保護されたエンドポイントを提供する。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/logingate/internal/api"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "APIサーバーの起動に失敗: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := api.LoadConfig()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closer, err := cfg.OpenStore(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Warn("レートリミットストアのクローズに失敗", zap.Error(err))
		}
	}()

	server, err := api.NewServer(cfg, store, cfg.NewVerifier(), logger)
	if err != nil {
		return err
	}

	logger.Info("APIサービスを起動します",
		zap.String("port", cfg.Port),
		zap.String("rate_limit_store", cfg.RateLimitStore),
		zap.Strings("allowed_origins", cfg.AllowedOrigins()),
	)
	return server.Run(ctx)
}
