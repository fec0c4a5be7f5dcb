package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultMaxRequests は1ウィンドウあたりのデフォルト上限。
	DefaultMaxRequests = 100
	// DefaultWindow はデフォルトのウィンドウ長。
	DefaultWindow = 15 * time.Minute
)

// Config は固定ウィンドウの設定。
type Config struct {
	// MaxRequests は1ウィンドウ内で許可するリクエスト数。
	MaxRequests int
	// Window はウィンドウ長。
	Window time.Duration
}

// Decision はAdmitの判定結果。
type Decision struct {
	// Allowed はリクエストを通してよいか。
	Allowed bool
	// Count は判定後のウィンドウ内カウント。
	Count int
	// Limit は適用された上限。
	Limit int
	// WindowStart は現在のウィンドウの開始時刻。
	WindowStart time.Time
}

// Limiter は固定ウィンドウ方式のレートリミッタ。
// ウィンドウ境界をまたぐバーストでは最大で上限の2倍まで通る。
type Limiter struct {
	store  Store
	config Config
}

// New は新しいLimiterを生成する。
func New(store Store, cfg Config) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ストアが指定されていません")
	}
	if cfg.MaxRequests <= 0 {
		return nil, fmt.Errorf("MaxRequestsは正の値である必要があります: %d", cfg.MaxRequests)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("Windowは正の値である必要があります: %s", cfg.Window)
	}
	return &Limiter{store: store, config: cfg}, nil
}

// Config は適用中の設定を返す。
func (l *Limiter) Config() Config {
	return l.config
}

// Admit はclientKeyのリクエストをnowの時点で通してよいか判定する。
// 上限を超えた後はウィンドウが切り替わるまですべて拒否する。
func (l *Limiter) Admit(ctx context.Context, clientKey string, now time.Time) (Decision, error) {
	key := normalizeKey(clientKey)
	e, err := l.store.Increment(ctx, key, now, l.config.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("レートリミットの更新に失敗: key=%s: %w", key, err)
	}
	return Decision{
		Allowed:     e.Count <= l.config.MaxRequests,
		Count:       e.Count,
		Limit:       l.config.MaxRequests,
		WindowStart: e.WindowStart,
	}, nil
}

// Reset はclientKeyのカウンタを削除する。
func (l *Limiter) Reset(ctx context.Context, clientKey string) error {
	return l.store.Reset(ctx, normalizeKey(clientKey))
}

// Sweep はストアが対応していれば期限切れエントリを削除する。
func (l *Limiter) Sweep(ctx context.Context, now time.Time) (int, error) {
	sw, ok := l.store.(Sweeper)
	if !ok {
		return 0, nil
	}
	return sw.Sweep(ctx, now, l.config.Window)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
