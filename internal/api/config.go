package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nao1215/logingate/pkg/identity"
	"github.com/nao1215/logingate/pkg/middleware"
	"github.com/nao1215/logingate/pkg/ratelimit"
)

// defaultFrontendOrigin は常に許可する開発用フロントエンドのオリジン。
const defaultFrontendOrigin = "http://localhost:3000"

// レートリミットストアの種類。
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config はAPIサーバーの設定。環境変数から読み込む。
type Config struct {
	// SupabaseURL は認証プロバイダのベースURL。
	SupabaseURL string `env:"SUPABASE_URL,required,notEmpty"`
	// ServiceRoleKey はプロバイダに送るサービスキー。
	ServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY,required,notEmpty"`
	// JWTSecret が設定されている場合はトークンをローカルで検証する。
	JWTSecret string `env:"SUPABASE_JWT_SECRET"`
	// JWTAudience はローカル検証時に要求するaudクレーム。空なら検証しない。
	JWTAudience string `env:"SUPABASE_JWT_AUDIENCE" envDefault:"authenticated"`

	Port           string   `env:"PORT" envDefault:"5000"`
	FrontendURL    string   `env:"FRONTEND_URL"`
	ExtraOrigins   []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	RateLimitStore  string        `env:"RATE_LIMIT_STORE" envDefault:"memory"`
	SweepInterval   time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" envDefault:"1m"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"ratelimit.db"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`

	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"30s"`
	JSONBodyLimit   int64         `env:"JSON_BODY_LIMIT" envDefault:"102400"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	GinMode         string        `env:"GIN_MODE" envDefault:"release"`
}

// LoadConfig はカレントディレクトリの.envがあれば読み込んだ上で、環境変数から設定を読み込む。
func LoadConfig() (Config, error) {
	// .envが無いのは通常の状態。
	_ = godotenv.Load()
	return ParseConfig(nil)
}

// ParseConfig はenvironから設定を読み込み検証する。environがnilの場合はプロセスの環境変数を使う。
func ParseConfig(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を検証する。
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORTが空です"))
	}
	if c.RateLimitMax <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MAXは正の値である必要があります: %d", c.RateLimitMax))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_WINDOWは正の値である必要があります: %s", c.RateLimitWindow))
	}
	switch c.RateLimitStore {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_STOREが不正です: %q", c.RateLimitStore))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVELが不正です: %w", err))
	}
	return errors.Join(errs...)
}

// AllowedOrigins はCORSで許可するオリジンの一覧を返す。
func (c Config) AllowedOrigins() []string {
	origins := []string{defaultFrontendOrigin}
	seen := map[string]struct{}{defaultFrontendOrigin: {}}
	add := func(o string) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			return
		}
		if _, ok := seen[o]; ok {
			return
		}
		seen[o] = struct{}{}
		origins = append(origins, o)
	}

	add(c.FrontendURL)
	for _, o := range c.ExtraOrigins {
		add(o)
	}
	return origins
}

// LimiterConfig はレートリミッタの設定を返す。
func (c Config) LimiterConfig() ratelimit.Config {
	return ratelimit.Config{MaxRequests: c.RateLimitMax, Window: c.RateLimitWindow}
}

// BodyLimit はJSONボディの上限を返す。
func (c Config) BodyLimit() int64 {
	if c.JSONBodyLimit <= 0 {
		return middleware.DefaultJSONBodyLimit
	}
	return c.JSONBodyLimit
}

// NewLogger は設定されたレベルのJSONロガーを生成する。
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVELが不正です: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// NewVerifier はトークン検証器を返す。
// SUPABASE_JWT_SECRETが設定されていればローカル検証、無ければプロバイダへの問い合わせを使う。
func (c Config) NewVerifier() identity.Verifier {
	if c.JWTSecret != "" {
		return identity.NewJWTVerifier(c.JWTSecret, c.JWTAudience)
	}
	return identity.NewProviderVerifier(c.SupabaseURL, c.ServiceRoleKey, c.ProviderTimeout)
}

// OpenStore は設定されたレートリミットストアを開く。
// 返すio.Closerはサーバー停止時に呼び出す。
func (c Config) OpenStore(ctx context.Context, logger *zap.Logger) (ratelimit.Store, io.Closer, error) {
	switch c.RateLimitStore {
	case StoreSQLite:
		s, err := ratelimit.OpenSQLite(ctx, c.SQLitePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("SQLiteストアの初期化に失敗: %w", err)
		}
		return s, s, nil
	case StoreRedis:
		s, err := ratelimit.OpenRedis(ctx, ratelimit.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("Redisストアの初期化に失敗: %w", err)
		}
		return s, s, nil
	default:
		return ratelimit.NewMemoryStore(), closerFunc(func() error { return nil }), nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
