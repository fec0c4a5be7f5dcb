package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// incrementScript はハッシュ上で固定ウィンドウの1ステップを原子的に適用する。
// KEYS[1]=キー, ARGV[1]=現在時刻(ms), ARGV[2]=ウィンドウ長(ms)
// 戻り値は {count, window_start}。
var incrementScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local start = redis.call('HGET', KEYS[1], 'start')
if (not start) or (now - tonumber(start) > window) then
  redis.call('HSET', KEYS[1], 'count', 1, 'start', now)
  redis.call('PEXPIRE', KEYS[1], window + 1000)
  return {1, now}
end
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, tonumber(start)}
`)

// RedisConfig はRedis接続の設定。
type RedisConfig struct {
	// Addr は host:port 形式の接続先。
	Addr string
	// Password は認証パスワード。
	Password string
	// DB はデータベース番号。
	DB int
	// Prefix はキーの接頭辞。
	Prefix string
}

// RedisStore はRedisによるStore実装。
// 複数インスタンスでカウンタを共有する場合に使用する。
// 期限切れはキーのTTLで消えるためSweepは不要。
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// OpenRedis はRedisに接続し、疎通を確認してRedisStoreを返す。
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("Redisのアドレスが指定されていません")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redisへの疎通確認に失敗: %w", err)
	}

	return NewRedisStore(client, cfg.Prefix), nil
}

// NewRedisStore は既存のクライアントからRedisStoreを生成する。
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Close はクライアントを閉じる。
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get はキーの現在の状態を返す。
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	vals, err := s.client.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("エントリの取得に失敗: %w", err)
	}
	if len(vals) == 0 {
		return Entry{}, false, nil
	}

	count, err := strconv.Atoi(vals["count"])
	if err != nil {
		return Entry{}, false, fmt.Errorf("countの解析に失敗: %w", err)
	}
	start, err := strconv.ParseInt(vals["start"], 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("startの解析に失敗: %w", err)
	}
	return Entry{Count: count, WindowStart: time.UnixMilli(start)}, true, nil
}

// Increment はLuaスクリプトで固定ウィンドウの1ステップを適用する。
func (s *RedisStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Entry, error) {
	res, err := incrementScript.Run(ctx, s.client,
		[]string{s.prefix + key},
		now.UnixMilli(), window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Entry{}, fmt.Errorf("カウンタの更新に失敗: %w", err)
	}
	if len(res) != 2 {
		return Entry{}, fmt.Errorf("スクリプトの戻り値が不正: %v", res)
	}
	return Entry{Count: int(res[0]), WindowStart: time.UnixMilli(res[1])}, nil
}

// Reset はキーを削除する。
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("エントリの削除に失敗: %w", err)
	}
	return nil
}
