package ratelimit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nao1215/logingate/pkg/migration"
)

//go:embed migrations/*.up.sql
var migrations embed.FS

const incrementSQL = `
INSERT INTO rate_limits (key, count, window_start) VALUES (?, 1, ?)
ON CONFLICT(key) DO UPDATE SET
    count = CASE WHEN ? - rate_limits.window_start > ? THEN 1 ELSE rate_limits.count + 1 END,
    window_start = CASE WHEN ? - rate_limits.window_start > ? THEN ? ELSE rate_limits.window_start END
RETURNING count, window_start`

// SQLiteStore はSQLiteによるStore実装。
// 同一ホスト上の複数プロセスでカウンタを共有する場合に使用する。
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ Store   = (*SQLiteStore)(nil)
	_ Sweeper = (*SQLiteStore)(nil)
)

// OpenSQLite はpathのSQLiteデータベースを開き、スキーマを適用する。
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// 書き込みは直列化されるため接続は1本で足りる。
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteStore(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore は既存の接続からSQLiteStoreを生成し、スキーマを適用する。
func NewSQLiteStore(ctx context.Context, db *sql.DB, logger *zap.Logger) (*SQLiteStore, error) {
	if err := migration.Run(ctx, db, migrations, "migrations", logger); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get はキーの現在の状態を返す。
func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		count int
		start int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT count, window_start FROM rate_limits WHERE key = ?", key,
	).Scan(&count, &start)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("エントリの取得に失敗: %w", err)
	}
	return Entry{Count: count, WindowStart: time.UnixMilli(start)}, true, nil
}

// Increment は1つのUPSERT文で固定ウィンドウの1ステップを適用する。
func (s *SQLiteStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Entry, error) {
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()

	var (
		count int
		start int64
	)
	err := s.db.QueryRowContext(ctx, incrementSQL,
		key, nowMs,
		nowMs, windowMs,
		nowMs, windowMs, nowMs,
	).Scan(&count, &start)
	if err != nil {
		return Entry{}, fmt.Errorf("カウンタの更新に失敗: %w", err)
	}
	return Entry{Count: count, WindowStart: time.UnixMilli(start)}, nil
}

// Reset はキーの状態を削除する。
func (s *SQLiteStore) Reset(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM rate_limits WHERE key = ?", key); err != nil {
		return fmt.Errorf("エントリの削除に失敗: %w", err)
	}
	return nil
}

// Sweep はウィンドウが終了した行を削除する。
func (s *SQLiteStore) Sweep(ctx context.Context, now time.Time, window time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM rate_limits WHERE ? - window_start > ?",
		now.UnixMilli(), window.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("期限切れエントリの削除に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return int(n), nil
}
