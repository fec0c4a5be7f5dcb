package ratelimit

import (
	"context"
	"time"
)

// Entry はクライアントキーごとのカウンタ状態を表す。
type Entry struct {
	// Count は現在のウィンドウ内のリクエスト数。
	Count int
	// WindowStart は現在のウィンドウの開始時刻。
	WindowStart time.Time
}

// expired はnowの時点でウィンドウが終了しているかを返す。
// 境界ちょうどはまだウィンドウ内として扱う。
func (e Entry) expired(now time.Time, window time.Duration) bool {
	return now.Sub(e.WindowStart) > window
}

// Store はレートリミットのカウンタを保持するストレージ。
// プロセス内のマップから共有キャッシュまで差し替えられるように抽象化している。
type Store interface {
	// Get はキーの現在の状態を返す。存在しない場合はfalseを返す。
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Increment はキーに対して固定ウィンドウの1ステップを原子的に適用する。
	// エントリが無いかウィンドウが終了していればnowを開始時刻としてCount=1で作り直し、
	// それ以外はCountを1増やす。適用後の状態を返す。
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Entry, error)
	// Reset はキーの状態を削除する。
	Reset(ctx context.Context, key string) error
}

// Sweeper は期限切れエントリを削除できるストア。
type Sweeper interface {
	// Sweep はnowの時点でウィンドウが終了しているエントリを削除し、削除件数を返す。
	Sweep(ctx context.Context, now time.Time, window time.Duration) (int, error)
}
