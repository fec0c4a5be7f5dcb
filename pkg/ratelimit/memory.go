package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore はプロセス内マップによるStore実装。
// 単一プロセスで動かす場合のデフォルト。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Sweeper = (*MemoryStore)(nil)
)

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get はキーの現在の状態を返す。
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return e, ok, nil
}

// Increment はキーに対して固定ウィンドウの1ステップを適用する。
func (s *MemoryStore) Increment(_ context.Context, key string, now time.Time, window time.Duration) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.expired(now, window) {
		e = Entry{Count: 1, WindowStart: now}
	} else {
		e.Count++
	}
	s.entries[key] = e
	return e, nil
}

// Reset はキーの状態を削除する。
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Sweep は期限切れのエントリを削除する。
func (s *MemoryStore) Sweep(_ context.Context, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.expired(now, window) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len は保持しているエントリ数を返す。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
