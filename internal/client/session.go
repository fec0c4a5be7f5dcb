package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrNoSession はキャッシュされたセッションが無い、または期限切れであることを表す。
var ErrNoSession = errors.New("ログインしていません")

// User はセッションに紐づくユーザー。
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session は認証プロバイダが発行したセッション。
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Expired はnowの時点でアクセストークンが期限切れかを返す。
// ExpiresAtが無いセッションは期限切れとして扱わない。
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt > 0 && now.Unix() >= s.ExpiresAt
}

// SessionProvider は現在のセッションを返す。
type SessionProvider interface {
	CurrentSession(ctx context.Context) (Session, error)
}

// FileSessionStore はセッションをJSONファイルにキャッシュする。
type FileSessionStore struct {
	path string
	now  func() time.Time
}

var _ SessionProvider = (*FileSessionStore)(nil)

// NewFileSessionStore は新しいFileSessionStoreを生成する。
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path, now: time.Now}
}

// DefaultSessionPath はユーザー設定ディレクトリ配下のセッションファイルのパスを返す。
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("設定ディレクトリの取得に失敗: %w", err)
	}
	return filepath.Join(dir, "logingate", "session.json"), nil
}

// Path はセッションファイルのパスを返す。
func (s *FileSessionStore) Path() string {
	return s.path
}

// CurrentSession はキャッシュされたセッションを返す。
// ファイルが無い場合と期限切れの場合はErrNoSessionを返す。トークンの更新は行わない。
func (s *FileSessionStore) CurrentSession(_ context.Context) (Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("セッションファイルの読み込みに失敗: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("セッションファイルが壊れています: %w", err)
	}
	if sess.AccessToken == "" || sess.Expired(s.now()) {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Save はセッションを所有者のみ読み書きできるファイルに保存する。
func (s *FileSessionStore) Save(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("セッションディレクトリの作成に失敗: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("セッションのシリアライズに失敗: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("セッションファイルの書き込みに失敗: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("セッションファイルの書き込みに失敗: %w", err)
	}
	return nil
}

// Delete はセッションファイルを削除する。ファイルが無い場合は何もしない。
func (s *FileSessionStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("セッションファイルの削除に失敗: %w", err)
	}
	return nil
}
