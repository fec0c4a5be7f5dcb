package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nao1215/logingate/pkg/httpclient"
)

const (
	// DefaultAPIURL はAPIサーバーのデフォルトのベースURL。
	DefaultAPIURL = "http://localhost:5000"

	protectedPath = "/api/protected"
	authorizePath = "/auth/v1/authorize"
	tokenPath     = "/auth/v1/token"
	logoutPath    = "/auth/v1/logout"
)

// SessionCache はセッションの取得、保存、削除を行う。
type SessionCache interface {
	SessionProvider
	Save(sess Session) error
	Delete() error
}

// Config はクライアントの接続先。
type Config struct {
	// APIURL はAPIサーバーのベースURL。
	APIURL string
	// ProviderURL は認証プロバイダのベースURL。
	ProviderURL string
	// AnonKey はプロバイダに送る公開キー。
	AnonKey string
	// Timeout は1リクエストのタイムアウト。0ならデフォルト値。
	Timeout time.Duration
}

// Client はログインデモのAPIサーバーと認証プロバイダを呼び出すクライアント。
type Client struct {
	api         *httpclient.Client
	provider    *httpclient.Client
	providerURL string
	sessions    SessionCache
	logger      *zap.Logger
	now         func() time.Time
}

// Option はClientの任意設定。
type Option func(*Client)

// WithLogger はロガーを設定する。
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New は新しいClientを生成する。
func New(cfg Config, sessions SessionCache, opts ...Option) (*Client, error) {
	if sessions == nil {
		return nil, errors.New("セッションキャッシュが指定されていません")
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	providerURL := strings.TrimRight(cfg.ProviderURL, "/")

	c := &Client{
		api:         httpclient.New(apiURL, httpclient.WithTimeout(cfg.Timeout)),
		providerURL: providerURL,
		provider: httpclient.New(providerURL,
			httpclient.WithTimeout(cfg.Timeout),
			httpclient.WithDefaultHeader("apikey", cfg.AnonKey),
		),
		sessions: sessions,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// protectedResponse は保護エンドポイントの応答。
type protectedResponse struct {
	Message string `json:"message"`
}

// FetchProtected は現在のセッションのアクセストークンを付けて保護エンドポイントを1回呼び出し、
// 返されたメッセージを返す。
func (c *Client) FetchProtected(ctx context.Context) (string, error) {
	sess, err := c.sessions.CurrentSession(ctx)
	if err != nil {
		return "", err
	}

	var resp protectedResponse
	if err := c.api.GetJSON(ctx, protectedPath, &resp, httpclient.WithBearer(sess.AccessToken)); err != nil {
		return "", fmt.Errorf("保護エンドポイントの呼び出しに失敗: %w", err)
	}
	c.logger.Debug("保護エンドポイントの応答を受信", zap.String("message", resp.Message))
	return resp.Message, nil
}

// AuthorizeURL はGoogleでのログインを開始するプロバイダのURLを返す。
func (c *Client) AuthorizeURL(redirectTo, codeChallenge string) string {
	q := url.Values{}
	q.Set("provider", "google")
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "s256")
	return c.providerURL + authorizePath + "?" + q.Encode()
}

// exchangeCode は認可コードをセッションに交換する。
func (c *Client) exchangeCode(ctx context.Context, code, verifier string) (Session, error) {
	body := map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	}
	var sess Session
	err := c.provider.PostJSON(ctx, tokenPath, body, &sess,
		httpclient.WithQuery(url.Values{"grant_type": {"pkce"}}),
	)
	if err != nil {
		return Session{}, fmt.Errorf("認可コードの交換に失敗: %w", err)
	}
	if sess.AccessToken == "" {
		return Session{}, errors.New("認可コードの交換に失敗: アクセストークンがありません")
	}
	if sess.ExpiresAt == 0 && sess.ExpiresIn > 0 {
		sess.ExpiresAt = c.now().Unix() + sess.ExpiresIn
	}
	return sess, nil
}

// Logout はローカルのセッションを削除し、プロバイダのセッションを失効させる。
// プロバイダの呼び出しに失敗してもローカルの削除は行う。
func (c *Client) Logout(ctx context.Context) error {
	sess, err := c.sessions.CurrentSession(ctx)
	if err != nil && !errors.Is(err, ErrNoSession) {
		c.logger.Warn("セッションの読み込みに失敗", zap.Error(err))
	}

	if delErr := c.sessions.Delete(); delErr != nil {
		return delErr
	}
	if err != nil {
		return nil
	}

	if err := c.provider.PostJSON(ctx, logoutPath, nil, nil, httpclient.WithBearer(sess.AccessToken)); err != nil {
		c.logger.Warn("プロバイダのログアウトに失敗", zap.Error(err))
	}
	return nil
}
