package identity

import (
	"context"
	"strings"

	"github.com/nao1215/logingate/pkg/apperr"
)

// Identity はトークン検証で得られた認証済みユーザー。
// 1リクエストの間だけ使用し、永続化しない。
type Identity struct {
	// ID は認証プロバイダ上のユーザーID。
	ID string
	// Email はユーザーのメールアドレス。
	Email string
	// Role は認証プロバイダが付与したロール。
	Role string
}

// Verifier はBearerトークンを検証してIdentityを返す。
// 失敗時はapperr.CodeInvalidTokenまたはapperr.CodeInternalのエラーを返す。
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (Identity, error)
}

// VerifierFunc は関数をVerifierとして扱うためのアダプタ。
type VerifierFunc func(ctx context.Context, token string) (Identity, error)

// VerifyToken はf(ctx, token)を呼び出す。
func (f VerifierFunc) VerifyToken(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

const bearerPrefix = "Bearer "

// ExtractBearer はAuthorizationヘッダーの値からトークンを取り出す。
// ヘッダーが無い、Bearer形式でない、トークンが空の場合はapperr.ErrMissingTokenを返す。
func ExtractBearer(header string) (string, error) {
	token, found := strings.CutPrefix(header, bearerPrefix)
	if !found {
		return "", apperr.ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", apperr.ErrMissingToken
	}
	return token, nil
}
