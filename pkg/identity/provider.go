package identity

import (
	"context"
	"errors"
	"time"

	"github.com/nao1215/logingate/pkg/apperr"
	"github.com/nao1215/logingate/pkg/httpclient"
)

// userPath はアクセストークンからユーザーを取得するエンドポイント。
const userPath = "/auth/v1/user"

// providerUser は認証プロバイダのユーザー応答のうち使用する項目。
type providerUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ProviderVerifier は認証プロバイダにトークンを照会して検証する。
// 1リクエストにつき1回だけ呼び出し、リトライはしない。
type ProviderVerifier struct {
	client *httpclient.Client
}

var _ Verifier = (*ProviderVerifier)(nil)

// NewProviderVerifier は新しいProviderVerifierを生成する。
// serviceKeyはapikeyヘッダーとしてすべての照会に付与する。
func NewProviderVerifier(providerURL, serviceKey string, timeout time.Duration) *ProviderVerifier {
	return &ProviderVerifier{
		client: httpclient.New(providerURL,
			httpclient.WithTimeout(timeout),
			httpclient.WithDefaultHeader("apikey", serviceKey),
		),
	}
}

// VerifyToken はトークンをプロバイダのユーザー情報と交換する。
// プロバイダが4xxを返した場合とユーザーIDが無い場合はInvalidToken、
// 通信エラー・5xx・不正な応答はInternalとして返す。
func (v *ProviderVerifier) VerifyToken(ctx context.Context, token string) (Identity, error) {
	var u providerUser
	err := v.client.GetJSON(ctx, userPath, &u, httpclient.WithBearer(token))
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.ClientError() {
			return Identity{}, apperr.Wrap(apperr.CodeInvalidToken, "provider rejected token", err)
		}
		return Identity{}, apperr.Wrap(apperr.CodeInternal, "provider call failed", err)
	}
	if u.ID == "" {
		return Identity{}, apperr.New(apperr.CodeInvalidToken, "provider returned no user")
	}
	return Identity{ID: u.ID, Email: u.Email, Role: u.Role}, nil
}
