package identity

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nao1215/logingate/pkg/apperr"
)

// Claims は認証プロバイダが発行するアクセストークンのクレーム。
type Claims struct {
	jwt.RegisteredClaims
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Role はユーザーのロール。
	Role string `json:"role"`
}

// JWTVerifier はプロバイダのJWTシークレットでアクセストークンをローカル検証する。
// プロバイダへの通信が不要になる代わりに、失効済みセッションは有効期限まで通る。
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier は新しいJWTVerifierを生成する。
// audienceが空でなければaudクレームの一致も要求する。
func NewJWTVerifier(secret, audience string) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(opts...),
	}
}

// VerifyToken は署名と有効期限を検証し、クレームからIdentityを組み立てる。
// 検証に失敗した場合はすべてInvalidTokenとして返す。
func (v *JWTVerifier) VerifyToken(_ context.Context, token string) (Identity, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, apperr.Wrap(apperr.CodeInvalidToken, "token verification failed", err)
	}
	if claims.Subject == "" {
		return Identity{}, apperr.New(apperr.CodeInvalidToken, "token has no subject")
	}
	return Identity{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}
