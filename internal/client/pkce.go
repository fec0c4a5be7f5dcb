package client

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// pkce はPKCEのコード検証子とチャレンジの組。
type pkce struct {
	verifier  string
	challenge string
}

// newPKCE はランダムなコード検証子とS256チャレンジを生成する。
func newPKCE() (pkce, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return pkce{}, fmt.Errorf("コード検証子の生成に失敗: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(b)
	return pkce{verifier: verifier, challenge: s256(verifier)}, nil
}

func s256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
