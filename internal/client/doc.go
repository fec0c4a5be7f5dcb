// Package client はログインデモのクライアント側の処理を提供する。
//
// GoogleログインはプロバイダのPKCEフローをループバックのコールバックで受け取り、
// 得られたセッションをローカルファイルにキャッシュする。保護エンドポイントの呼び出しでは
// キャッシュしたアクセストークンをBearerトークンとして1回だけ送る。
package client
