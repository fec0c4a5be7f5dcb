// Package httpclient は外部サービスとJSONでやりとりするHTTPクライアントを提供する。
//
// APIサーバーが認証プロバイダへトークンを照会する際と、
// クライアントCLIがAPIサーバーや認証プロバイダを呼び出す際に使用する。
// 2xx以外の応答はStatusErrorとして返し、呼び出し側が分類できるようにする。
package httpclient
