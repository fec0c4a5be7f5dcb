// Package ratelimit はクライアントキー（通常はIPアドレス）単位の
// 固定ウィンドウ方式レートリミッタを提供する。
//
// カウンタはStoreインターフェースの背後に置かれ、プロセス内マップ、
// SQLite、Redisの実装を差し替えて使用できる。
package ratelimit
