// Package cli はlogingateクライアントのコマンドラインインターフェースを提供する。
package cli
