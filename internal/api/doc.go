// Package api はログインデモのAPIサーバーを提供する。
//
// /healthは常に稼働状態を返し、/api/protectedはレートリミットとBearerトークンの検証を
// 通過したリクエストにだけ固定のメッセージを返す。設定は環境変数から読み込む。
package api
