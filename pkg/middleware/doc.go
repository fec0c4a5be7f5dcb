// Package middleware はAPIサーバーのリクエスト受付ゲートを構成するGinミドルウェアを提供する。
//
// セキュリティヘッダー、CORS、JSONボディ解析、レートリミット、Bearerトークン認証を
// この順序で適用する。各ステージは次に進めるか、エラーを記録して中断する。
// 記録されたエラーはErrorHandlerがHTTPステータスとJSONボディに変換する。
package middleware
