// Package apperr はAPIサーバーのエラー分類を提供する。
//
// 各ミドルウェアはこのパッケージのエラーをgin.Context.Errorで記録し、
// エラーハンドラがコードに応じたHTTPステータスとJSONボディに変換する。
package apperr
