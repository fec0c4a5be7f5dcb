package apperr

import (
	"errors"
	"net/http"
)

// Code はエラーの種類を表す機械可読なコード。
type Code string

const (
	// CodeInternal は予期しない内部エラーを表す。
	CodeInternal Code = "INTERNAL"
	// CodeMissingToken はAuthorizationヘッダーが無い、またはBearer形式でないことを表す。
	CodeMissingToken Code = "MISSING_TOKEN"
	// CodeInvalidToken は認証プロバイダがトークンを拒否したことを表す。
	CodeInvalidToken Code = "INVALID_TOKEN"
	// CodeRateLimited は現在のウィンドウでのリクエスト上限を超えたことを表す。
	CodeRateLimited Code = "RATE_LIMITED"
	// CodeCORSRejected は許可されていないオリジンからのリクエストを表す。
	CodeCORSRejected Code = "CORS_REJECTED"
	// CodeNotFound は一致するルートが無いことを表す。
	CodeNotFound Code = "NOT_FOUND"
	// CodeInvalidBody はJSONボディが不正であることを表す。
	CodeInvalidBody Code = "INVALID_BODY"
	// CodeBodyTooLarge はJSONボディがサイズ上限を超えたことを表す。
	CodeBodyTooLarge Code = "BODY_TOO_LARGE"
)

// HTTPStatus はコードに対応するHTTPステータスを返す。
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMissingToken, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeCORSRejected:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidBody:
		return http.StatusBadRequest
	case CodeBodyTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage はクライアントに返すエラーメッセージを返す。
// 内部エラーの詳細はレスポンスに含めない。
func (c Code) PublicMessage() string {
	switch c {
	case CodeMissingToken:
		return "Unauthorized: No token provided"
	case CodeInvalidToken:
		return "Unauthorized: Invalid token"
	case CodeRateLimited:
		return "Too many requests"
	case CodeCORSRejected:
		return "Not allowed by CORS"
	case CodeNotFound:
		return "Not found"
	case CodeInvalidBody:
		return "Invalid JSON"
	case CodeBodyTooLarge:
		return "Payload too large"
	default:
		return "Internal server error"
	}
}

// Error はコードと原因を持つアプリケーションエラー。
type Error struct {
	// Code はエラーの種類。
	Code Code
	// Message はログ用の内部メッセージ。
	Message string
	// Cause はラップされた元のエラー。
	Cause error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap は元のエラーを返す。
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is はコードが一致する場合にtrueを返す。
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New はコードとメッセージからエラーを生成する。
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap は元のエラーをラップしたエラーを生成する。
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf はエラーチェーンからコードを取り出す。
// アプリケーションエラーを含まない場合はCodeInternalを返す。
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// 比較用のセンチネル。errors.Isで使用する。
var (
	ErrMissingToken = New(CodeMissingToken, "bearer token is missing")
	ErrInvalidToken = New(CodeInvalidToken, "bearer token is invalid")
	ErrRateLimited  = New(CodeRateLimited, "rate limit exceeded")
	ErrCORSRejected = New(CodeCORSRejected, "origin not allowed")
	ErrNotFound     = New(CodeNotFound, "route not found")
	ErrInternal     = New(CodeInternal, "internal error")
)
