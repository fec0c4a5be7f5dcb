// Package identity はBearerトークンの検証と認証済みユーザーの表現を提供する。
//
// トークンの発行やセッション管理は外部の認証プロバイダが担う。
// このパッケージはトークンをプロバイダに照会するProviderVerifierと、
// プロバイダのJWTシークレットでローカル検証するJWTVerifierを持つ。
package identity
