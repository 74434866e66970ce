// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// セッションクッキー（署名付きJWT）の発行・検証、パニックリカバリ、
// クッキー送信を許可するCORS設定を含む。
package middleware
