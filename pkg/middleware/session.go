package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims はセッションクッキーに格納するJWTクレーム（ペイロード）を表す。
// 呼び出し元の識別にはメールアドレスのみを使用する。
type SessionClaims struct {
	jwt.RegisteredClaims
	// Email は認証済みユーザーのメールアドレス。
	Email string `json:"email"`
}

// SessionCookieName はセッショントークンを格納するクッキー名。
const SessionCookieName = "token"

// sessionLifetime はセッショントークンの有効期間。
const sessionLifetime = 24 * time.Hour

// GenerateSessionToken はメールアドレスを束縛した署名付きセッショントークンを生成する。
// 有効期限は発行から24時間。
func GenerateSessionToken(secret, email string) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "solosphere",
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("セッショントークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// VerifySessionToken はセッショントークンの署名と有効期限を検証し、
// 成功した場合はトークンに束縛されたメールアドレスを返す。
func VerifySessionToken(secret, tokenString string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("セッショントークンの検証に失敗: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("セッショントークンが無効")
	}
	return claims.Email, nil
}

// SetSessionCookie はセッショントークンをhttpOnlyクッキーとして設定する。
// production環境ではSecure属性とSameSite=Noneを付与し、クロスサイトの
// フロントエンドからの送信を許可する。開発環境ではSameSite=Strict。
func SetSessionCookie(c *gin.Context, token string, production bool) {
	if production {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteStrictMode)
	}
	c.SetCookie(SessionCookieName, token, int(sessionLifetime.Seconds()), "/", "", production, true)
}

// ClearSessionCookie はセッションクッキーを即時失効させる。
// 属性は設定時と揃えないとブラウザが別クッキーとして扱うため同じ値を使う。
func ClearSessionCookie(c *gin.Context, production bool) {
	if production {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteStrictMode)
	}
	c.SetCookie(SessionCookieName, "", -1, "/", "", production, true)
}

// SessionAuth はセッションクッキーを検証するGinミドルウェアを返す。
// クッキーが存在しない、または検証に失敗した場合は401を返して処理を打ち切る。
// 検証に成功した場合、コンテキストに "email" を設定する。
func SessionAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(SessionCookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "セッションクッキーが必要です",
			})
			return
		}

		email, err := VerifySessionToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "セッショントークンが無効です",
			})
			return
		}

		c.Set("email", email)
		c.Next()
	}
}

// GetSessionEmail はGinコンテキストから検証済みのメールアドレスを取得する。
// SessionAuthミドルウェアが事前に適用されている必要がある。
func GetSessionEmail(c *gin.Context) string {
	email, _ := c.Get("email")
	if e, ok := email.(string); ok {
		return e
	}
	return ""
}
