package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testSecret はテスト用のJWTシークレット。
const testSecret = "test-secret-key-for-unit-tests"

// TestGenerateSessionToken はGenerateSessionToken関数を検証する。
func TestGenerateSessionToken(t *testing.T) {
	t.Parallel()

	t.Run("正常にセッショントークンを生成できること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := GenerateSessionToken(testSecret, "bob@x.com")
		if err != nil {
			t.Fatalf("GenerateSessionToken()でエラーが発生: %v", err)
		}
		if tokenStr == "" {
			t.Fatal("GenerateSessionToken()が空文字列を返した")
		}

		email, err := VerifySessionToken(testSecret, tokenStr)
		if err != nil {
			t.Fatalf("トークンの検証に失敗: %v", err)
		}
		if email != "bob@x.com" {
			t.Errorf("email = %q, want %q", email, "bob@x.com")
		}
	})

	t.Run("トークンの有効期限が24時間後であること", func(t *testing.T) {
		t.Parallel()

		before := time.Now()
		tokenStr, err := GenerateSessionToken(testSecret, "exp@example.com")
		if err != nil {
			t.Fatalf("GenerateSessionToken()でエラーが発生: %v", err)
		}

		claims := &SessionClaims{}
		if _, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
			return []byte(testSecret), nil
		}); err != nil {
			t.Fatalf("トークンのパースに失敗: %v", err)
		}

		expectedExpiry := before.Add(24 * time.Hour)
		if claims.ExpiresAt.Time.Before(expectedExpiry.Add(-1 * time.Minute)) {
			t.Errorf("ExpiresAt = %v, 期待する最小値: %v", claims.ExpiresAt.Time, expectedExpiry.Add(-1*time.Minute))
		}
		if claims.ExpiresAt.Time.After(expectedExpiry.Add(1 * time.Minute)) {
			t.Errorf("ExpiresAt = %v, 期待する最大値: %v", claims.ExpiresAt.Time, expectedExpiry.Add(1*time.Minute))
		}
	})

	t.Run("署名アルゴリズムがHS256であること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := GenerateSessionToken(testSecret, "alg@example.com")
		if err != nil {
			t.Fatalf("GenerateSessionToken()でエラーが発生: %v", err)
		}

		token, _, err := new(jwt.Parser).ParseUnverified(tokenStr, &SessionClaims{})
		if err != nil {
			t.Fatalf("トークンのパースに失敗: %v", err)
		}
		if token.Method.Alg() != "HS256" {
			t.Errorf("署名アルゴリズム = %q, want %q", token.Method.Alg(), "HS256")
		}
	})

	t.Run("異なるシークレットでは検証に失敗すること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := GenerateSessionToken(testSecret, "wrong@example.com")
		if err != nil {
			t.Fatalf("GenerateSessionToken()でエラーが発生: %v", err)
		}

		if _, err := VerifySessionToken("wrong-secret", tokenStr); err == nil {
			t.Fatal("異なるシークレットでの検証がエラーを返すべき")
		}
	})
}

// TestSessionAuth はSessionAuthミドルウェアを検証する。
func TestSessionAuth(t *testing.T) {
	t.Parallel()

	// newSessionRouter はSessionAuthを適用したテスト用ルーターを生成する。
	newSessionRouter := func(capture *string) *gin.Engine {
		router := gin.New()
		router.Use(SessionAuth(testSecret))
		router.GET("/test", func(c *gin.Context) {
			if capture != nil {
				*capture = GetSessionEmail(c)
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		return router
	}

	t.Run("有効なクッキーでリクエストが成功すること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := GenerateSessionToken(testSecret, "ok@example.com")
		if err != nil {
			t.Fatalf("GenerateSessionToken()でエラーが発生: %v", err)
		}

		var capturedEmail string
		router := newSessionRouter(&capturedEmail)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tokenStr})
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if capturedEmail != "ok@example.com" {
			t.Errorf("email = %q, want %q", capturedEmail, "ok@example.com")
		}
	})

	t.Run("クッキーが無い場合401が返ること", func(t *testing.T) {
		t.Parallel()

		router := newSessionRouter(nil)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}

		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if body["error"] != "セッションクッキーが必要です" {
			t.Errorf("error = %q, want %q", body["error"], "セッションクッキーが必要です")
		}
	})

	t.Run("無効なトークンで401が返ること", func(t *testing.T) {
		t.Parallel()

		router := newSessionRouter(nil)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "invalid-token-string"})
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("期限切れトークンで401が返ること", func(t *testing.T) {
		t.Parallel()

		// 期限切れのクレームを手動で生成する
		claims := SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-25 * time.Hour)),
				Issuer:    "solosphere",
			},
			Email: "expired@example.com",
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		tokenStr, err := token.SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("トークンの署名に失敗: %v", err)
		}

		router := newSessionRouter(nil)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tokenStr})
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestSessionCookie はクッキーの設定と失効を検証する。
func TestSessionCookie(t *testing.T) {
	t.Parallel()

	t.Run("開発環境ではSecure属性が付かずSameSite=Strictであること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.POST("/jwt", func(c *gin.Context) {
			SetSessionCookie(c, "dummy-token", false)
			c.JSON(http.StatusOK, gin.H{"success": true})
		})

		req := httptest.NewRequest(http.MethodPost, "/jwt", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		cookies := w.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("クッキー数 = %d, want 1", len(cookies))
		}
		c := cookies[0]
		if c.Name != SessionCookieName {
			t.Errorf("Name = %q, want %q", c.Name, SessionCookieName)
		}
		if !c.HttpOnly {
			t.Error("HttpOnly属性が設定されるべき")
		}
		if c.Secure {
			t.Error("開発環境でSecure属性が設定されるべきではない")
		}
		if c.SameSite != http.SameSiteStrictMode {
			t.Errorf("SameSite = %v, want %v", c.SameSite, http.SameSiteStrictMode)
		}
		if c.MaxAge != int((24 * time.Hour).Seconds()) {
			t.Errorf("MaxAge = %d, want %d", c.MaxAge, int((24*time.Hour).Seconds()))
		}
	})

	t.Run("production環境ではSecure属性とSameSite=Noneが付くこと", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.POST("/jwt", func(c *gin.Context) {
			SetSessionCookie(c, "dummy-token", true)
			c.JSON(http.StatusOK, gin.H{"success": true})
		})

		req := httptest.NewRequest(http.MethodPost, "/jwt", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		cookies := w.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("クッキー数 = %d, want 1", len(cookies))
		}
		c := cookies[0]
		if !c.Secure {
			t.Error("production環境でSecure属性が設定されるべき")
		}
		if c.SameSite != http.SameSiteNoneMode {
			t.Errorf("SameSite = %v, want %v", c.SameSite, http.SameSiteNoneMode)
		}
	})

	t.Run("ClearSessionCookieで残り有効期間がゼロになること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.GET("/logout", func(c *gin.Context) {
			ClearSessionCookie(c, false)
			c.JSON(http.StatusOK, gin.H{"success": true})
		})

		req := httptest.NewRequest(http.MethodGet, "/logout", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		cookies := w.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("クッキー数 = %d, want 1", len(cookies))
		}
		c := cookies[0]
		if c.Value != "" {
			t.Errorf("Value = %q, want empty string", c.Value)
		}
		if c.MaxAge >= 0 {
			t.Errorf("MaxAge = %d, 負の値であるべき", c.MaxAge)
		}
	})
}

// TestGetSessionEmail はGetSessionEmail関数を検証する。
func TestGetSessionEmail(t *testing.T) {
	t.Parallel()

	t.Run("コンテキストにemailが設定されている場合に取得できること", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Set("email", "get@example.com")

		if got := GetSessionEmail(c); got != "get@example.com" {
			t.Errorf("GetSessionEmail() = %q, want %q", got, "get@example.com")
		}
	})

	t.Run("コンテキストにemailが設定されていない場合に空文字列が返ること", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		if got := GetSessionEmail(c); got != "" {
			t.Errorf("GetSessionEmail() = %q, want empty string", got)
		}
	})

	t.Run("emailが文字列以外の型の場合に空文字列が返ること", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Set("email", 12345)

		if got := GetSessionEmail(c); got != "" {
			t.Errorf("GetSessionEmail() = %q, want empty string", got)
		}
	})
}

// TestVerifySessionTokenMalformed は形式不正なトークンの扱いを検証する。
func TestVerifySessionTokenMalformed(t *testing.T) {
	t.Parallel()

	for _, tokenStr := range []string{"", "not-a-jwt", "a.b", strings.Repeat("x", 512)} {
		if _, err := VerifySessionToken(testSecret, tokenStr); err == nil {
			t.Errorf("VerifySessionToken(%q)がエラーを返すべき", tokenStr)
		}
	}
}
