// Package config はSoloSphereサーバーの設定を環境変数から読み込む。
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config はサーバープロセス全体の設定を保持する。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// Env は実行環境（development / production）。
	// productionの場合のみセッションクッキーにSecure属性とSameSite=Noneを付与する。
	Env string
	// JWTSecret はセッショントークンの署名用秘密鍵。
	JWTSecret string
	// DBPath はSQLiteデータベースファイルのパス。
	DBPath string
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string
}

// Production はproduction環境で動作しているかを返す。
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load は環境変数（および存在すれば.envファイル）から設定を読み込む。
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む。無ければ環境変数のみで動作する。
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf(".envファイルの読み込みに失敗: %w", err)
			}
		}
	}

	return &Config{
		Port:        getEnv("PORT", "9000"),
		Env:         getEnv("NODE_ENV", "development"),
		JWTSecret:   getEnv("SECRET_KEY", "dev-secret-key"),
		DBPath:      getEnv("DB_PATH", "/data/solosphere.db"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
	}, nil
}

// getEnv は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
