// Package marketplace はSoloSphere（フリーランス案件マーケットプレイス）の
// バックエンドを提供する。買い手による案件の投稿・管理、フリーランサーによる
// 入札、セッションクッキーによる本人確認を扱う。
package marketplace

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/nao1215/solosphere/internal/config"
	"github.com/nao1215/solosphere/pkg/middleware"
	"github.com/nao1215/solosphere/pkg/migration"
)

// Server はマーケットプレイスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバー設定。
	cfg *config.Config
	// queries はjobs/bidsテーブルへのクエリ実行オブジェクト。
	queries *Queries
	// db はプロセス全体で共有するSQLiteデータベース接続。
	db *sql.DB
}

// NewServer は新しいマーケットプレイスサーバーを生成する。
// SQLiteデータベースの接続確立とマイグレーション適用を行う。
func NewServer(cfg *config.Config) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	// 接続確認。起動時に一度だけ行う。
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}

	if err := migration.Run(sqlDB, migrationsFS, "migrations"); err != nil {
		return nil, fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{cfg.FrontendURL}))

	s := &Server{
		router:  router,
		cfg:     cfg,
		queries: NewQueries(sqlDB),
		db:      sqlDB,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.cfg.Port))
}

// Close はデータベース接続を閉じる。プロセス終了時に呼び出す。
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// セッション管理（認証不要）
	s.router.POST("/jwt", s.handleIssueToken())
	s.router.GET("/logout", s.handleLogout())

	// 案件
	s.router.POST("/add-job", s.handleCreateJob())
	s.router.GET("/jobs", s.handleListJobs())
	s.router.GET("/jobs/:email", s.handleListJobsByBuyer())
	s.router.GET("/all-jobs", s.handleSearchJobs())
	s.router.GET("/job/:id", s.handleGetJob())
	s.router.PUT("/update-job/:id", s.handleUpdateJob())
	s.router.DELETE("/job/:id", s.handleDeleteJob())

	// 入札
	s.router.POST("/add-bids", s.handlePlaceBid())
	// 本人の入札一覧のみ参照できる。セッション検証＋本人確認が必須。
	s.router.GET("/bids/:email", middleware.SessionAuth(s.cfg.JWTSecret), s.handleListBids())
	s.router.PATCH("/bid-update-status/:id", s.handleUpdateBidStatus())

	// ルートとヘルスチェック
	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Hello from SoloSphere Server....")
	})
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "solosphere"})
	})
}
