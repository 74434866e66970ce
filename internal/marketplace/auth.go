package marketplace

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/solosphere/pkg/middleware"
)

// issueTokenRequest はセッショントークン発行リクエストのJSON構造。
type issueTokenRequest struct {
	// Email はトークンに束縛するメールアドレス。
	Email string `json:"email" binding:"required"`
}

// handleIssueToken はセッショントークンの発行を処理するハンドラを返す。
// 発行したトークンはレスポンスボディではなくhttpOnlyクッキーで渡す。
func (s *Server) handleIssueToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req issueTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "emailが必要です"})
			return
		}

		token, err := middleware.GenerateSessionToken(s.cfg.JWTSecret, req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークンの生成に失敗しました"})
			log.Printf("セッショントークン生成エラー: %v", err)
			return
		}

		middleware.SetSessionCookie(c, token, s.cfg.Production())
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// handleLogout はセッションの破棄を処理するハンドラを返す。
// クッキーの残り有効期間をゼロにして即時失効させる。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.ClearSessionCookie(c, s.cfg.Production())
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
