package marketplace

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/solosphere/pkg/middleware"
)

// addBidRequest は入札提出リクエストのJSON構造。
type addBidRequest struct {
	// JobID は入札対象の案件ID。
	JobID string `json:"jobId" binding:"required"`
	// Email は入札者のメールアドレス。
	Email string `json:"email" binding:"required"`
	// BuyerEmail は案件の買い手のメールアドレス。案件が引けた場合は
	// サーバー側の値で上書きされる。
	BuyerEmail string `json:"buyer"`
	// Price は入札価格。
	Price float64 `json:"price"`
	// Deadline は入札者が提示する納期。
	Deadline string `json:"deadline"`
	// Comment は入札コメント。
	Comment string `json:"comment"`
}

// updateBidStatusRequest は入札ステータス更新リクエストのJSON構造。
type updateBidStatusRequest struct {
	// Status は設定するステータス。
	Status string `json:"status" binding:"required"`
}

// handlePlaceBid は入札の提出を処理するハンドラを返す。
//
// (email, jobId)が重複する入札は拒否し、挿入に成功した場合は対象案件の
// 入札数を原子的に1増やす。重複チェックと挿入は別々のステートメントで
// あり同時実行では両方が素通りしうるため、最終的な一意性は
// bids(email, job_id)の一意インデックスが保証する。
// 入札の挿入と入札数の増分はトランザクションで括らない独立した2回の
// 書き込みであり、間で失敗すると入札数が実際より少なくなる（既知の制約）。
func (s *Server) handlePlaceBid() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addBidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		// 重複入札の高速パスチェック
		_, err := s.queries.GetBidByBidderAndJob(c.Request.Context(), req.Email, req.JobID)
		if err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "この案件には既に入札済みです"})
			return
		}
		if !errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "入札の確認に失敗しました"})
			log.Printf("重複入札チェックエラー: %v", err)
			return
		}

		// 買い手のメールアドレスは参照先の案件から非正規化する
		buyerEmail := req.BuyerEmail
		if job, err := s.queries.GetJobByID(c.Request.Context(), req.JobID); err == nil {
			buyerEmail = job.Buyer.Email
		}

		bid := Bid{
			ID:         uuid.New().String(),
			JobID:      req.JobID,
			Email:      req.Email,
			BuyerEmail: buyerEmail,
			Price:      req.Price,
			Deadline:   req.Deadline,
			Comment:    req.Comment,
			Status:     StatusPending,
		}
		if err := s.queries.CreateBid(c.Request.Context(), bid); err != nil {
			if errors.Is(err, ErrDuplicateBid) {
				// 高速パスを同時にすり抜けた場合も一意インデックスがここで弾く
				c.JSON(http.StatusConflict, gin.H{"error": "この案件には既に入札済みです"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "入札の作成に失敗しました"})
			log.Printf("入札作成エラー: %v", err)
			return
		}

		// 入札は挿入済みなので、増分の失敗はログに残すだけでエラーにはしない
		if err := s.queries.IncrementBidCount(c.Request.Context(), req.JobID); err != nil {
			log.Printf("入札数の増分エラー: job_id=%s, %v", req.JobID, err)
		}

		c.JSON(http.StatusCreated, bid)
	}
}

// handleListBids は本人の入札一覧取得を処理するハンドラを返す。
//
// SessionAuthミドルウェアで検証済みのメールアドレスとパスパラメータの
// メールアドレスが一致しない場合は403を返す。クエリパラメータbuyerが
// 非空の場合は買い手として受け取った入札を、それ以外は入札者として
// 提出した入札を返す。
func (s *Server) handleListBids() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenEmail := middleware.GetSessionEmail(c)
		email := c.Param("email")
		if tokenEmail != email {
			c.JSON(http.StatusForbidden, gin.H{"error": "他のユーザーの入札一覧は参照できません"})
			return
		}

		var (
			bids []Bid
			err  error
		)
		if c.Query("buyer") != "" {
			bids, err = s.queries.ListBidsByBuyer(c.Request.Context(), email)
		} else {
			bids, err = s.queries.ListBidsByBidder(c.Request.Context(), email)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "入札一覧の取得に失敗しました"})
			log.Printf("入札一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, bids)
	}
}

// handleUpdateBidStatus は入札ステータスの更新を処理するハンドラを返す。
// ステータスは4値のいずれかであることだけを検証し、現在値からの遷移の
// 妥当性は確認しない（フラットな上書き）。
func (s *Server) handleUpdateBidStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateBidStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "statusが必要です"})
			return
		}

		status, err := ParseStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不正なステータスです: %v", err)})
			return
		}

		err = s.queries.UpdateBidStatus(c.Request.Context(), c.Param("id"), status)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "入札が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "入札ステータスの更新に失敗しました"})
			log.Printf("入札ステータス更新エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "入札ステータスを更新しました"})
	}
}
