package marketplace

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// addJobRequest は案件作成リクエストのJSON構造。
type addJobRequest struct {
	// JobTitle は案件タイトル。
	JobTitle string `json:"job_title" binding:"required"`
	// Category はカテゴリ。
	Category string `json:"category"`
	// Deadline は納期。
	Deadline string `json:"deadline"`
	// MinPrice は最低価格。
	MinPrice float64 `json:"min_price"`
	// MaxPrice は最高価格。
	MaxPrice float64 `json:"max_price"`
	// Description は案件の説明。
	Description string `json:"description"`
	// Buyer は案件を所有する買い手。
	Buyer Buyer `json:"buyer"`
}

// updateJobRequest は案件の部分更新リクエストのJSON構造。
// 存在するフィールドだけをマージするため、全フィールドをポインタで受ける。
type updateJobRequest struct {
	JobTitle    *string  `json:"job_title"`
	Category    *string  `json:"category"`
	Deadline    *string  `json:"deadline"`
	MinPrice    *float64 `json:"min_price"`
	MaxPrice    *float64 `json:"max_price"`
	Description *string  `json:"description"`
	Buyer       *Buyer   `json:"buyer"`
}

// patches はリクエストに存在するフィールドだけをJobPatchの列に変換する。
func (r *updateJobRequest) patches() []JobPatch {
	var patches []JobPatch
	if r.JobTitle != nil {
		patches = append(patches, JobPatch{Column: "job_title", Value: *r.JobTitle})
	}
	if r.Category != nil {
		patches = append(patches, JobPatch{Column: "category", Value: *r.Category})
	}
	if r.Deadline != nil {
		patches = append(patches, JobPatch{Column: "deadline", Value: *r.Deadline})
	}
	if r.MinPrice != nil {
		patches = append(patches, JobPatch{Column: "min_price", Value: *r.MinPrice})
	}
	if r.MaxPrice != nil {
		patches = append(patches, JobPatch{Column: "max_price", Value: *r.MaxPrice})
	}
	if r.Description != nil {
		patches = append(patches, JobPatch{Column: "description", Value: *r.Description})
	}
	if r.Buyer != nil {
		patches = append(patches,
			JobPatch{Column: "buyer_name", Value: r.Buyer.Name},
			JobPatch{Column: "buyer_email", Value: r.Buyer.Email},
		)
	}
	return patches
}

// handleCreateJob は案件作成を処理するハンドラを返す。
// IDはサーバー側で生成し、入札数は0で初期化する。
func (s *Server) handleCreateJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		job := Job{
			ID:          uuid.New().String(),
			JobTitle:    req.JobTitle,
			Category:    req.Category,
			Deadline:    req.Deadline,
			MinPrice:    req.MinPrice,
			MaxPrice:    req.MaxPrice,
			Description: req.Description,
			Buyer:       req.Buyer,
			BidCount:    0,
		}
		if err := s.queries.CreateJob(c.Request.Context(), job); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "案件の作成に失敗しました"})
			log.Printf("案件作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, job)
	}
}

// handleListJobs は全案件の一覧取得を処理するハンドラを返す。
func (s *Server) handleListJobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs, err := s.queries.ListJobs(c.Request.Context(), ListJobsParams{})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "案件一覧の取得に失敗しました"})
			log.Printf("案件一覧取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, jobs)
	}
}

// handleListJobsByBuyer は買い手メールアドレスによる案件一覧取得を処理するハンドラを返す。
func (s *Server) handleListJobsByBuyer() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs, err := s.queries.ListJobsByBuyer(c.Request.Context(), c.Param("email"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "案件一覧の取得に失敗しました"})
			log.Printf("買い手別案件一覧取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, jobs)
	}
}

// handleSearchJobs はフィルタ・検索・ソート付きの案件一覧取得を処理するハンドラを返す。
// クエリパラメータ filter（カテゴリ完全一致）、search（タイトル部分一致）、
// sort（納期のasc/desc）はそれぞれ独立して省略できる。
func (s *Server) handleSearchJobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		params := ListJobsParams{
			Category: c.Query("filter"),
			Search:   c.Query("search"),
			Sort:     c.Query("sort"),
		}
		jobs, err := s.queries.ListJobs(c.Request.Context(), params)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "案件の検索に失敗しました"})
			log.Printf("案件検索エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, jobs)
	}
}

// handleGetJob は案件の単体取得を処理するハンドラを返す。
func (s *Server) handleGetJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := s.queries.GetJobByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "案件が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "案件の取得に失敗しました"})
			log.Printf("案件取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

// handleUpdateJob は案件の部分更新を処理するハンドラを返す。
// リクエストに含まれるフィールドだけを既存の案件にマージする。
// 対象IDが存在しない場合は、供給されたフィールドのみを持つ案件を新規作成する。
func (s *Server) handleUpdateJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		jobID := c.Param("id")
		if err := s.queries.MergeJob(c.Request.Context(), jobID, req.patches()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "案件の更新に失敗しました"})
			log.Printf("案件更新エラー: %v", err)
			return
		}

		// マージ後の案件を取得してレスポンスを返す
		updated, err := s.queries.GetJobByID(c.Request.Context(), jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新後の案件の取得に失敗しました"})
			log.Printf("案件取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// handleDeleteJob は案件の削除を処理するハンドラを返す。
// 案件に紐づく入札は削除しない。
func (s *Server) handleDeleteJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.queries.DeleteJob(c.Request.Context(), c.Param("id"))
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "案件が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "案件の削除に失敗しました"})
			log.Printf("案件削除エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "案件を削除しました"})
	}
}
