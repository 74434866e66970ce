package marketplace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound は対象のレコードが存在しないことを表す。
var ErrNotFound = errors.New("レコードが見つかりません")

// ErrDuplicateBid は同一の入札者が同じ案件に既に入札済みであることを表す。
var ErrDuplicateBid = errors.New("この案件には既に入札済みです")

// Queries はjobs/bidsテーブルへのクエリ実行をまとめたオブジェクト。
// プロセス全体で共有される単一の*sql.DBの上で動作する。
type Queries struct {
	db *sql.DB
}

// NewQueries は新しいQueriesを生成する。
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// jobColumns は部分更新で設定を許可する列の一覧。
// ユーザー入力由来の文字列を列名としてSQLに埋め込まないための許可リスト。
var jobColumns = map[string]struct{}{
	"job_title":   {},
	"category":    {},
	"deadline":    {},
	"min_price":   {},
	"max_price":   {},
	"description": {},
	"buyer_name":  {},
	"buyer_email": {},
	"bid_count":   {},
}

// JobPatch は部分更新で設定する1列分の値。Columnはリテラルの列名のみを使う。
type JobPatch struct {
	Column string
	Value  any
}

// jobSelectColumns はJobのスキャンに使用する列の並び。scanJobと同期すること。
const jobSelectColumns = "id, job_title, category, deadline, min_price, max_price, description, buyer_name, buyer_email, bid_count"

// scanner はsql.Rowとsql.Rowsの共通インターフェース。
type scanner interface {
	Scan(dest ...any) error
}

// scanJob はDB行をJobに変換する。部分ドキュメントのupsertで作られた
// スパースな行はNULL列を含むため、id以外はNULL許容でスキャンする。
func scanJob(s scanner) (Job, error) {
	var (
		id                                                    string
		title, category, deadline, description, bName, bEmail sql.NullString
		minPrice, maxPrice                                    sql.NullFloat64
		bidCount                                              int64
	)
	if err := s.Scan(&id, &title, &category, &deadline, &minPrice, &maxPrice, &description, &bName, &bEmail, &bidCount); err != nil {
		return Job{}, err
	}
	return Job{
		ID:          id,
		JobTitle:    title.String,
		Category:    category.String,
		Deadline:    deadline.String,
		MinPrice:    minPrice.Float64,
		MaxPrice:    maxPrice.Float64,
		Description: description.String,
		Buyer:       Buyer{Name: bName.String, Email: bEmail.String},
		BidCount:    bidCount,
	}, nil
}

// CreateJob は新しい案件を挿入する。
func (q *Queries) CreateJob(ctx context.Context, job Job) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO jobs (id, job_title, category, deadline, min_price, max_price, description, buyer_name, buyer_email, bid_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.JobTitle, job.Category, job.Deadline, job.MinPrice, job.MaxPrice,
		job.Description, job.Buyer.Name, job.Buyer.Email, job.BidCount,
	)
	if err != nil {
		return fmt.Errorf("案件の挿入に失敗: %w", err)
	}
	return nil
}

// GetJobByID は指定されたIDの案件を取得する。存在しない場合はErrNotFound。
func (q *Queries) GetJobByID(ctx context.Context, id string) (Job, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+jobSelectColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("案件の取得に失敗: %w", err)
	}
	return job, nil
}

// ListJobsParams は案件一覧のフィルタ・検索・ソート条件。
// すべて省略可能で、指定された条件はANDで合成される。
type ListJobsParams struct {
	// Category はカテゴリの完全一致フィルタ。空なら適用しない。
	Category string
	// Search は案件タイトルに対する大文字小文字を区別しない部分一致検索。
	// 空ならすべてに一致する。
	Search string
	// Sort は納期によるソート順（"asc" または "desc"）。それ以外は未ソート。
	Sort string
}

// ListJobs は条件に一致する案件の一覧を返す。
func (q *Queries) ListJobs(ctx context.Context, params ListJobsParams) ([]Job, error) {
	query := "SELECT " + jobSelectColumns + " FROM jobs"
	var (
		conds []string
		args  []any
	)
	if params.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, params.Category)
	}
	if params.Search != "" {
		// LIKEのメタ文字をエスケープし、ユーザー入力をパターンとして解釈させない。
		// SQLiteのLIKEはASCIIに対して大文字小文字を区別しない。
		conds = append(conds, `job_title LIKE '%' || ? || '%' ESCAPE '\'`)
		args = append(args, escapeLike(params.Search))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	// ソート指定は許可した2値のみSQLに反映する
	switch params.Sort {
	case "asc":
		query += " ORDER BY deadline ASC"
	case "desc":
		query += " ORDER BY deadline DESC"
	}

	return q.queryJobs(ctx, query, args...)
}

// ListJobsByBuyer は指定された買い手メールアドレスが所有する案件の一覧を返す。
func (q *Queries) ListJobsByBuyer(ctx context.Context, email string) ([]Job, error) {
	return q.queryJobs(ctx, "SELECT "+jobSelectColumns+" FROM jobs WHERE buyer_email = ?", email)
}

// queryJobs は案件クエリを実行して結果をスライスに集める。
func (q *Queries) queryJobs(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("案件一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("案件行のスキャンに失敗: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MergeJob は指定された列だけを既存の案件にマージする。
// 対象IDの行が存在しない場合は、供給された列のみを持つスパースな行を
// 新規に挿入する（upsert）。省略された列は既存値のまま残る。
func (q *Queries) MergeJob(ctx context.Context, id string, patches []JobPatch) error {
	setParts := make([]string, 0, len(patches))
	args := make([]any, 0, len(patches)+1)
	for _, p := range patches {
		if _, ok := jobColumns[p.Column]; !ok {
			return fmt.Errorf("部分更新で許可されていない列: %s", p.Column)
		}
		setParts = append(setParts, p.Column+" = ?")
		args = append(args, p.Value)
	}

	if len(patches) > 0 {
		res, err := q.db.ExecContext(ctx,
			"UPDATE jobs SET "+strings.Join(setParts, ", ")+" WHERE id = ?",
			append(args, id)...,
		)
		if err != nil {
			return fmt.Errorf("案件の部分更新に失敗: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("更新行数の取得に失敗: %w", err)
		}
		if n > 0 {
			return nil
		}
	} else {
		// 設定する列が無い場合、既存行があれば何もしない
		if _, err := q.GetJobByID(ctx, id); err == nil {
			return nil
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	// 行が存在しないので、供給された列のみで挿入する
	cols := make([]string, 0, len(patches)+1)
	placeholders := make([]string, 0, len(patches)+1)
	insertArgs := make([]any, 0, len(patches)+1)
	cols = append(cols, "id")
	placeholders = append(placeholders, "?")
	insertArgs = append(insertArgs, id)
	for _, p := range patches {
		cols = append(cols, p.Column)
		placeholders = append(placeholders, "?")
		insertArgs = append(insertArgs, p.Value)
	}
	if _, err := q.db.ExecContext(ctx,
		"INSERT INTO jobs ("+strings.Join(cols, ", ")+") VALUES ("+strings.Join(placeholders, ", ")+")",
		insertArgs...,
	); err != nil {
		return fmt.Errorf("案件のupsert挿入に失敗: %w", err)
	}
	return nil
}

// DeleteJob は指定されたIDの案件を削除する。対象の案件に紐づく入札は
// 削除しない（参照先を失った入札はそのまま残る）。
func (q *Queries) DeleteJob(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("案件の削除に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除行数の取得に失敗: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementBidCount は案件の入札数を1増やす。
// 単一のUPDATE文による原子的な増分であり、読み出してから書き戻す方式ではない。
func (q *Queries) IncrementBidCount(ctx context.Context, jobID string) error {
	_, err := q.db.ExecContext(ctx, "UPDATE jobs SET bid_count = bid_count + 1 WHERE id = ?", jobID)
	if err != nil {
		return fmt.Errorf("入札数の更新に失敗: %w", err)
	}
	return nil
}

// bidSelectColumns はBidのスキャンに使用する列の並び。scanBidと同期すること。
const bidSelectColumns = "id, job_id, email, buyer_email, price, deadline, comment, status"

// scanBid はDB行をBidに変換する。
func scanBid(s scanner) (Bid, error) {
	var (
		id, jobID, email, buyerEmail, status string
		deadline, comment                    sql.NullString
		price                                sql.NullFloat64
	)
	if err := s.Scan(&id, &jobID, &email, &buyerEmail, &price, &deadline, &comment, &status); err != nil {
		return Bid{}, err
	}
	return Bid{
		ID:         id,
		JobID:      jobID,
		Email:      email,
		BuyerEmail: buyerEmail,
		Price:      price.Float64,
		Deadline:   deadline.String,
		Comment:    comment.String,
		Status:     Status(status),
	}, nil
}

// CreateBid は新しい入札を挿入する。
// (email, job_id)の一意インデックスに違反した場合はErrDuplicateBidを返す。
func (q *Queries) CreateBid(ctx context.Context, bid Bid) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO bids (id, job_id, email, buyer_email, price, deadline, comment, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bid.ID, bid.JobID, bid.Email, bid.BuyerEmail, bid.Price, bid.Deadline, bid.Comment, string(bid.Status),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateBid
		}
		return fmt.Errorf("入札の挿入に失敗: %w", err)
	}
	return nil
}

// GetBidByBidderAndJob は(入札者メールアドレス, 案件ID)で入札を検索する。
// 存在しない場合はErrNotFound。重複入札チェックの高速パスとして使用する。
func (q *Queries) GetBidByBidderAndJob(ctx context.Context, email, jobID string) (Bid, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+bidSelectColumns+" FROM bids WHERE email = ? AND job_id = ?", email, jobID)
	bid, err := scanBid(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Bid{}, ErrNotFound
	}
	if err != nil {
		return Bid{}, fmt.Errorf("入札の取得に失敗: %w", err)
	}
	return bid, nil
}

// ListBidsByBidder は指定されたメールアドレスの入札者が提出した入札の一覧を返す。
func (q *Queries) ListBidsByBidder(ctx context.Context, email string) ([]Bid, error) {
	return q.queryBids(ctx, "SELECT "+bidSelectColumns+" FROM bids WHERE email = ?", email)
}

// ListBidsByBuyer は指定されたメールアドレスの買い手の案件に届いた入札の一覧を返す。
func (q *Queries) ListBidsByBuyer(ctx context.Context, email string) ([]Bid, error) {
	return q.queryBids(ctx, "SELECT "+bidSelectColumns+" FROM bids WHERE buyer_email = ?", email)
}

// queryBids は入札クエリを実行して結果をスライスに集める。
func (q *Queries) queryBids(ctx context.Context, query string, args ...any) ([]Bid, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("入札一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bids := make([]Bid, 0)
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("入札行のスキャンに失敗: %w", err)
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

// UpdateBidStatus は入札のステータスを上書きする。
// 現在のステータスからの遷移の妥当性は検証しない。
// 対象IDの入札が存在しない場合はErrNotFound。
func (q *Queries) UpdateBidStatus(ctx context.Context, id string, status Status) error {
	res, err := q.db.ExecContext(ctx, "UPDATE bids SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("入札ステータスの更新に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// escapeLike はLIKEパターンのメタ文字（% _ \）をエスケープする。
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
