package marketplace

// Buyer は案件を所有する買い手の非正規化された識別情報。
type Buyer struct {
	// Name は買い手の表示名。
	Name string `json:"name"`
	// Email は買い手のメールアドレス。所有者スコープの判定に使用する。
	Email string `json:"email"`
}

// Job は買い手が投稿した案件。
type Job struct {
	// ID は案件の一意識別子。作成時にサーバーが生成する。
	ID string `json:"id"`
	// JobTitle は案件タイトル。部分一致検索の対象。
	JobTitle string `json:"job_title"`
	// Category はカテゴリ（自由テキストだが実質enum）。
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
	// BidCount はこの案件への入札数。bidsレコード数と増分更新で整合させる。
	BidCount int64 `json:"bid_count"`
}

// Bid はフリーランサーが案件に対して提出した入札。
type Bid struct {
	// ID は入札の一意識別子。作成時にサーバーが生成する。
	ID string `json:"id"`
	// JobID は入札対象の案件ID。
	JobID string `json:"jobId"`
	// Email は入札者のメールアドレス。
	Email string `json:"email"`
	// BuyerEmail は案件の買い手のメールアドレス（非正規化）。
	BuyerEmail string `json:"buyer"`
	// Price は入札価格。
	Price float64 `json:"price"`
	// Deadline は入札者が提示する納期。
	Deadline string `json:"deadline"`
	// Comment は入札コメント。
	Comment string `json:"comment"`
	// Status は入札のステータス。
	Status Status `json:"status"`
}
