package marketplace

import "fmt"

// Status は入札のステータス。
// 買い手が入札を進行させる際に更新する。遷移順序の妥当性は検証せず、
// 4値のいずれかであれば上書きを許す。
type Status string

const (
	// StatusPending は提出直後の初期ステータス。
	StatusPending Status = "pending"
	// StatusInProgress は買い手が受理し作業中のステータス。
	StatusInProgress Status = "in-progress"
	// StatusCompleted は作業完了のステータス。
	StatusCompleted Status = "completed"
	// StatusRejected は買い手が却下したステータス。
	StatusRejected Status = "rejected"
)

// ParseStatus は文字列をStatusに変換する。未知の値はエラーを返す。
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusInProgress, StatusCompleted, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("未知の入札ステータス %q", s)
}
