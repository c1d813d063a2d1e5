package model

import "time"

// Block 拉黑关系，有方向，(blocker_id, blocked_id) 唯一
type Block struct {
	BlockerID string    `gorm:"type:varchar(64);primaryKey;comment:拉黑者ID" json:"blocker_id"`
	BlockedID string    `gorm:"type:varchar(64);primaryKey;index;comment:被拉黑者ID" json:"blocked_id"`
	CreatedAt time.Time `gorm:"comment:创建时间" json:"created_at"`
}

func (Block) TableName() string { return "user_blocks" }

// ReportReason 举报原因（封闭枚举）
type ReportReason string

const (
	ReportSpam          ReportReason = "spam"
	ReportHarassment    ReportReason = "harassment"
	ReportHate          ReportReason = "hate"
	ReportSexualContent ReportReason = "sexual_content"
	ReportViolence      ReportReason = "violence"
	ReportOther         ReportReason = "other"
)

// Valid 是否为合法举报原因
func (r ReportReason) Valid() bool {
	switch r {
	case ReportSpam, ReportHarassment, ReportHate, ReportSexualContent, ReportViolence, ReportOther:
		return true
	}
	return false
}

// Report 举报记录，仅追加
type Report struct {
	ID             string       `gorm:"type:char(36);primaryKey" json:"id"`
	ReporterID     string       `gorm:"type:varchar(64);not null;index;comment:举报者ID" json:"reporter_id"`
	ThreadID       string       `gorm:"type:char(36);not null;index;comment:会话ID" json:"thread_id"`
	MessageID      *string      `gorm:"type:char(36);comment:消息ID" json:"message_id,omitempty"`
	ReportedUserID *string      `gorm:"type:varchar(64);index;comment:被举报用户ID" json:"reported_user_id,omitempty"`
	Reason         ReportReason `gorm:"type:varchar(32);not null;comment:举报原因" json:"reason"`
	Details        *string      `gorm:"type:text;comment:补充说明" json:"details,omitempty"`
	CreatedAt      time.Time    `gorm:"comment:创建时间" json:"created_at"`
}

func (Report) TableName() string { return "content_reports" }
