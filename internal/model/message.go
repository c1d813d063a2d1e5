package model

import "time"

// Message 聊天消息，创建后不可修改，只追加
// 排序：created_at 升序，同一时间按 (thread_id, seq) 的插入序号
type Message struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	ThreadID  string    `gorm:"type:char(36);not null;uniqueIndex:uidx_thread_seq,priority:1;comment:会话ID" json:"thread_id"`
	Seq       int64     `gorm:"not null;uniqueIndex:uidx_thread_seq,priority:2;comment:会话内序号" json:"seq"`
	SenderID  string    `gorm:"type:varchar(64);not null;index;comment:发送者ID" json:"sender_id"`
	Body      string    `gorm:"type:text;not null;comment:消息内容" json:"body"`
	CreatedAt time.Time `gorm:"index;comment:创建时间" json:"created_at"`
}

func (Message) TableName() string { return "messages" }
