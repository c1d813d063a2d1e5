package model

import (
	"time"
)

// FriendRequestStatus 好友请求状态
// pending -> accepted | declined，两个结果状态均为终态
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

// FriendRequest 好友请求
// OpenLowID/OpenHighID 为规范化后的用户对，仅在 pending/accepted 时非空；
// 其复合唯一索引保证同一对用户之间最多存在一条未拒绝的请求。declined 时置空，允许重新发起。
type FriendRequest struct {
	ID          string              `gorm:"type:char(36);primaryKey" json:"id"`
	SenderID    string              `gorm:"type:varchar(64);not null;index;comment:发送者ID" json:"sender_id"`
	ReceiverID  string              `gorm:"type:varchar(64);not null;index;comment:接收者ID" json:"receiver_id"`
	Status      FriendRequestStatus `gorm:"type:varchar(16);not null;default:'pending';index;comment:请求状态" json:"status"`
	OpenLowID   *string             `gorm:"type:varchar(64);uniqueIndex:uidx_open_request_pair,priority:1;comment:未拒绝请求用户对(较小ID)" json:"-"`
	OpenHighID  *string             `gorm:"type:varchar(64);uniqueIndex:uidx_open_request_pair,priority:2;comment:未拒绝请求用户对(较大ID)" json:"-"`
	CreatedAt   time.Time           `gorm:"comment:创建时间" json:"created_at"`
	RespondedAt *time.Time          `gorm:"comment:处理时间" json:"responded_at,omitempty"`
}

func (FriendRequest) TableName() string { return "friend_requests" }

// Pair 请求双方的规范用户对
func (r *FriendRequest) Pair() Pair { return NewPair(r.SenderID, r.ReceiverID) }

// SetOpen 标记请求是否占用用户对（pending/accepted 占用，declined 释放）
func (r *FriendRequest) SetOpen(open bool) {
	if !open {
		r.OpenLowID, r.OpenHighID = nil, nil
		return
	}
	p := r.Pair()
	r.OpenLowID, r.OpenHighID = &p.Low, &p.High
}

// Counterpart 返回请求中 userID 的另一方
func (r *FriendRequest) Counterpart(userID string) string {
	if r.SenderID == userID {
		return r.ReceiverID
	}
	return r.SenderID
}
