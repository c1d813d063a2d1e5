package model

import "time"

// Thread 会话（单聊或群聊）
// PairLowID/PairHighID 仅单聊有值，复合唯一索引保证同一对用户之间只有一个单聊会话
// LastSeq 为会话内最后一条消息的序号，用于消息稳定排序
type Thread struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	Title      string    `gorm:"type:varchar(128);not null;default:'';comment:会话标题" json:"title"`
	PairLowID  *string   `gorm:"type:varchar(64);uniqueIndex:uidx_thread_pair,priority:1;comment:单聊用户对(较小ID)" json:"-"`
	PairHighID *string   `gorm:"type:varchar(64);uniqueIndex:uidx_thread_pair,priority:2;comment:单聊用户对(较大ID)" json:"-"`
	IsGroup    bool      `gorm:"not null;default:false;comment:是否群聊" json:"is_group"`
	CreatedBy  string    `gorm:"type:varchar(64);not null;comment:创建者ID" json:"created_by"`
	LastSeq    int64     `gorm:"not null;default:0;comment:最后消息序号" json:"-"`
	CreatedAt  time.Time `gorm:"comment:创建时间" json:"created_at"`
	UpdatedAt  time.Time `gorm:"index;comment:最后活跃时间" json:"updated_at"`

	ParticipantIDs []string `gorm:"-" json:"participant_ids"`
}

func (Thread) TableName() string { return "threads" }

// IsDirect 是否单聊
func (t *Thread) IsDirect() bool { return t.PairLowID != nil && t.PairHighID != nil }

// Pair 单聊的用户对
func (t *Thread) Pair() (Pair, bool) {
	if !t.IsDirect() {
		return Pair{}, false
	}
	return Pair{Low: *t.PairLowID, High: *t.PairHighID}, true
}

// SetPair 设置单聊用户对，nil 表示群聊
func (t *Thread) SetPair(p *Pair) {
	if p == nil {
		t.PairLowID, t.PairHighID = nil, nil
		return
	}
	low, high := p.Low, p.High
	t.PairLowID, t.PairHighID = &low, &high
}

// HasParticipant 判断 userID 是否为当前参与者
func (t *Thread) HasParticipant(userID string) bool {
	for _, id := range t.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// PairCounterpart 单聊中 userID 的对方（即使对方已离开会话）
func (t *Thread) PairCounterpart(userID string) (string, bool) {
	p, ok := t.Pair()
	if !ok {
		return "", false
	}
	return p.Other(userID)
}

// DedupKey 列表去重键：单聊用用户对，群聊用当前参与者集合
func (t *Thread) DedupKey() string {
	if p, ok := t.Pair(); ok {
		return ParticipantSetKey([]string{p.Low, p.High})
	}
	return ParticipantSetKey(t.ParticipantIDs)
}

// ThreadMember 会话参与者，复合主键 (thread_id, user_id)
type ThreadMember struct {
	ThreadID string    `gorm:"type:char(36);primaryKey"`
	UserID   string    `gorm:"type:varchar(64);primaryKey;index"`
	JoinedAt time.Time `gorm:"comment:加入时间"`
}

func (ThreadMember) TableName() string { return "thread_members" }
