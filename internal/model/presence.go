package model

import (
	"time"

	"gorm.io/datatypes"
)

// PresenceState 在线状态，只有 in / out 两种
type PresenceState string

const (
	PresenceOut PresenceState = "out"
	PresenceIn  PresenceState = "in"
)

// VisibilityMode 可见范围
type VisibilityMode string

const (
	VisibleToEveryone VisibilityMode = "everyone"
	VisibleToCircles  VisibilityMode = "circles"
)

// Presence 每个用户一行（user_id 主键，整行覆盖写）
// state=out 时可见范围字段保留，作为下次切换到 in 的默认值
type Presence struct {
	UserID              string                      `gorm:"type:varchar(64);primaryKey" json:"user_id"`
	State               PresenceState               `gorm:"type:varchar(8);not null;default:'out';index;comment:状态" json:"state"`
	VisibilityMode      VisibilityMode              `gorm:"type:varchar(16);not null;default:'everyone';comment:可见范围" json:"visibility_mode"`
	VisibilityCircleIDs datatypes.JSONSlice[string] `gorm:"type:json;comment:可见分组ID列表" json:"visibility_circle_ids"`
	ExpiresAt           *time.Time                  `gorm:"index;comment:自动重置时间" json:"expires_at,omitempty"`
	UpdatedAt           time.Time                   `gorm:"comment:更新时间" json:"updated_at"`
}

func (Presence) TableName() string { return "presence" }

// DefaultPresence 用户从未设置过状态时的默认值
func DefaultPresence(userID string) *Presence {
	return &Presence{
		UserID:         userID,
		State:          PresenceOut,
		VisibilityMode: VisibleToEveryone,
	}
}

// IsExpired 过期判定，惰性检查与定时扫描共用同一谓词 now >= expiresAt
func (p *Presence) IsExpired(now time.Time) bool {
	return p.State == PresenceIn && p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// ExpireAt 将已过期的记录切换为 out（可见范围字段保留）
func (p *Presence) ExpireAt(now time.Time) {
	p.State = PresenceOut
	p.ExpiresAt = nil
	p.UpdatedAt = now
}
