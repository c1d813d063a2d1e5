package model

import "time"

// Circle 用户自定义的好友分组，用于限定在线状态的可见范围
// 成员是简单集合，所有者不必是成员
type Circle struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID   string    `gorm:"type:varchar(64);not null;index;comment:所有者ID" json:"owner_id"`
	Name      string    `gorm:"type:varchar(64);not null;comment:分组名称" json:"name"`
	CreatedAt time.Time `gorm:"comment:创建时间" json:"created_at"`
	UpdatedAt time.Time `gorm:"comment:更新时间" json:"updated_at"`

	MemberIDs []string `gorm:"-" json:"member_ids"`
}

func (Circle) TableName() string { return "circles" }

// HasMember 判断 userID 是否为成员
func (c *Circle) HasMember(userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CircleMember 分组成员，复合主键 (circle_id, user_id)
type CircleMember struct {
	CircleID  string    `gorm:"type:char(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(64);primaryKey;index"`
	CreatedAt time.Time `gorm:"comment:加入时间"`
}

func (CircleMember) TableName() string { return "circle_members" }
