package model

import (
	"time"
)

// User 用户（由外部身份提供方创建，本服务在首次认证请求时落库）
// Handle 唯一、可选，统一存储为小写
// AutoReset 为用户设置的"In"状态自动重置时长
// TimeZone 为 IANA 时区名，用于计算 "tonight" 选项
type User struct {
	ID                 string    `gorm:"type:varchar(64);primaryKey;comment:用户ID(身份提供方subject)" json:"id"`
	Name               string    `gorm:"type:varchar(64);not null;default:'';comment:显示名称" json:"name"`
	Handle             *string   `gorm:"type:varchar(64);uniqueIndex;comment:用户名(唯一,可搜索)" json:"handle,omitempty"`
	Email              *string   `gorm:"type:varchar(255);index;comment:邮箱" json:"email,omitempty"`
	SearchableByHandle bool      `gorm:"not null;default:true;comment:是否允许通过handle搜索" json:"searchable_by_handle"`
	AutoReset          AutoReset `gorm:"type:varchar(16);not null;default:'';comment:自动重置时长" json:"auto_reset"`
	TimeZone           string    `gorm:"type:varchar(64);not null;default:'';comment:时区" json:"time_zone"`
	CreatedAt          time.Time `gorm:"comment:创建时间" json:"created_at"`
	UpdatedAt          time.Time `gorm:"comment:更新时间" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// DisplayName 展示用名称，名称为空时回退到 handle
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Handle != nil && *u.Handle != "" {
		return "@" + *u.Handle
	}
	return u.ID
}
