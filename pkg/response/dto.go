package response

import (
	"time"

	"imin-server/internal/model"
)

// UserInfo 用户公开信息
type UserInfo struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Handle *string `json:"handle,omitempty"`
}

// ProfileInfo 当前用户的完整资料与设置
type ProfileInfo struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Handle             *string         `json:"handle,omitempty"`
	Email              *string         `json:"email,omitempty"`
	SearchableByHandle bool            `json:"searchable_by_handle"`
	AutoReset          model.AutoReset `json:"auto_reset"`
	TimeZone           string          `json:"time_zone,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// FilterUserInfo 仅保留公开字段
func FilterUserInfo(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}
	return &UserInfo{ID: user.ID, Name: user.DisplayName(), Handle: user.Handle}
}

// FilterUserList 批量转换
func FilterUserList(users []*model.User) []*UserInfo {
	out := make([]*UserInfo, 0, len(users))
	for _, u := range users {
		out = append(out, FilterUserInfo(u))
	}
	return out
}

// Profile 当前用户资料
func Profile(user *model.User, defaultAutoReset model.AutoReset) *ProfileInfo {
	autoReset := user.AutoReset
	if !autoReset.Valid() {
		autoReset = defaultAutoReset
	}
	return &ProfileInfo{
		ID:                 user.ID,
		Name:               user.Name,
		Handle:             user.Handle,
		Email:              user.Email,
		SearchableByHandle: user.SearchableByHandle,
		AutoReset:          autoReset,
		TimeZone:           user.TimeZone,
		CreatedAt:          user.CreatedAt,
		UpdatedAt:          user.UpdatedAt,
	}
}

// PresenceInfo 在线状态
type PresenceInfo struct {
	UserID              string               `json:"user_id"`
	State               model.PresenceState  `json:"state"`
	VisibilityMode      model.VisibilityMode `json:"visibility_mode,omitempty"`
	VisibilityCircleIDs []string             `json:"visibility_circle_ids,omitempty"`
	ExpiresAt           *time.Time           `json:"expires_at,omitempty"`
	UpdatedAt           *time.Time           `json:"updated_at,omitempty"`
}

// FilterPresence 转换在线状态
func FilterPresence(p *model.Presence) *PresenceInfo {
	if p == nil {
		return nil
	}
	info := &PresenceInfo{
		UserID:              p.UserID,
		State:               p.State,
		VisibilityMode:      p.VisibilityMode,
		VisibilityCircleIDs: []string(p.VisibilityCircleIDs),
		ExpiresAt:           p.ExpiresAt,
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		info.UpdatedAt = &t
	}
	return info
}

// VisiblePresenceInfo 可见在线用户列表项
type VisiblePresenceInfo struct {
	UserID    string              `json:"user_id"`
	Name      string              `json:"name"`
	Handle    *string             `json:"handle,omitempty"`
	State     model.PresenceState `json:"state"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
}

// CircleInfo 分组
type CircleInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MemberIDs []string  `json:"member_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FilterCircle 转换分组
func FilterCircle(c *model.Circle) *CircleInfo {
	if c == nil {
		return nil
	}
	members := c.MemberIDs
	if members == nil {
		members = []string{}
	}
	return &CircleInfo{ID: c.ID, Name: c.Name, MemberIDs: members, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

// FilterCircleList 批量转换
func FilterCircleList(circles []*model.Circle) []*CircleInfo {
	out := make([]*CircleInfo, 0, len(circles))
	for _, c := range circles {
		out = append(out, FilterCircle(c))
	}
	return out
}

// FriendRequestInfo 好友请求
type FriendRequestInfo struct {
	ID          string                    `json:"id"`
	SenderID    string                    `json:"sender_id"`
	ReceiverID  string                    `json:"receiver_id"`
	Status      model.FriendRequestStatus `json:"status"`
	CreatedAt   time.Time                 `json:"created_at"`
	RespondedAt *time.Time                `json:"responded_at,omitempty"`
}

// FilterFriendRequest 转换好友请求
func FilterFriendRequest(r *model.FriendRequest) *FriendRequestInfo {
	if r == nil {
		return nil
	}
	return &FriendRequestInfo{
		ID:          r.ID,
		SenderID:    r.SenderID,
		ReceiverID:  r.ReceiverID,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		RespondedAt: r.RespondedAt,
	}
}

// FilterFriendRequestList 批量转换
func FilterFriendRequestList(list []*model.FriendRequest) []*FriendRequestInfo {
	out := make([]*FriendRequestInfo, 0, len(list))
	for _, r := range list {
		out = append(out, FilterFriendRequest(r))
	}
	return out
}

// ThreadInfo 会话
type ThreadInfo struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	IsGroup        bool      `json:"is_group"`
	ParticipantIDs []string  `json:"participant_ids"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FilterThread 转换会话，title 为展示标题
func FilterThread(t *model.Thread, title string) *ThreadInfo {
	if t == nil {
		return nil
	}
	participants := t.ParticipantIDs
	if participants == nil {
		participants = []string{}
	}
	return &ThreadInfo{
		ID:             t.ID,
		Title:          title,
		IsGroup:        t.IsGroup,
		ParticipantIDs: participants,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// MessageInfo 消息
type MessageInfo struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// FilterMessageInfo 转换消息
func FilterMessageInfo(m *model.Message) *MessageInfo {
	if m == nil {
		return nil
	}
	return &MessageInfo{ID: m.ID, ThreadID: m.ThreadID, SenderID: m.SenderID, Body: m.Body, Seq: m.Seq, CreatedAt: m.CreatedAt}
}

// FilterMessageList 批量转换
func FilterMessageList(list []*model.Message) []*MessageInfo {
	out := make([]*MessageInfo, 0, len(list))
	for _, m := range list {
		out = append(out, FilterMessageInfo(m))
	}
	return out
}

// BlockInfo 拉黑记录
type BlockInfo struct {
	BlockedID string    `json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

func FilterBlock(b *model.Block) *BlockInfo {
	return &BlockInfo{BlockedID: b.BlockedID, CreatedAt: b.CreatedAt}
}

// FilterBlockList 批量转换
func FilterBlockList(list []*model.Block) []*BlockInfo {
	out := make([]*BlockInfo, 0, len(list))
	for _, b := range list {
		out = append(out, FilterBlock(b))
	}
	return out
}
