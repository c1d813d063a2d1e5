package service

import (
	"context"
	"time"

	"imin-server/internal/model"
)

// UserStore 用户存储
type UserStore interface {
	Ensure(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	FindByHandle(ctx context.Context, handle string) ([]*model.User, error)
	FindByEmail(ctx context.Context, email string) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

// CircleStore 分组存储
type CircleStore interface {
	Create(ctx context.Context, circle *model.Circle) error
	Get(ctx context.Context, id string) (*model.Circle, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Circle, error)
	Rename(ctx context.Context, id, name string, now time.Time) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, circleID, userID string, now time.Time) error
	RemoveMember(ctx context.Context, circleID, userID string) error
	// MembershipOwners 返回 userID 所在分组到其所有者的映射
	MembershipOwners(ctx context.Context, userID string) (map[string]string, error)
}

// FriendRequestStore 好友请求存储
type FriendRequestStore interface {
	CreateOrGetOpen(ctx context.Context, req *model.FriendRequest) (*model.FriendRequest, bool, error)
	Get(ctx context.Context, id string) (*model.FriendRequest, error)
	Resolve(ctx context.Context, id string, status model.FriendRequestStatus, now time.Time) (bool, error)
	ListAccepted(ctx context.Context, userID string) ([]*model.FriendRequest, error)
	ListPending(ctx context.Context, userID string, incoming bool) ([]*model.FriendRequest, error)
}

// PresenceStore 在线状态存储
type PresenceStore interface {
	Get(ctx context.Context, userID string) (*model.Presence, error)
	Upsert(ctx context.Context, p *model.Presence) error
	ExpireIfDue(ctx context.Context, userID string, now time.Time) (bool, error)
	ListIn(ctx context.Context) ([]*model.Presence, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]string, error)
	RemoveCircle(ctx context.Context, ownerID, circleID string) error
}

// ThreadStore 会话存储
type ThreadStore interface {
	CreateOrGetDirect(ctx context.Context, thread *model.Thread, a, b string) (*model.Thread, bool, error)
	CreateGroup(ctx context.Context, thread *model.Thread, participantIDs []string) error
	Get(ctx context.Context, id string) (*model.Thread, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Thread, error)
	AddParticipant(ctx context.Context, threadID, userID string, now time.Time) error
	RemoveParticipant(ctx context.Context, threadID, userID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// MessageStore 消息存储
type MessageStore interface {
	Append(ctx context.Context, msg *model.Message) error
	ListByThread(ctx context.Context, threadID string) ([]*model.Message, error)
	Get(ctx context.Context, id string) (*model.Message, error)
}

// BlockStore 拉黑关系存储
type BlockStore interface {
	Create(ctx context.Context, block *model.Block) error
	Delete(ctx context.Context, blockerID, blockedID string) error
	Exists(ctx context.Context, blockerID, blockedID string) (bool, error)
	ListByBlocker(ctx context.Context, blockerID string) ([]*model.Block, error)
	ListRelated(ctx context.Context, userID string) ([]*model.Block, error)
}

// ReportStore 举报存储
type ReportStore interface {
	Create(ctx context.Context, report *model.Report) error
}

// Stores 所有存储的集合，由 cmd/server 按配置的驱动组装
type Stores struct {
	Users    UserStore
	Circles  CircleStore
	Requests FriendRequestStore
	Presence PresenceStore
	Threads  ThreadStore
	Messages MessageStore
	Blocks   BlockStore
	Reports  ReportStore
}

// ExpirySchedule 在线状态过期时间索引（可选，redis 实现）
type ExpirySchedule interface {
	Schedule(ctx context.Context, userID string, at time.Time) error
	Cancel(ctx context.Context, userID string) error
	Due(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// MessageNotifier 新消息实时推送（可选，websocket 实现）
type MessageNotifier interface {
	NotifyMessage(recipientIDs []string, thread *model.Thread, msg *model.Message)
}
