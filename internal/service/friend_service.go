package service

import (
	"context"
	"sort"
	"strings"

	"imin-server/internal/model"
	"imin-server/pkg/apperr"
	"imin-server/pkg/clock"

	"github.com/google/uuid"
)

// FriendService 好友关系服务
type FriendService struct {
	requests FriendRequestStore
	users    UserStore
	clock    clock.Clock
}

// NewFriendService 创建FriendService实例
func NewFriendService(stores *Stores, clk clock.Clock) *FriendService {
	return &FriendService{
		requests: stores.Requests,
		users:    stores.Users,
		clock:    clk,
	}
}

// SendRequest 发送好友请求
// 双方之间已有 pending/accepted 请求（任一方向）时返回已有记录，created=false
func (s *FriendService) SendRequest(ctx context.Context, senderID, recipientQuery string) (*model.FriendRequest, bool, error) {
	receiver, err := s.resolveRecipient(ctx, recipientQuery)
	if err != nil {
		return nil, false, err
	}
	if receiver.ID == senderID {
		return nil, false, apperr.InvalidRecipient("cannot send a friend request to yourself")
	}

	req := &model.FriendRequest{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiver.ID,
		Status:     model.FriendRequestPending,
		CreatedAt:  s.clock.Now(),
	}
	saved, created, err := s.requests.CreateOrGetOpen(ctx, req)
	if err != nil {
		return nil, false, apperr.Internal(err)
	}
	return saved, created, nil
}

// Respond 接收者处理好友请求，已处理的请求返回 ConflictError
func (s *FriendService) Respond(ctx context.Context, requestID, responderID string, accept bool) (*model.FriendRequest, error) {
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, storeErr(err, "friend request not found")
	}
	if req.ReceiverID != responderID {
		return nil, apperr.Authorization("only the receiver can respond to this request")
	}
	if req.Status != model.FriendRequestPending {
		return nil, apperr.Conflict("friend request already " + string(req.Status))
	}

	status := model.FriendRequestDeclined
	if accept {
		status = model.FriendRequestAccepted
	}
	ok, err := s.requests.Resolve(ctx, requestID, status, s.clock.Now())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		// 并发处理时另一方先完成
		return nil, apperr.Conflict("friend request already resolved")
	}

	updated, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, storeErr(err, "friend request not found")
	}
	return updated, nil
}

// ListFriends 已接受请求投影出的对称好友集合，按显示名排序
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]*model.User, error) {
	accepted, err := s.requests.ListAccepted(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ids := make([]string, 0, len(accepted))
	for _, req := range accepted {
		ids = append(ids, req.Counterpart(userID))
	}
	friends, err := s.users.GetByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	sort.Slice(friends, func(i, j int) bool {
		a, b := strings.ToLower(friends[i].DisplayName()), strings.ToLower(friends[j].DisplayName())
		if a != b {
			return a < b
		}
		return friends[i].ID < friends[j].ID
	})
	return friends, nil
}

// ListRequests 待处理的好友请求，direction 为 incoming 或 outgoing
func (s *FriendService) ListRequests(ctx context.Context, userID, direction string) ([]*model.FriendRequest, error) {
	var incoming bool
	switch direction {
	case "", "incoming":
		incoming = true
	case "outgoing":
	default:
		return nil, apperr.Validation("direction must be incoming or outgoing")
	}
	list, err := s.requests.ListPending(ctx, userID, incoming)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// resolveRecipient 通过 handle 或邮箱定位用户，查无此人或不唯一均返回 NotFoundError
func (s *FriendService) resolveRecipient(ctx context.Context, query string) (*model.User, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, apperr.Validation("recipient must not be empty")
	}

	var (
		matches []*model.User
		err     error
	)
	if at := strings.Index(q, "@"); at > 0 {
		matches, err = s.users.FindByEmail(ctx, strings.ToLower(q))
	} else {
		matches, err = s.users.FindByHandle(ctx, strings.ToLower(strings.TrimPrefix(q, "@")))
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(matches) != 1 {
		return nil, apperr.NotFound("no user matches " + q)
	}
	return matches[0], nil
}
