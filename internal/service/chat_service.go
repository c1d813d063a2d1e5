package service

import (
	"context"
	"sort"
	"strings"

	"imin-server/internal/model"
	"imin-server/pkg/apperr"
	"imin-server/pkg/clock"
	"imin-server/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxMessageLength     = 4000
	maxThreadTitleLength = 128
	maxGroupSize         = 50
)

// 这些标题视为未命名，展示时用参与者名称代替
var genericTitles = map[string]struct{}{
	"":         {},
	"chat":     {},
	"new chat": {},
}

// ThreadView 会话及其展示标题
type ThreadView struct {
	*model.Thread
	DisplayTitle string
}

// ChatService 会话与消息服务
type ChatService struct {
	threads  ThreadStore
	messages MessageStore
	users    UserStore
	blocks   BlockStore
	notifier MessageNotifier
	clock    clock.Clock
}

// NewChatService 创建ChatService实例，notifier 可为 nil
func NewChatService(stores *Stores, notifier MessageNotifier, clk clock.Clock) *ChatService {
	return &ChatService{
		threads:  stores.Threads,
		messages: stores.Messages,
		users:    stores.Users,
		blocks:   stores.Blocks,
		notifier: notifier,
		clock:    clk,
	}
}

// OpenOrCreateThread 打开与 otherUserID 的单聊会话，不存在时创建
// 同一用户对（与顺序无关）始终得到同一个会话
func (s *ChatService) OpenOrCreateThread(ctx context.Context, requesterID, otherUserID string) (*ThreadView, error) {
	otherUserID = strings.TrimSpace(otherUserID)
	if otherUserID == "" {
		return nil, apperr.Validation("user_id must not be empty")
	}
	if otherUserID == requesterID {
		return nil, apperr.InvalidRecipient("cannot open a thread with yourself")
	}
	if _, err := s.users.GetByID(ctx, otherUserID); err != nil {
		return nil, storeErr(err, "user not found")
	}

	now := s.clock.Now()
	thread, _, err := s.threads.CreateOrGetDirect(ctx, &model.Thread{
		ID:        uuid.NewString(),
		CreatedBy: requesterID,
		CreatedAt: now,
		UpdatedAt: now,
	}, requesterID, otherUserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	// 之前离开过会话的一方重新打开时恢复参与
	if !thread.HasParticipant(requesterID) {
		if err := s.threads.AddParticipant(ctx, thread.ID, requesterID, now); err != nil {
			return nil, apperr.Internal(err)
		}
		thread.ParticipantIDs = append(thread.ParticipantIDs, requesterID)
	}
	return s.view(ctx, thread, requesterID)
}

// CreateGroupThread 创建群聊；去重后只有两人时等同于单聊
func (s *ChatService) CreateGroupThread(ctx context.Context, requesterID string, participantIDs []string, title string) (*ThreadView, error) {
	ids := dedupe(append([]string{requesterID}, participantIDs...))
	if len(ids) < 2 {
		return nil, apperr.Validation("a thread needs at least one other participant")
	}
	if len(ids) > maxGroupSize {
		return nil, apperr.Validation("too many participants")
	}
	if len(ids) == 2 {
		return s.OpenOrCreateThread(ctx, requesterID, ids[1])
	}

	title = strings.TrimSpace(title)
	if len([]rune(title)) > maxThreadTitleLength {
		return nil, apperr.Validation("title is too long")
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(users) != len(ids) {
		return nil, apperr.NotFound("one or more participants not found")
	}

	now := s.clock.Now()
	thread := &model.Thread{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedBy: requesterID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.threads.CreateGroup(ctx, thread, ids); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.view(ctx, thread, requesterID)
}

// SendMessage 发送消息
func (s *ChatService) SendMessage(ctx context.Context, threadID, senderID, body string) (*model.Message, error) {
	body, err := normalizeText("body", body, maxMessageLength)
	if err != nil {
		return nil, err
	}
	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return nil, storeErr(err, "thread not found")
	}
	if !thread.HasParticipant(senderID) {
		return nil, apperr.Authorization("you are not a participant of this thread")
	}

	// 唯一的对方拉黑了发送者时明确拒绝，而不是静默丢弃
	if other, ok := s.soleCounterpart(thread, senderID); ok {
		blocked, err := s.blocks.Exists(ctx, other, senderID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if blocked {
			return nil, apperr.Blocked("the recipient is not accepting your messages")
		}
	}

	now := s.clock.Now()
	// 单聊中对方已离开时，新消息让会话重新出现在对方列表中
	if other, ok := thread.PairCounterpart(senderID); ok && !thread.HasParticipant(other) {
		if err := s.threads.AddParticipant(ctx, thread.ID, other, now); err != nil {
			return nil, apperr.Internal(err)
		}
		thread.ParticipantIDs = append(thread.ParticipantIDs, other)
	}

	msg := &model.Message{
		ID:        uuid.NewString(),
		ThreadID:  thread.ID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: now,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, storeErr(err, "thread not found")
	}
	thread.UpdatedAt = msg.CreatedAt

	s.notify(ctx, thread, msg)
	return msg, nil
}

// ListThreads 用户参与的会话，按最后活跃时间倒序
// 同一参与者集合存在多个会话时只保留最近活跃的一个
func (s *ChatService) ListThreads(ctx context.Context, userID string) ([]*ThreadView, error) {
	threads, err := s.threads.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	sort.SliceStable(threads, func(i, j int) bool {
		if !threads[i].UpdatedAt.Equal(threads[j].UpdatedAt) {
			return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
		}
		return threads[i].ID < threads[j].ID
	})

	seen := make(map[string]struct{}, len(threads))
	kept := make([]*model.Thread, 0, len(threads))
	for _, t := range threads {
		key := t.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, t)
	}

	names, err := s.displayNames(ctx, kept)
	if err != nil {
		return nil, err
	}
	views := make([]*ThreadView, 0, len(kept))
	for _, t := range kept {
		views = append(views, &ThreadView{Thread: t, DisplayTitle: deriveTitle(t, userID, names)})
	}
	return views, nil
}

// DeleteThread 离开会话，其他参与者保留会话与历史；最后一人离开时回收会话
func (s *ChatService) DeleteThread(ctx context.Context, threadID, userID string) error {
	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return storeErr(err, "thread not found")
	}
	if !thread.HasParticipant(userID) {
		return apperr.Authorization("you are not a participant of this thread")
	}
	remaining, err := s.threads.RemoveParticipant(ctx, threadID, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	if remaining == 0 {
		if err := s.threads.Delete(ctx, threadID); err != nil {
			return apperr.Internal(err)
		}
	}
	return nil
}

// ListMessages 会话消息，按时间升序；隐藏查看者拉黑的发送者的消息
func (s *ChatService) ListMessages(ctx context.Context, threadID, viewerID string) ([]*model.Message, error) {
	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return nil, storeErr(err, "thread not found")
	}
	if !thread.HasParticipant(viewerID) {
		return nil, apperr.Authorization("you are not a participant of this thread")
	}

	msgs, err := s.messages.ListByThread(ctx, threadID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	blocks, err := s.blocks.ListByBlocker(ctx, viewerID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(blocks) == 0 {
		return msgs, nil
	}
	hidden := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		hidden[b.BlockedID] = struct{}{}
	}
	visible := make([]*model.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := hidden[m.SenderID]; !ok {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

// soleCounterpart 发送者之外唯一的另一方：单聊为用户对中的对方，群聊仅在只剩一人时成立
func (s *ChatService) soleCounterpart(thread *model.Thread, senderID string) (string, bool) {
	if other, ok := thread.PairCounterpart(senderID); ok {
		return other, true
	}
	var others []string
	for _, id := range thread.ParticipantIDs {
		if id != senderID {
			others = append(others, id)
		}
	}
	if len(others) == 1 {
		return others[0], true
	}
	return "", false
}

// notify 推送给其他在线参与者，跳过拉黑了发送者的人
func (s *ChatService) notify(ctx context.Context, thread *model.Thread, msg *model.Message) {
	if s.notifier == nil {
		return
	}
	recipients := make([]string, 0, len(thread.ParticipantIDs))
	for _, id := range thread.ParticipantIDs {
		if id == msg.SenderID {
			continue
		}
		blocked, err := s.blocks.Exists(ctx, id, msg.SenderID)
		if err != nil {
			logger.Warn("check block before notify failed", zap.String("user_id", id), zap.Error(err))
			continue
		}
		if !blocked {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) > 0 {
		s.notifier.NotifyMessage(recipients, thread, msg)
	}
}

func (s *ChatService) view(ctx context.Context, thread *model.Thread, viewerID string) (*ThreadView, error) {
	names, err := s.displayNames(ctx, []*model.Thread{thread})
	if err != nil {
		return nil, err
	}
	return &ThreadView{Thread: thread, DisplayTitle: deriveTitle(thread, viewerID, names)}, nil
}

// displayNames 批量查询会话参与者的显示名
func (s *ChatService) displayNames(ctx context.Context, threads []*model.Thread) (map[string]string, error) {
	var ids []string
	for _, t := range threads {
		ids = append(ids, t.ParticipantIDs...)
		if p, ok := t.Pair(); ok {
			ids = append(ids, p.Low, p.High)
		}
	}
	users, err := s.users.GetByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names, nil
}

// deriveTitle 标题为空或是通用标题时，用其他参与者名称（排序后）拼接
func deriveTitle(t *model.Thread, viewerID string, names map[string]string) string {
	if _, generic := genericTitles[strings.ToLower(strings.TrimSpace(t.Title))]; !generic {
		return t.Title
	}

	var others []string
	if other, ok := t.PairCounterpart(viewerID); ok {
		others = []string{other}
	} else {
		for _, id := range t.ParticipantIDs {
			if id != viewerID {
				others = append(others, id)
			}
		}
	}

	labels := make([]string, 0, len(others))
	for _, id := range others {
		if name, ok := names[id]; ok && name != "" {
			labels = append(labels, name)
		} else {
			labels = append(labels, id)
		}
	}
	if len(labels) == 0 {
		return "Chat"
	}
	sort.Strings(labels)
	return strings.Join(labels, ", ")
}
