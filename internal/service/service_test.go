package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"imin-server/internal/model"
	"imin-server/internal/repository/memory"
	"imin-server/pkg/clock"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)

type testEnv struct {
	store    *memory.Store
	stores   *Stores
	clock    *clock.Fake
	schedule *fakeSchedule
	notifier *recordingNotifier

	presence *PresenceService
	circles  *CircleService
	friends  *FriendService
	chat     *ChatService
	safety   *SafetyService
	users    *UserService
	sweeper  *PresenceSweeper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memory.New()
	stores := &Stores{
		Users:    st.Users(),
		Circles:  st.Circles(),
		Requests: st.FriendRequests(),
		Presence: st.Presence(),
		Threads:  st.Threads(),
		Messages: st.Messages(),
		Blocks:   st.Blocks(),
		Reports:  st.Reports(),
	}
	clk := clock.NewFake(epoch)
	sched := newFakeSchedule()
	notifier := &recordingNotifier{}
	return &testEnv{
		store:    st,
		stores:   stores,
		clock:    clk,
		schedule: sched,
		notifier: notifier,
		presence: NewPresenceService(stores, sched, clk, PresenceOptions{
			DefaultAutoReset: model.AutoReset1Hour,
			TonightHour:      21,
			Location:         time.UTC,
		}),
		circles: NewCircleService(stores, clk),
		friends: NewFriendService(stores, clk),
		chat:    NewChatService(stores, notifier, clk),
		safety:  NewSafetyService(stores, clk),
		users:   NewUserService(stores, sched, clk),
		sweeper: NewPresenceSweeper(stores, sched, clk, time.Minute, 100),
	}
}

// user 创建测试用户
func (e *testEnv) user(t *testing.T, id, name string) *model.User {
	t.Helper()
	u, err := e.users.Ensure(context.Background(), Identity{UserID: id, Name: name, Email: id + "@example.com"})
	require.NoError(t, err)
	return u
}

type fakeSchedule struct {
	mu  sync.Mutex
	due map[string]time.Time
}

func newFakeSchedule() *fakeSchedule {
	return &fakeSchedule{due: make(map[string]time.Time)}
}

func (f *fakeSchedule) Schedule(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.due[userID] = at
	return nil
}

func (f *fakeSchedule) Cancel(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.due, userID)
	return nil
}

func (f *fakeSchedule) Due(_ context.Context, now time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, at := range f.due {
		if !at.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeSchedule) has(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.due[userID]
	return ok
}

type notification struct {
	recipients []string
	threadID   string
	messageID  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recordingNotifier) NotifyMessage(recipientIDs []string, thread *model.Thread, msg *model.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{
		recipients: append([]string(nil), recipientIDs...),
		threadID:   thread.ID,
		messageID:  msg.ID,
	})
}

func (r *recordingNotifier) last() (notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return notification{}, false
	}
	return r.sent[len(r.sent)-1], true
}

func visibleIDs(list []VisiblePresence) []string {
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.UserID)
	}
	return ids
}
