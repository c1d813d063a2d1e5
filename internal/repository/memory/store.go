// Package memory 进程内存储实现，与 gorm 仓储行为一致（同样的哨兵错误与幂等语义），
// 用于本地开发（database.driver: memory）与服务层测试。
package memory

import (
	"sort"
	"sync"

	"imin-server/internal/model"
)

// Store 所有关系共用一把锁，单个操作内的"检查再写入"因此是原子的
type Store struct {
	mu sync.Mutex

	users     map[string]*model.User
	circles   map[string]*model.Circle
	requests  map[string]*model.FriendRequest
	openPairs map[model.Pair]string // 未拒绝请求的用户对 -> request id
	presence  map[string]*model.Presence
	threads   map[string]*model.Thread
	pairs     map[model.Pair]string // 单聊用户对 -> thread id
	messages  map[string][]*model.Message
	blocks    map[blockKey]*model.Block
	reports   []*model.Report
}

type blockKey struct {
	blocker string
	blocked string
}

// New 创建空存储
func New() *Store {
	return &Store{
		users:     make(map[string]*model.User),
		circles:   make(map[string]*model.Circle),
		requests:  make(map[string]*model.FriendRequest),
		openPairs: make(map[model.Pair]string),
		presence:  make(map[string]*model.Presence),
		threads:   make(map[string]*model.Thread),
		pairs:     make(map[model.Pair]string),
		messages:  make(map[string][]*model.Message),
		blocks:    make(map[blockKey]*model.Block),
	}
}

func (s *Store) Users() *UserRepository                   { return &UserRepository{s} }
func (s *Store) Circles() *CircleRepository               { return &CircleRepository{s} }
func (s *Store) FriendRequests() *FriendRequestRepository { return &FriendRequestRepository{s} }
func (s *Store) Presence() *PresenceRepository            { return &PresenceRepository{s} }
func (s *Store) Threads() *ThreadRepository               { return &ThreadRepository{s} }
func (s *Store) Messages() *MessageRepository             { return &MessageRepository{s} }
func (s *Store) Blocks() *BlockRepository                 { return &BlockRepository{s} }
func (s *Store) Reports() *ReportRepository               { return &ReportRepository{s} }

// Reported 已记录的举报（测试用）
func (s *Store) Reported() []model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, *r)
	}
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func removeString(list []string, v string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
