package memory

import (
	"context"
	"sort"
	"time"

	"imin-server/internal/model"
	"imin-server/internal/repository"
)

// ThreadRepository 内存会话仓储
type ThreadRepository struct{ s *Store }

func cloneThread(t *model.Thread) *model.Thread {
	out := *t
	if p, ok := t.Pair(); ok {
		out.SetPair(&p)
	}
	out.ParticipantIDs = cloneStrings(t.ParticipantIDs)
	return &out
}

func (r *ThreadRepository) CreateOrGetDirect(_ context.Context, thread *model.Thread, a, b string) (*model.Thread, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pair := model.NewPair(a, b)
	if id, ok := r.s.pairs[pair]; ok {
		return cloneThread(r.s.threads[id]), false, nil
	}
	thread.SetPair(&pair)
	thread.IsGroup = false
	thread.ParticipantIDs = []string{a, b}
	r.s.threads[thread.ID] = cloneThread(thread)
	r.s.pairs[pair] = thread.ID
	return thread, true, nil
}

func (r *ThreadRepository) CreateGroup(_ context.Context, thread *model.Thread, participantIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.threads[thread.ID]; ok {
		return repository.ErrDuplicate
	}
	thread.SetPair(nil)
	thread.IsGroup = true
	thread.ParticipantIDs = cloneStrings(participantIDs)
	r.s.threads[thread.ID] = cloneThread(thread)
	return nil
}

// Insert 直接写入一条会话（不经过去重），用于构造历史重复数据
func (r *ThreadRepository) Insert(thread *model.Thread) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.threads[thread.ID] = cloneThread(thread)
}

func (r *ThreadRepository) Get(_ context.Context, id string) (*model.Thread, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.threads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneThread(t), nil
}

func (r *ThreadRepository) ListForUser(_ context.Context, userID string) ([]*model.Thread, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.Thread, 0)
	for _, t := range r.s.threads {
		if containsString(t.ParticipantIDs, userID) {
			out = append(out, cloneThread(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ThreadRepository) AddParticipant(_ context.Context, threadID, userID string, _ time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.threads[threadID]
	if !ok {
		return repository.ErrNotFound
	}
	if !containsString(t.ParticipantIDs, userID) {
		t.ParticipantIDs = append(t.ParticipantIDs, userID)
	}
	return nil
}

func (r *ThreadRepository) RemoveParticipant(_ context.Context, threadID, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.threads[threadID]
	if !ok {
		return 0, nil
	}
	t.ParticipantIDs = removeString(t.ParticipantIDs, userID)
	return len(t.ParticipantIDs), nil
}

func (r *ThreadRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.deleteThreadLocked(id)
	return nil
}

func (s *Store) deleteThreadLocked(id string) {
	if t, ok := s.threads[id]; ok {
		if p, direct := t.Pair(); direct && s.pairs[p] == id {
			delete(s.pairs, p)
		}
	}
	delete(s.threads, id)
	delete(s.messages, id)
}

// MessageRepository 内存消息仓储
type MessageRepository struct{ s *Store }

func (r *MessageRepository) Append(_ context.Context, msg *model.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.threads[msg.ThreadID]
	if !ok {
		return repository.ErrNotFound
	}
	msg.Seq = t.LastSeq + 1
	if msg.CreatedAt.Before(t.UpdatedAt) {
		msg.CreatedAt = t.UpdatedAt
	}
	t.LastSeq = msg.Seq
	t.UpdatedAt = msg.CreatedAt
	stored := *msg
	r.s.messages[msg.ThreadID] = append(r.s.messages[msg.ThreadID], &stored)
	return nil
}

func (r *MessageRepository) ListByThread(_ context.Context, threadID string) ([]*model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	src := r.s.messages[threadID]
	out := make([]*model.Message, 0, len(src))
	for _, m := range src {
		c := *m
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (r *MessageRepository) Get(_ context.Context, id string) (*model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, list := range r.s.messages {
		for _, m := range list {
			if m.ID == id {
				c := *m
				return &c, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}
