package memory

import (
	"context"
	"strings"

	"imin-server/internal/model"
	"imin-server/internal/repository"
)

// UserRepository 内存用户仓储
type UserRepository struct{ s *Store }

func cloneUser(u *model.User) *model.User {
	c := *u
	if u.Handle != nil {
		h := *u.Handle
		c.Handle = &h
	}
	if u.Email != nil {
		e := *u.Email
		c.Email = &e
	}
	return &c
}

func (r *UserRepository) Ensure(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok {
		return nil
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByIDs(_ context.Context, ids []string) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *UserRepository) FindByHandle(_ context.Context, handle string) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	handle = strings.ToLower(handle)
	var out []*model.User
	for _, id := range sortedKeys(r.s.users) {
		u := r.s.users[id]
		if u.SearchableByHandle && u.Handle != nil && *u.Handle == handle {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.User
	for _, id := range sortedKeys(r.s.users) {
		u := r.s.users[id]
		if u.Email != nil && strings.EqualFold(*u.Email, email) {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users[user.ID]
	if !ok {
		return nil
	}
	if user.Handle != nil {
		for id, other := range r.s.users {
			if id != user.ID && other.Handle != nil && *other.Handle == *user.Handle {
				return repository.ErrDuplicate
			}
		}
	}
	updated := cloneUser(user)
	updated.Email = existing.Email
	updated.CreatedAt = existing.CreatedAt
	r.s.users[user.ID] = updated
	return nil
}

// Delete 删除账号并级联删除其拥有的数据
func (r *UserRepository) Delete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for cid, c := range s.circles {
		if c.OwnerID == id {
			delete(s.circles, cid)
			continue
		}
		c.MemberIDs = removeString(c.MemberIDs, id)
	}
	for rid, req := range s.requests {
		if req.SenderID == id || req.ReceiverID == id {
			if req.OpenLowID != nil && s.openPairs[req.Pair()] == rid {
				delete(s.openPairs, req.Pair())
			}
			delete(s.requests, rid)
		}
	}
	delete(s.presence, id)
	for k := range s.blocks {
		if k.blocker == id || k.blocked == id {
			delete(s.blocks, k)
		}
	}
	kept := s.reports[:0]
	for _, rep := range s.reports {
		if rep.ReporterID != id {
			kept = append(kept, rep)
		}
	}
	s.reports = kept
	for tid, list := range s.messages {
		remaining := list[:0]
		for _, m := range list {
			if m.SenderID != id {
				remaining = append(remaining, m)
			}
		}
		s.messages[tid] = remaining
	}
	for tid, t := range s.threads {
		if !containsString(t.ParticipantIDs, id) {
			continue
		}
		t.ParticipantIDs = removeString(t.ParticipantIDs, id)
		if len(t.ParticipantIDs) == 0 {
			s.deleteThreadLocked(tid)
		}
	}
	delete(s.users, id)
	return nil
}
