package memory

import (
	"context"
	"sort"
	"time"

	"imin-server/internal/model"
	"imin-server/internal/repository"
)

// PresenceRepository 内存在线状态仓储
type PresenceRepository struct{ s *Store }

func clonePresence(p *model.Presence) *model.Presence {
	out := *p
	out.VisibilityCircleIDs = cloneStrings(p.VisibilityCircleIDs)
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}

func (r *PresenceRepository) Get(_ context.Context, userID string) (*model.Presence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.presence[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePresence(p), nil
}

func (r *PresenceRepository) Upsert(_ context.Context, p *model.Presence) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.presence[p.UserID] = clonePresence(p)
	return nil
}

func (r *PresenceRepository) ExpireIfDue(_ context.Context, userID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.presence[userID]
	if !ok || !p.IsExpired(now) {
		return false, nil
	}
	p.ExpireAt(now)
	return true, nil
}

func (r *PresenceRepository) ListIn(_ context.Context) ([]*model.Presence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.Presence, 0)
	for _, id := range sortedKeys(r.s.presence) {
		if p := r.s.presence[id]; p.State == model.PresenceIn {
			out = append(out, clonePresence(p))
		}
	}
	return out, nil
}

func (r *PresenceRepository) ListDue(_ context.Context, now time.Time, limit int) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var due []*model.Presence
	for _, p := range r.s.presence {
		if p.IsExpired(now) {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(*due[j].ExpiresAt) })
	ids := make([]string, 0, len(due))
	for _, p := range due {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

func (r *PresenceRepository) RemoveCircle(_ context.Context, ownerID, circleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.presence[ownerID]; ok {
		p.VisibilityCircleIDs = removeString(p.VisibilityCircleIDs, circleID)
	}
	return nil
}
