package memory

import (
	"context"
	"sort"
	"time"

	"imin-server/internal/model"
	"imin-server/internal/repository"
)

// CircleRepository 内存分组仓储
type CircleRepository struct{ s *Store }

func cloneCircle(c *model.Circle) *model.Circle {
	out := *c
	out.MemberIDs = cloneStrings(c.MemberIDs)
	return &out
}

func (r *CircleRepository) Create(_ context.Context, circle *model.Circle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.circles[circle.ID]; ok {
		return repository.ErrDuplicate
	}
	stored := cloneCircle(circle)
	r.s.circles[circle.ID] = stored
	return nil
}

func (r *CircleRepository) Get(_ context.Context, id string) (*model.Circle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.circles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneCircle(c), nil
}

func (r *CircleRepository) ListByOwner(_ context.Context, ownerID string) ([]*model.Circle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.Circle, 0)
	for _, c := range r.s.circles {
		if c.OwnerID == ownerID {
			out = append(out, cloneCircle(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *CircleRepository) Rename(_ context.Context, id, name string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.circles[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Name = name
	c.UpdatedAt = now
	return nil
}

func (r *CircleRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.circles, id)
	return nil
}

func (r *CircleRepository) AddMember(_ context.Context, circleID, userID string, _ time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.circles[circleID]
	if !ok {
		return repository.ErrNotFound
	}
	if !containsString(c.MemberIDs, userID) {
		c.MemberIDs = append(c.MemberIDs, userID)
	}
	return nil
}

func (r *CircleRepository) RemoveMember(_ context.Context, circleID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.circles[circleID]; ok {
		c.MemberIDs = removeString(c.MemberIDs, userID)
	}
	return nil
}

func (r *CircleRepository) MembershipOwners(_ context.Context, userID string) (map[string]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	owners := make(map[string]string)
	for id, c := range r.s.circles {
		if containsString(c.MemberIDs, userID) {
			owners[id] = c.OwnerID
		}
	}
	return owners, nil
}
