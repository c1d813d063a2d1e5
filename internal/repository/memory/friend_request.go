package memory

import (
	"context"
	"sort"
	"time"

	"imin-server/internal/model"
	"imin-server/internal/repository"
)

// FriendRequestRepository 内存好友请求仓储
type FriendRequestRepository struct{ s *Store }

func cloneRequest(req *model.FriendRequest) *model.FriendRequest {
	out := *req
	out.SetOpen(req.OpenLowID != nil)
	if req.RespondedAt != nil {
		t := *req.RespondedAt
		out.RespondedAt = &t
	}
	return &out
}

func (r *FriendRequestRepository) CreateOrGetOpen(_ context.Context, req *model.FriendRequest) (*model.FriendRequest, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pair := req.Pair()
	if id, ok := r.s.openPairs[pair]; ok {
		return cloneRequest(r.s.requests[id]), false, nil
	}
	req.SetOpen(true)
	r.s.requests[req.ID] = cloneRequest(req)
	r.s.openPairs[pair] = req.ID
	return req, true, nil
}

func (r *FriendRequestRepository) Get(_ context.Context, id string) (*model.FriendRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRequest(req), nil
}

func (r *FriendRequestRepository) Resolve(_ context.Context, id string, status model.FriendRequestStatus, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok || req.Status != model.FriendRequestPending {
		return false, nil
	}
	req.Status = status
	t := now
	req.RespondedAt = &t
	if status == model.FriendRequestDeclined && req.OpenLowID != nil {
		delete(r.s.openPairs, req.Pair())
		req.SetOpen(false)
	}
	return true, nil
}

func (r *FriendRequestRepository) ListAccepted(_ context.Context, userID string) ([]*model.FriendRequest, error) {
	return r.list(func(req *model.FriendRequest) bool {
		return req.Status == model.FriendRequestAccepted && (req.SenderID == userID || req.ReceiverID == userID)
	}), nil
}

func (r *FriendRequestRepository) ListPending(_ context.Context, userID string, incoming bool) ([]*model.FriendRequest, error) {
	return r.list(func(req *model.FriendRequest) bool {
		if req.Status != model.FriendRequestPending {
			return false
		}
		if incoming {
			return req.ReceiverID == userID
		}
		return req.SenderID == userID
	}), nil
}

func (r *FriendRequestRepository) list(match func(*model.FriendRequest) bool) []*model.FriendRequest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.FriendRequest, 0)
	for _, req := range r.s.requests {
		if match(req) {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
