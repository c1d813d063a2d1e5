package memory

import (
	"context"
	"sort"

	"imin-server/internal/model"
)

// BlockRepository 内存拉黑关系仓储
type BlockRepository struct{ s *Store }

func (r *BlockRepository) Create(_ context.Context, block *model.Block) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := blockKey{block.BlockerID, block.BlockedID}
	if _, ok := r.s.blocks[k]; ok {
		return nil
	}
	b := *block
	r.s.blocks[k] = &b
	return nil
}

func (r *BlockRepository) Delete(_ context.Context, blockerID, blockedID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.blocks, blockKey{blockerID, blockedID})
	return nil
}

func (r *BlockRepository) Exists(_ context.Context, blockerID, blockedID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.blocks[blockKey{blockerID, blockedID}]
	return ok, nil
}

func (r *BlockRepository) ListByBlocker(_ context.Context, blockerID string) ([]*model.Block, error) {
	return r.list(func(k blockKey) bool { return k.blocker == blockerID }), nil
}

func (r *BlockRepository) ListRelated(_ context.Context, userID string) ([]*model.Block, error) {
	return r.list(func(k blockKey) bool { return k.blocker == userID || k.blocked == userID }), nil
}

func (r *BlockRepository) list(match func(blockKey) bool) []*model.Block {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.Block, 0)
	for k, b := range r.s.blocks {
		if match(k) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].BlockedID < out[j].BlockedID
	})
	return out
}

// ReportRepository 内存举报仓储
type ReportRepository struct{ s *Store }

func (r *ReportRepository) Create(_ context.Context, report *model.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *report
	r.s.reports = append(r.s.reports, &c)
	return nil
}
