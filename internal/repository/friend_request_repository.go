package repository

import (
	"context"
	"time"

	"imin-server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FriendRequestRepository 好友请求数据仓储
type FriendRequestRepository struct {
	db *gorm.DB
}

// NewFriendRequestRepository 创建FriendRequestRepository实例
func NewFriendRequestRepository(db *gorm.DB) *FriendRequestRepository {
	return &FriendRequestRepository{db: db}
}

// CreateOrGetOpen 插入新的 pending 请求；若该用户对已有 pending/accepted 请求则返回已有记录
// 依赖 (open_low_id, open_high_id) 复合唯一索引，插入冲突时读取胜出的记录
func (r *FriendRequestRepository) CreateOrGetOpen(ctx context.Context, req *model.FriendRequest) (*model.FriendRequest, bool, error) {
	pair := req.Pair()
	req.SetOpen(true)

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(req)
	if res.Error != nil {
		return nil, false, translate(res.Error, "friendRequestRepo.CreateOrGetOpen")
	}
	if res.RowsAffected > 0 {
		return req, true, nil
	}

	var existing model.FriendRequest
	if err := r.db.WithContext(ctx).First(&existing, "open_low_id = ? AND open_high_id = ?", pair.Low, pair.High).Error; err != nil {
		return nil, false, translate(err, "friendRequestRepo.CreateOrGetOpen.fetch")
	}
	return &existing, false, nil
}

func (r *FriendRequestRepository) Get(ctx context.Context, id string) (*model.FriendRequest, error) {
	var fr model.FriendRequest
	if err := r.db.WithContext(ctx).First(&fr, "id = ?", id).Error; err != nil {
		return nil, translate(err, "friendRequestRepo.Get")
	}
	return &fr, nil
}

// Resolve 条件更新 pending -> status，返回是否更新成功（已处理过的请求返回 false）
func (r *FriendRequestRepository) Resolve(ctx context.Context, id string, status model.FriendRequestStatus, now time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":       status,
		"responded_at": now,
	}
	if status == model.FriendRequestDeclined {
		updates["open_low_id"] = gorm.Expr("NULL")
		updates["open_high_id"] = gorm.Expr("NULL")
	}
	res := r.db.WithContext(ctx).
		Model(&model.FriendRequest{}).
		Where("id = ? AND status = ?", id, model.FriendRequestPending).
		Updates(updates)
	if res.Error != nil {
		return false, translate(res.Error, "friendRequestRepo.Resolve")
	}
	return res.RowsAffected > 0, nil
}

// ListAccepted 用户参与的所有已接受请求
func (r *FriendRequestRepository) ListAccepted(ctx context.Context, userID string) ([]*model.FriendRequest, error) {
	var list []*model.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, model.FriendRequestAccepted).
		Order("responded_at ASC, id ASC").
		Find(&list).Error
	return list, translate(err, "friendRequestRepo.ListAccepted")
}

// ListPending 待处理请求，incoming=true 为收到的，否则为发出的
func (r *FriendRequestRepository) ListPending(ctx context.Context, userID string, incoming bool) ([]*model.FriendRequest, error) {
	column := "sender_id"
	if incoming {
		column = "receiver_id"
	}
	var list []*model.FriendRequest
	err := r.db.WithContext(ctx).
		Where(column+" = ? AND status = ?", userID, model.FriendRequestPending).
		Order("created_at DESC, id ASC").
		Find(&list).Error
	return list, translate(err, "friendRequestRepo.ListPending")
}
