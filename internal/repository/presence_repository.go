package repository

import (
	"context"
	"time"

	"imin-server/internal/model"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PresenceRepository 在线状态数据仓储
type PresenceRepository struct {
	db *gorm.DB
}

// NewPresenceRepository 创建PresenceRepository实例
func NewPresenceRepository(db *gorm.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

func (r *PresenceRepository) Get(ctx context.Context, userID string) (*model.Presence, error) {
	var p model.Presence
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err, "presenceRepo.Get")
	}
	return &p, nil
}

// Upsert 整行覆盖写，按到达顺序后写者胜
func (r *PresenceRepository) Upsert(ctx context.Context, p *model.Presence) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "visibility_mode", "visibility_circle_ids", "expires_at", "updated_at"}),
		}).
		Create(p).Error
	return translate(err, "presenceRepo.Upsert")
}

// ExpireIfDue 条件更新：仅当 state=in 且 expires_at <= now 时切换为 out，重复执行无副作用
func (r *PresenceRepository) ExpireIfDue(ctx context.Context, userID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Presence{}).
		Where("user_id = ? AND state = ? AND expires_at IS NOT NULL AND expires_at <= ?", userID, model.PresenceIn, now).
		Updates(map[string]interface{}{
			"state":      model.PresenceOut,
			"expires_at": gorm.Expr("NULL"),
			"updated_at": now,
		})
	if res.Error != nil {
		return false, translate(res.Error, "presenceRepo.ExpireIfDue")
	}
	return res.RowsAffected > 0, nil
}

// ListIn 所有 state=in 的记录（读取方需再做过期判定）
func (r *PresenceRepository) ListIn(ctx context.Context) ([]*model.Presence, error) {
	var list []*model.Presence
	err := r.db.WithContext(ctx).
		Where("state = ?", model.PresenceIn).
		Order("user_id ASC").
		Find(&list).Error
	return list, translate(err, "presenceRepo.ListIn")
}

// ListDue 已到期但仍为 in 的用户ID
func (r *PresenceRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Presence{}).
		Where("state = ? AND expires_at IS NOT NULL AND expires_at <= ?", model.PresenceIn, now).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("user_id", &ids).Error
	return ids, translate(err, "presenceRepo.ListDue")
}

// RemoveCircle 分组删除后，从所有者的可见分组列表中移除该分组
// 可见范围模式保持不变：circles 模式下列表为空意味着对任何人不可见
func (r *PresenceRepository) RemoveCircle(ctx context.Context, ownerID, circleID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Presence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "user_id = ?", ownerID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		kept := make([]string, 0, len(p.VisibilityCircleIDs))
		for _, id := range p.VisibilityCircleIDs {
			if id != circleID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(p.VisibilityCircleIDs) {
			return nil
		}
		return tx.Model(&model.Presence{}).
			Where("user_id = ?", ownerID).
			Update("visibility_circle_ids", datatypes.JSONSlice[string](kept)).Error
	})
	return translate(err, "presenceRepo.RemoveCircle")
}
