package repository

import (
	"context"

	"imin-server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlockRepository 拉黑关系数据仓储
type BlockRepository struct {
	db *gorm.DB
}

// NewBlockRepository 创建BlockRepository实例
func NewBlockRepository(db *gorm.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// Create 拉黑，重复拉黑不报错
func (r *BlockRepository) Create(ctx context.Context, block *model.Block) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(block).Error
	return translate(err, "blockRepo.Create")
}

func (r *BlockRepository) Delete(ctx context.Context, blockerID, blockedID string) error {
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.Block{}).Error
	return translate(err, "blockRepo.Delete")
}

// Exists blocker 是否拉黑了 blocked
func (r *BlockRepository) Exists(ctx context.Context, blockerID, blockedID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "blockRepo.Exists")
	}
	return count > 0, nil
}

// ListByBlocker 用户拉黑的所有人
func (r *BlockRepository) ListByBlocker(ctx context.Context, blockerID string) ([]*model.Block, error) {
	var list []*model.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id = ?", blockerID).
		Order("created_at DESC").
		Find(&list).Error
	return list, translate(err, "blockRepo.ListByBlocker")
}

// ListRelated 与用户相关的所有拉黑关系（任一方向）
func (r *BlockRepository) ListRelated(ctx context.Context, userID string) ([]*model.Block, error) {
	var list []*model.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&list).Error
	return list, translate(err, "blockRepo.ListRelated")
}

// ReportRepository 举报数据仓储
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建ReportRepository实例
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report *model.Report) error {
	return translate(r.db.WithContext(ctx).Create(report).Error, "reportRepo.Create")
}
