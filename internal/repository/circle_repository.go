package repository

import (
	"context"
	"time"

	"imin-server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CircleRepository 分组数据仓储
type CircleRepository struct {
	db *gorm.DB
}

// NewCircleRepository 创建CircleRepository实例
func NewCircleRepository(db *gorm.DB) *CircleRepository {
	return &CircleRepository{db: db}
}

func (r *CircleRepository) Create(ctx context.Context, circle *model.Circle) error {
	return translate(r.db.WithContext(ctx).Create(circle).Error, "circleRepo.Create")
}

// Get 获取分组（包含成员）
func (r *CircleRepository) Get(ctx context.Context, id string) (*model.Circle, error) {
	var c model.Circle
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err, "circleRepo.Get")
	}
	if err := r.loadMembers(ctx, []*model.Circle{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByOwner 获取用户的所有分组（包含成员），按创建时间排序
func (r *CircleRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Circle, error) {
	var circles []*model.Circle
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&circles).Error
	if err != nil {
		return nil, translate(err, "circleRepo.ListByOwner")
	}
	if err := r.loadMembers(ctx, circles); err != nil {
		return nil, err
	}
	return circles, nil
}

func (r *CircleRepository) Rename(ctx context.Context, id, name string, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Circle{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "updated_at": now})
	if res.Error != nil {
		return translate(res.Error, "circleRepo.Rename")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除分组及其成员关系
func (r *CircleRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("circle_id = ?", id).Delete(&model.CircleMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Circle{}).Error
	})
	return translate(err, "circleRepo.Delete")
}

// AddMember 添加成员，已存在时不报错
func (r *CircleRepository) AddMember(ctx context.Context, circleID, userID string, now time.Time) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CircleMember{CircleID: circleID, UserID: userID, CreatedAt: now}).Error
	return translate(err, "circleRepo.AddMember")
}

// RemoveMember 移除成员，不存在时不报错
func (r *CircleRepository) RemoveMember(ctx context.Context, circleID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("circle_id = ? AND user_id = ?", circleID, userID).
		Delete(&model.CircleMember{}).Error
	return translate(err, "circleRepo.RemoveMember")
}

// MembershipOwners 返回 userID 作为成员所在的分组：circleID -> ownerID
func (r *CircleRepository) MembershipOwners(ctx context.Context, userID string) (map[string]string, error) {
	type row struct {
		ID      string
		OwnerID string
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table(model.Circle{}.TableName()+" AS c").
		Select("c.id, c.owner_id").
		Joins("JOIN "+model.CircleMember{}.TableName()+" AS m ON m.circle_id = c.id").
		Where("m.user_id = ?", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "circleRepo.MembershipOwners")
	}
	owners := make(map[string]string, len(rows))
	for _, r := range rows {
		owners[r.ID] = r.OwnerID
	}
	return owners, nil
}

func (r *CircleRepository) loadMembers(ctx context.Context, circles []*model.Circle) error {
	if len(circles) == 0 {
		return nil
	}
	ids := make([]string, 0, len(circles))
	byID := make(map[string]*model.Circle, len(circles))
	for _, c := range circles {
		c.MemberIDs = []string{}
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}
	var members []model.CircleMember
	err := r.db.WithContext(ctx).
		Where("circle_id IN ?", ids).
		Order("created_at ASC, user_id ASC").
		Find(&members).Error
	if err != nil {
		return translate(err, "circleRepo.loadMembers")
	}
	for _, m := range members {
		if c, ok := byID[m.CircleID]; ok {
			c.MemberIDs = append(c.MemberIDs, m.UserID)
		}
	}
	return nil
}
