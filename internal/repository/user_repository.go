package repository

import (
	"context"
	"strings"

	"imin-server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 用户数据仓储
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建UserRepository实例
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure 首次认证时落库，已存在则不覆盖用户资料
func (r *UserRepository) Ensure(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(user).Error
	return translate(err, "userRepo.Ensure")
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "userRepo.GetByID")
	}
	return &u, nil
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	var users []*model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, translate(err, "userRepo.GetByIDs")
}

// FindByHandle 按 handle 精确查找（仅允许被搜索的用户）
func (r *UserRepository) FindByHandle(ctx context.Context, handle string) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).
		Where("handle = ? AND searchable_by_handle = ?", strings.ToLower(handle), true).
		Find(&users).Error
	return users, translate(err, "userRepo.FindByHandle")
}

// FindByEmail 按邮箱查找（不区分大小写）
func (r *UserRepository) FindByEmail(ctx context.Context, email string) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Find(&users).Error
	return users, translate(err, "userRepo.FindByEmail")
}

// Update 保存资料与设置，handle 冲突返回 ErrDuplicate
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"name":                 user.Name,
			"handle":               user.Handle,
			"searchable_by_handle": user.SearchableByHandle,
			"auto_reset":           user.AutoReset,
			"time_zone":            user.TimeZone,
			"updated_at":           user.UpdatedAt,
		}).Error
	return translate(err, "userRepo.Update")
}

// Delete 删除账号并级联删除其拥有的所有数据
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 自己的分组及其成员
		ownedCircles := tx.Model(&model.Circle{}).Select("id").Where("owner_id = ?", id)
		if err := tx.Where("circle_id IN (?)", ownedCircles).Delete(&model.CircleMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", id).Delete(&model.Circle{}).Error; err != nil {
			return err
		}
		// 在他人分组中的成员关系
		if err := tx.Where("user_id = ?", id).Delete(&model.CircleMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sender_id = ? OR receiver_id = ?", id, id).Delete(&model.FriendRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.Presence{}).Error; err != nil {
			return err
		}
		if err := tx.Where("blocker_id = ? OR blocked_id = ?", id, id).Delete(&model.Block{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reporter_id = ?", id).Delete(&model.Report{}).Error; err != nil {
			return err
		}
		// 消息随账号一并删除，包括已离开但他人仍保留的会话中的消息
		if err := tx.Where("sender_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		// 退出所有会话，回收无人会话
		var threadIDs []string
		if err := tx.Model(&model.ThreadMember{}).Where("user_id = ?", id).Pluck("thread_id", &threadIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.ThreadMember{}).Error; err != nil {
			return err
		}
		for _, threadID := range threadIDs {
			if err := deleteThreadIfEmpty(tx, threadID); err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&model.User{}).Error
	})
	return translate(err, "userRepo.Delete")
}
