package repository

import (
	"context"
	"time"

	"imin-server/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ThreadRepository 会话数据仓储
type ThreadRepository struct {
	db *gorm.DB
}

// NewThreadRepository 创建ThreadRepository实例
func NewThreadRepository(db *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// CreateOrGetDirect 创建单聊会话；同一用户对已存在会话时返回已有会话
// (pair_low_id, pair_high_id) 复合唯一索引保证并发创建只有一个胜出，其余读取胜出者
func (r *ThreadRepository) CreateOrGetDirect(ctx context.Context, thread *model.Thread, a, b string) (*model.Thread, bool, error) {
	pair := model.NewPair(a, b)
	thread.SetPair(&pair)
	thread.IsGroup = false

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(thread)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		members := []model.ThreadMember{
			{ThreadID: thread.ID, UserID: a, JoinedAt: thread.CreatedAt},
			{ThreadID: thread.ID, UserID: b, JoinedAt: thread.CreatedAt},
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, false, translate(err, "threadRepo.CreateOrGetDirect")
	}
	if created {
		thread.ParticipantIDs = []string{a, b}
		return thread, true, nil
	}

	var existing model.Thread
	if err := r.db.WithContext(ctx).First(&existing, "pair_low_id = ? AND pair_high_id = ?", pair.Low, pair.High).Error; err != nil {
		return nil, false, translate(err, "threadRepo.CreateOrGetDirect.fetch")
	}
	if err := r.loadParticipants(ctx, []*model.Thread{&existing}); err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// CreateGroup 创建群聊会话及其参与者
func (r *ThreadRepository) CreateGroup(ctx context.Context, thread *model.Thread, participantIDs []string) error {
	thread.SetPair(nil)
	thread.IsGroup = true
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(thread).Error; err != nil {
			return err
		}
		members := make([]model.ThreadMember, 0, len(participantIDs))
		for _, id := range participantIDs {
			members = append(members, model.ThreadMember{ThreadID: thread.ID, UserID: id, JoinedAt: thread.CreatedAt})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return translate(err, "threadRepo.CreateGroup")
	}
	thread.ParticipantIDs = append([]string(nil), participantIDs...)
	return nil
}

// Get 获取会话（包含当前参与者）
func (r *ThreadRepository) Get(ctx context.Context, id string) (*model.Thread, error) {
	var t model.Thread
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err, "threadRepo.Get")
	}
	if err := r.loadParticipants(ctx, []*model.Thread{&t}); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListForUser 用户当前参与的会话，按最后活跃时间倒序
func (r *ThreadRepository) ListForUser(ctx context.Context, userID string) ([]*model.Thread, error) {
	var threads []*model.Thread
	err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&model.ThreadMember{}).Select("thread_id").Where("user_id = ?", userID)).
		Order("updated_at DESC, id ASC").
		Find(&threads).Error
	if err != nil {
		return nil, translate(err, "threadRepo.ListForUser")
	}
	if err := r.loadParticipants(ctx, threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// AddParticipant 添加（或重新加入）参与者，已存在时不报错
func (r *ThreadRepository) AddParticipant(ctx context.Context, threadID, userID string, now time.Time) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ThreadMember{ThreadID: threadID, UserID: userID, JoinedAt: now}).Error
	return translate(err, "threadRepo.AddParticipant")
}

// RemoveParticipant 移除参与者，返回剩余参与者数量
func (r *ThreadRepository) RemoveParticipant(ctx context.Context, threadID, userID string) (int, error) {
	var remaining int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ? AND user_id = ?", threadID, userID).Delete(&model.ThreadMember{}).Error; err != nil {
			return err
		}
		return tx.Model(&model.ThreadMember{}).Where("thread_id = ?", threadID).Count(&remaining).Error
	})
	if err != nil {
		return 0, translate(err, "threadRepo.RemoveParticipant")
	}
	return int(remaining), nil
}

// Delete 删除会话及其全部消息与参与者
func (r *ThreadRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteThread(tx, id)
	})
	return translate(err, "threadRepo.Delete")
}

func (r *ThreadRepository) loadParticipants(ctx context.Context, threads []*model.Thread) error {
	if len(threads) == 0 {
		return nil
	}
	ids := make([]string, 0, len(threads))
	byID := make(map[string]*model.Thread, len(threads))
	for _, t := range threads {
		t.ParticipantIDs = []string{}
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}
	var members []model.ThreadMember
	err := r.db.WithContext(ctx).
		Where("thread_id IN ?", ids).
		Order("joined_at ASC, user_id ASC").
		Find(&members).Error
	if err != nil {
		return translate(err, "threadRepo.loadParticipants")
	}
	for _, m := range members {
		if t, ok := byID[m.ThreadID]; ok {
			t.ParticipantIDs = append(t.ParticipantIDs, m.UserID)
		}
	}
	return nil
}

func deleteThread(tx *gorm.DB, id string) error {
	if err := tx.Where("thread_id = ?", id).Delete(&model.Message{}).Error; err != nil {
		return err
	}
	if err := tx.Where("thread_id = ?", id).Delete(&model.ThreadMember{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&model.Thread{}).Error
}

// deleteThreadIfEmpty 会话没有参与者时回收
func deleteThreadIfEmpty(tx *gorm.DB, id string) error {
	var remaining int64
	if err := tx.Model(&model.ThreadMember{}).Where("thread_id = ?", id).Count(&remaining).Error; err != nil {
		return errors.Wrap(err, "count thread members")
	}
	if remaining > 0 {
		return nil
	}
	return deleteThread(tx, id)
}
