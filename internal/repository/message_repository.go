package repository

import (
	"context"

	"imin-server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository 消息数据仓储
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建MessageRepository实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append 追加消息：锁定会话行分配序号，保证同一会话内 (created_at, seq) 单调递增
// created_at 不早于会话最后活跃时间，同时推进会话的 last_seq 与 updated_at
func (r *MessageRepository) Append(ctx context.Context, msg *model.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var thread model.Thread
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&thread, "id = ?", msg.ThreadID).Error; err != nil {
			return err
		}
		msg.Seq = thread.LastSeq + 1
		if msg.CreatedAt.Before(thread.UpdatedAt) {
			msg.CreatedAt = thread.UpdatedAt
		}
		if err := tx.Model(&model.Thread{}).
			Where("id = ?", thread.ID).
			Updates(map[string]interface{}{
				"last_seq":   msg.Seq,
				"updated_at": msg.CreatedAt,
			}).Error; err != nil {
			return err
		}
		return tx.Create(msg).Error
	})
	return translate(err, "messageRepo.Append")
}

// ListByThread 会话内全部消息，按 (created_at, seq) 升序
func (r *MessageRepository) ListByThread(ctx context.Context, threadID string) ([]*model.Message, error) {
	var list []*model.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, seq ASC").
		Find(&list).Error
	return list, translate(err, "messageRepo.ListByThread")
}

func (r *MessageRepository) Get(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, "messageRepo.Get")
	}
	return &m, nil
}
