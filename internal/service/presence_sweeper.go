package service

import (
	"context"
	"time"

	"imin-server/internal/model"
	"imin-server/pkg/clock"
	"imin-server/pkg/logger"

	"go.uber.org/zap"
)

// PresenceSweeper 定时将到期的在线状态切换为 out
// 与读取路径使用同一条件更新（state=in 且 expires_at<=now），重复执行无副作用
type PresenceSweeper struct {
	presence PresenceStore
	schedule ExpirySchedule
	clock    clock.Clock
	interval time.Duration
	batch    int
}

// NewPresenceSweeper 创建PresenceSweeper实例，schedule 为 nil 时直接扫描存储
func NewPresenceSweeper(stores *Stores, schedule ExpirySchedule, clk clock.Clock, interval time.Duration, batch int) *PresenceSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 500
	}
	return &PresenceSweeper{
		presence: stores.Presence,
		schedule: schedule,
		clock:    clk,
		interval: interval,
		batch:    batch,
	}
}

// Run 按固定间隔执行扫描，直到 ctx 取消
func (s *PresenceSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("presence sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("presence sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				logger.Warn("presence sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("presence sweep", zap.Int("expired", n))
			}
		}
	}
}

// SweepOnce 处理一批到期记录，返回实际切换为 out 的数量
func (s *PresenceSweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()

	var (
		ids []string
		err error
	)
	if s.schedule != nil {
		ids, err = s.schedule.Due(ctx, now, s.batch)
	} else {
		ids, err = s.presence.ListDue(ctx, now, s.batch)
	}
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		changed, err := s.presence.ExpireIfDue(ctx, id, now)
		if err != nil {
			return expired, err
		}
		if changed {
			expired++
		}
		if s.schedule != nil {
			s.reconcile(ctx, id, now)
		}
	}
	return expired, nil
}

// reconcile 处理完毕后移出索引；若用户期间重新设置为 in，则按新的过期时间重新登记
func (s *PresenceSweeper) reconcile(ctx context.Context, userID string, now time.Time) {
	p, err := s.presence.Get(ctx, userID)
	if err == nil && p.State == model.PresenceIn && p.ExpiresAt != nil && p.ExpiresAt.After(now) {
		err = s.schedule.Schedule(ctx, userID, *p.ExpiresAt)
	} else {
		err = s.schedule.Cancel(ctx, userID)
	}
	if err != nil {
		logger.Warn("reconcile presence expiry failed", zap.String("user_id", userID), zap.Error(err))
	}
}
