package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"imin-server/internal/model"
	"imin-server/internal/repository"
	"imin-server/pkg/apperr"
	"imin-server/pkg/clock"
	"imin-server/pkg/logger"

	"go.uber.org/zap"
)

// PresenceOptions 在线状态相关的全局设置
type PresenceOptions struct {
	DefaultAutoReset model.AutoReset
	TonightHour      int
	Location         *time.Location
}

// SetPresenceInput setPresence 请求参数
// ResetDuration 为空时使用用户保存的自动重置设置
type SetPresenceInput struct {
	State               model.PresenceState
	VisibilityMode      model.VisibilityMode
	VisibilityCircleIDs []string
	ResetDuration       *model.AutoReset
}

// VisiblePresence 对查看者可见的在线用户
type VisiblePresence struct {
	UserID    string
	Name      string
	Handle    *string
	State     model.PresenceState
	ExpiresAt *time.Time
}

// PresenceService 在线状态服务
type PresenceService struct {
	presence PresenceStore
	circles  CircleStore
	users    UserStore
	blocks   BlockStore
	schedule ExpirySchedule
	clock    clock.Clock
	opts     PresenceOptions
}

// NewPresenceService 创建PresenceService实例，schedule 可为 nil
func NewPresenceService(stores *Stores, schedule ExpirySchedule, clk clock.Clock, opts PresenceOptions) *PresenceService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if !opts.DefaultAutoReset.Valid() {
		opts.DefaultAutoReset = model.AutoReset1Hour
	}
	return &PresenceService{
		presence: stores.Presence,
		circles:  stores.Circles,
		users:    stores.Users,
		blocks:   stores.Blocks,
		schedule: schedule,
		clock:    clk,
		opts:     opts,
	}
}

// SetPresence 设置在线状态（整行覆盖写）
func (s *PresenceService) SetPresence(ctx context.Context, userID string, in SetPresenceInput) (*model.Presence, error) {
	now := s.clock.Now()

	current, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch in.State {
	case model.PresenceOut:
		// Out -> Out 不写入
		if current.State == model.PresenceOut && current.ExpiresAt == nil && !current.UpdatedAt.IsZero() {
			return current, nil
		}
		current.State = model.PresenceOut
		current.ExpiresAt = nil
		current.UpdatedAt = now
		if err := s.presence.Upsert(ctx, current); err != nil {
			return nil, apperr.Internal(err)
		}
		s.cancel(ctx, userID)
		return current, nil

	case model.PresenceIn:
		mode, circleIDs, err := s.resolveAudience(ctx, userID, in.VisibilityMode, in.VisibilityCircleIDs)
		if err != nil {
			return nil, err
		}
		reset, loc, err := s.resolveReset(ctx, userID, in.ResetDuration)
		if err != nil {
			return nil, err
		}
		p := &model.Presence{
			UserID:              userID,
			State:               model.PresenceIn,
			VisibilityMode:      mode,
			VisibilityCircleIDs: circleIDs,
			ExpiresAt:           reset.ExpiresAt(now, s.opts.TonightHour, loc),
			UpdatedAt:           now,
		}
		if err := s.presence.Upsert(ctx, p); err != nil {
			return nil, apperr.Internal(err)
		}
		if p.ExpiresAt != nil {
			s.scheduleAt(ctx, userID, *p.ExpiresAt)
		} else {
			s.cancel(ctx, userID)
		}
		return p, nil
	}
	return nil, apperr.Validation("state must be in or out")
}

// GetPresence 查看某个用户的在线状态（读取时惰性过期）
// 查看自己返回完整记录；查看他人时，不可见的用户一律显示为 out 且不暴露可见范围
func (s *PresenceService) GetPresence(ctx context.Context, viewerID, userID string) (*model.Presence, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, storeErr(err, "user not found")
	}
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if viewerID == userID {
		return p, nil
	}

	view := &model.Presence{UserID: userID, State: model.PresenceOut, UpdatedAt: p.UpdatedAt}
	if p.State != model.PresenceIn {
		return view, nil
	}
	visible, err := s.visibleTo(ctx, viewerID, p)
	if err != nil {
		return nil, err
	}
	if visible {
		view.State = model.PresenceIn
		view.ExpiresAt = p.ExpiresAt
	}
	return view, nil
}

// GetVisiblePresences 返回对 viewerID 可见且当前为 in 的用户，按 userID 排序
func (s *PresenceService) GetVisiblePresences(ctx context.Context, viewerID string) ([]VisiblePresence, error) {
	now := s.clock.Now()

	rows, err := s.presence.ListIn(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	hidden, err := s.blockedEitherWay(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	memberOf, err := s.circles.MembershipOwners(ctx, viewerID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	visible := make([]*model.Presence, 0, len(rows))
	for _, p := range rows {
		// 先做过期判定，过期记录落库为 out 后不再参与可见性计算
		if p.IsExpired(now) {
			s.expire(ctx, p.UserID, now)
			continue
		}
		if p.UserID == viewerID {
			continue
		}
		if _, ok := hidden[p.UserID]; ok {
			continue
		}
		if !audienceAllows(p, viewerID, memberOf) {
			continue
		}
		visible = append(visible, p)
	}

	ids := make([]string, 0, len(visible))
	for _, p := range visible {
		ids = append(ids, p.UserID)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	byID := make(map[string]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]VisiblePresence, 0, len(visible))
	for _, p := range visible {
		vp := VisiblePresence{UserID: p.UserID, State: p.State, ExpiresAt: p.ExpiresAt}
		if u, ok := byID[p.UserID]; ok {
			vp.Name = u.DisplayName()
			vp.Handle = u.Handle
		}
		out = append(out, vp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// expire 将已到期的用户切换为 out，返回是否实际发生切换
func (s *PresenceService) expire(ctx context.Context, userID string, now time.Time) bool {
	changed, err := s.presence.ExpireIfDue(ctx, userID, now)
	if err != nil {
		logger.Warn("presence expire failed", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	if changed {
		s.cancel(ctx, userID)
	}
	return changed
}

// load 读取当前记录并应用惰性过期，无记录时返回默认值
func (s *PresenceService) load(ctx context.Context, userID string) (*model.Presence, error) {
	p, err := s.presence.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.DefaultPresence(userID), nil
		}
		return nil, apperr.Internal(err)
	}
	now := s.clock.Now()
	if p.IsExpired(now) {
		s.expire(ctx, userID, now)
		p.ExpireAt(now)
	}
	return p, nil
}

// resolveAudience 校验可见范围
// 不存在（已删除）的分组被过滤；他人的分组返回 AuthorizationError；过滤后为空则回退为 everyone
func (s *PresenceService) resolveAudience(ctx context.Context, userID string, mode model.VisibilityMode, circleIDs []string) (model.VisibilityMode, []string, error) {
	switch mode {
	case "", model.VisibleToEveryone:
		return model.VisibleToEveryone, []string{}, nil
	case model.VisibleToCircles:
	default:
		return "", nil, apperr.Validation("visibility_mode must be everyone or circles")
	}

	owned := make([]string, 0, len(circleIDs))
	for _, id := range dedupe(circleIDs) {
		c, err := s.circles.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return "", nil, apperr.Internal(err)
		}
		if c.OwnerID != userID {
			return "", nil, apperr.Authorization("circle " + id + " is not owned by you")
		}
		owned = append(owned, id)
	}
	if len(owned) == 0 {
		return model.VisibleToEveryone, []string{}, nil
	}
	return model.VisibleToCircles, owned, nil
}

// resolveReset 确定自动重置时长与 tonight 计算所用时区
func (s *PresenceService) resolveReset(ctx context.Context, userID string, override *model.AutoReset) (model.AutoReset, *time.Location, error) {
	reset := s.opts.DefaultAutoReset
	loc := s.opts.Location

	user, err := s.users.GetByID(ctx, userID)
	switch {
	case err == nil:
		if user.AutoReset.Valid() {
			reset = user.AutoReset
		}
		if user.TimeZone != "" {
			if l, err := time.LoadLocation(user.TimeZone); err == nil {
				loc = l
			}
		}
	case !errors.Is(err, repository.ErrNotFound):
		return "", nil, apperr.Internal(err)
	}

	if override != nil {
		if !override.Valid() {
			return "", nil, apperr.Validation("reset_duration must be one of 30m, 1h, 2h, 4h, tonight, never")
		}
		reset = *override
	}
	return reset, loc, nil
}

// visibleTo 单条记录对查看者的可见性判定，与 GetVisiblePresences 使用同一规则
func (s *PresenceService) visibleTo(ctx context.Context, viewerID string, p *model.Presence) (bool, error) {
	hidden, err := s.blockedEitherWay(ctx, viewerID)
	if err != nil {
		return false, err
	}
	if _, ok := hidden[p.UserID]; ok {
		return false, nil
	}
	memberOf, err := s.circles.MembershipOwners(ctx, viewerID)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return audienceAllows(p, viewerID, memberOf), nil
}

// blockedEitherWay 查看者拉黑的人与拉黑了查看者的人
func (s *PresenceService) blockedEitherWay(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	blocks, err := s.blocks.ListRelated(ctx, viewerID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	hidden := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		if b.BlockerID == viewerID {
			hidden[b.BlockedID] = struct{}{}
		} else {
			hidden[b.BlockerID] = struct{}{}
		}
	}
	return hidden, nil
}

// audienceAllows everyone 总是可见；circles 仅当查看者属于某个仍归所有者的分组
func audienceAllows(p *model.Presence, viewerID string, memberOf map[string]string) bool {
	switch p.VisibilityMode {
	case model.VisibleToEveryone:
		return true
	case model.VisibleToCircles:
		for _, id := range p.VisibilityCircleIDs {
			if owner, ok := memberOf[id]; ok && owner == p.UserID {
				return true
			}
		}
	}
	return false
}

func (s *PresenceService) scheduleAt(ctx context.Context, userID string, at time.Time) {
	if s.schedule == nil {
		return
	}
	if err := s.schedule.Schedule(ctx, userID, at); err != nil {
		logger.Warn("schedule presence expiry failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *PresenceService) cancel(ctx context.Context, userID string) {
	if s.schedule == nil {
		return
	}
	if err := s.schedule.Cancel(ctx, userID); err != nil {
		logger.Warn("cancel presence expiry failed", zap.String("user_id", userID), zap.Error(err))
	}
}
