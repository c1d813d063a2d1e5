package service

import (
	"context"

	"imin-server/internal/model"
	"imin-server/pkg/apperr"
	"imin-server/pkg/clock"

	"github.com/google/uuid"
)

const maxCircleNameLength = 64

// CircleService 分组服务，所有变更仅允许所有者执行
type CircleService struct {
	circles  CircleStore
	presence PresenceStore
	users    UserStore
	clock    clock.Clock
}

// NewCircleService 创建CircleService实例
func NewCircleService(stores *Stores, clk clock.Clock) *CircleService {
	return &CircleService{
		circles:  stores.Circles,
		presence: stores.Presence,
		users:    stores.Users,
		clock:    clk,
	}
}

// CreateCircle 创建分组，初始无成员
func (s *CircleService) CreateCircle(ctx context.Context, ownerID, name string) (*model.Circle, error) {
	name, err := normalizeText("name", name, maxCircleNameLength)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	circle := &model.Circle{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		MemberIDs: []string{},
	}
	if err := s.circles.Create(ctx, circle); err != nil {
		return nil, apperr.Internal(err)
	}
	return circle, nil
}

// ListCircles 用户自己的分组
func (s *CircleService) ListCircles(ctx context.Context, ownerID string) ([]*model.Circle, error) {
	circles, err := s.circles.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return circles, nil
}

// GetCircle 获取分组详情（仅所有者）
func (s *CircleService) GetCircle(ctx context.Context, id, ownerID string) (*model.Circle, error) {
	return s.owned(ctx, id, ownerID)
}

// RenameCircle 重命名分组
func (s *CircleService) RenameCircle(ctx context.Context, id, ownerID, name string) (*model.Circle, error) {
	name, err := normalizeText("name", name, maxCircleNameLength)
	if err != nil {
		return nil, err
	}
	circle, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.circles.Rename(ctx, id, name, now); err != nil {
		return nil, storeErr(err, "circle not found")
	}
	circle.Name = name
	circle.UpdatedAt = now
	return circle, nil
}

// DeleteCircle 删除分组，并从所有者的在线状态可见范围中移除该分组
func (s *CircleService) DeleteCircle(ctx context.Context, id, ownerID string) error {
	if _, err := s.owned(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.circles.Delete(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	// 删除后即使这里失败，读取路径也只认仍归所有者的分组，不会因已删除分组放行
	if err := s.presence.RemoveCircle(ctx, ownerID, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// AddMember 添加成员，已是成员时不报错
func (s *CircleService) AddMember(ctx context.Context, id, ownerID, userID string) (*model.Circle, error) {
	circle, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, storeErr(err, "user not found")
	}
	if circle.HasMember(userID) {
		return circle, nil
	}
	if err := s.circles.AddMember(ctx, id, userID, s.clock.Now()); err != nil {
		return nil, storeErr(err, "circle not found")
	}
	circle.MemberIDs = append(circle.MemberIDs, userID)
	return circle, nil
}

// RemoveMember 移除成员，不是成员时不报错
func (s *CircleService) RemoveMember(ctx context.Context, id, ownerID, userID string) (*model.Circle, error) {
	circle, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if !circle.HasMember(userID) {
		return circle, nil
	}
	if err := s.circles.RemoveMember(ctx, id, userID); err != nil {
		return nil, apperr.Internal(err)
	}
	members := make([]string, 0, len(circle.MemberIDs))
	for _, m := range circle.MemberIDs {
		if m != userID {
			members = append(members, m)
		}
	}
	circle.MemberIDs = members
	return circle, nil
}

// owned 读取分组并校验所有权
func (s *CircleService) owned(ctx context.Context, id, ownerID string) (*model.Circle, error) {
	circle, err := s.circles.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "circle not found")
	}
	if circle.OwnerID != ownerID {
		return nil, apperr.Authorization("only the owner can manage this circle")
	}
	return circle, nil
}
