package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"imin-server/internal/model"
	"imin-server/internal/repository"
	"imin-server/pkg/apperr"
	"imin-server/pkg/clock"
	"imin-server/pkg/logger"

	"go.uber.org/zap"
)

const maxUserNameLength = 64

var handlePattern = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)

// Identity 身份提供方验证后的用户身份
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// ProfileInput 资料修改，nil 字段保持不变；Handle 为空字符串表示清除
type ProfileInput struct {
	Name   *string
	Handle *string
}

// SettingsInput 设置修改，nil 字段保持不变
type SettingsInput struct {
	AutoReset          *model.AutoReset
	SearchableByHandle *bool
	TimeZone           *string
}

type UserService struct {
	users    UserStore
	schedule ExpirySchedule
	clock    clock.Clock
}

func NewUserService(stores *Stores, schedule ExpirySchedule, clk clock.Clock) *UserService {
	return &UserService{users: stores.Users, schedule: schedule, clock: clk}
}

// Ensure 首次认证请求时落库
func (s *UserService) Ensure(ctx context.Context, id Identity) (*model.User, error) {
	if id.UserID == "" {
		return nil, apperr.Authorization("missing user identity")
	}
	user, err := s.users.GetByID(ctx, id.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	now := s.clock.Now()
	user = &model.User{
		ID:                 id.UserID,
		Name:               strings.TrimSpace(id.Name),
		SearchableByHandle: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if email := strings.TrimSpace(id.Email); email != "" {
		user.Email = &email
	}
	if err := s.users.Ensure(ctx, user); err != nil {
		return nil, apperr.Internal(err)
	}
	// 并发首次请求时以先落库的为准
	saved, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	logger.Info("user provisioned", zap.String("user_id", saved.ID))
	return saved, nil
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	return user, nil
}

// UpdateProfile 修改名称与 handle，handle 被占用时返回 ConflictError
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name, err := normalizeText("name", *in.Name, maxUserNameLength)
		if err != nil {
			return nil, err
		}
		user.Name = name
	}
	if in.Handle != nil {
		handle, err := NormalizeHandle(*in.Handle)
		if err != nil {
			return nil, err
		}
		if handle == "" {
			user.Handle = nil
		} else {
			user.Handle = &handle
		}
	}
	return s.save(ctx, user)
}

// UpdateSettings 修改自动重置时长、是否可被搜索与时区
func (s *UserService) UpdateSettings(ctx context.Context, userID string, in SettingsInput) (*model.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.AutoReset != nil {
		if !in.AutoReset.Valid() {
			return nil, apperr.Validation("auto_reset must be one of 30m, 1h, 2h, 4h, tonight, never")
		}
		user.AutoReset = *in.AutoReset
	}
	if in.SearchableByHandle != nil {
		user.SearchableByHandle = *in.SearchableByHandle
	}
	if in.TimeZone != nil {
		tz := strings.TrimSpace(*in.TimeZone)
		if tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return nil, apperr.Validation("unknown time_zone " + tz)
			}
		}
		user.TimeZone = tz
	}
	return s.save(ctx, user)
}

// DeleteAccount 删除账号，级联删除其拥有的所有数据
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return apperr.Internal(err)
	}
	if s.schedule != nil {
		if err := s.schedule.Cancel(ctx, userID); err != nil {
			logger.Warn("cancel presence expiry failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	logger.Info("account deleted", zap.String("user_id", userID))
	return nil
}

func (s *UserService) save(ctx context.Context, user *model.User) (*model.User, error) {
	user.UpdatedAt = s.clock.Now()
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("handle is already taken")
		}
		return nil, apperr.Internal(err)
	}
	return user, nil
}

// NormalizeHandle 去掉前导 @ 并转为小写；空字符串表示清除
func NormalizeHandle(raw string) (string, error) {
	h := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
	if h == "" {
		return "", nil
	}
	if !handlePattern.MatchString(h) {
		return "", apperr.Validation("handle must be 3-30 characters of a-z, 0-9, _ or .")
	}
	return h, nil
}
