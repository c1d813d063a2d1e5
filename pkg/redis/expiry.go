package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ExpiryKey 在线状态过期索引（有序集合，score 为过期时间的毫秒时间戳）
const ExpiryKey = "imin:presence:expiry"

// ExpiryIndex 基于有序集合的在线状态过期索引，供定时扫描按到期时间取出用户
// 每个用户最多一个成员，重复 Schedule 覆盖旧的到期时间
type ExpiryIndex struct {
	client *redis.Client
	key    string
}

// NewExpiryIndex 创建过期索引
func NewExpiryIndex(client *redis.Client) *ExpiryIndex {
	return &ExpiryIndex{client: client, key: ExpiryKey}
}

// Schedule 登记用户的到期时间
func (x *ExpiryIndex) Schedule(ctx context.Context, userID string, at time.Time) error {
	err := x.client.ZAdd(ctx, x.key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: userID,
	}).Err()
	if err != nil {
		return fmt.Errorf("schedule expiry: %w", err)
	}
	return nil
}

// Cancel 移除用户的到期登记
func (x *ExpiryIndex) Cancel(ctx context.Context, userID string) error {
	if err := x.client.ZRem(ctx, x.key, userID).Err(); err != nil {
		return fmt.Errorf("cancel expiry: %w", err)
	}
	return nil
}

// Due 到期时间不晚于 now 的用户，按到期时间升序，最多 limit 个
func (x *ExpiryIndex) Due(ctx context.Context, now time.Time, limit int) ([]string, error) {
	ids, err := x.client.ZRangeByScore(ctx, x.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list due expiries: %w", err)
	}
	return ids, nil
}
