package service

import (
	"context"
	"testing"
	"time"

	"imin-server/internal/model"
	"imin-server/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircleScopedVisibility(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "owner", "Olivia")
	e.user(t, "viewer", "Victor")
	e.user(t, "other", "Wendy")

	roommates, err := e.circles.CreateCircle(ctx, "owner", "Roommates")
	require.NoError(t, err)
	_, err = e.circles.AddMember(ctx, roommates.ID, "owner", "viewer")
	require.NoError(t, err)

	p, err := e.presence.SetPresence(ctx, "owner", SetPresenceInput{
		State:               model.PresenceIn,
		VisibilityMode:      model.VisibleToCircles,
		VisibilityCircleIDs: []string{roommates.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, model.VisibleToCircles, p.VisibilityMode)

	got, err := e.presence.GetVisiblePresences(ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "owner", got[0].UserID)
	assert.Equal(t, "Olivia", got[0].Name)

	got, err = e.presence.GetVisiblePresences(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, got)

	// 自己不出现在自己的列表中
	got, err = e.presence.GetVisiblePresences(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMembershipInSomeoneElsesCircleDoesNotGrant(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "owner", "O")
	e.user(t, "mallory", "M")
	e.user(t, "viewer", "V")

	mine, err := e.circles.CreateCircle(ctx, "owner", "mine")
	require.NoError(t, err)
	_, err = e.presence.SetPresence(ctx, "owner", SetPresenceInput{
		State: model.PresenceIn, VisibilityMode: model.VisibleToCircles, VisibilityCircleIDs: []string{mine.ID},
	})
	require.NoError(t, err)

	// 手工构造一个指向他人分组的状态行，读取时不应放行
	theirs, err := e.circles.CreateCircle(ctx, "mallory", "theirs")
	require.NoError(t, err)
	_, err = e.circles.AddMember(ctx, theirs.ID, "mallory", "viewer")
	require.NoError(t, err)
	row, err := e.stores.Presence.Get(ctx, "owner")
	require.NoError(t, err)
	row.VisibilityCircleIDs = append(row.VisibilityCircleIDs, theirs.ID)
	require.NoError(t, e.stores.Presence.Upsert(ctx, row))

	got, err := e.presence.GetVisiblePresences(ctx, "viewer")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSetPresenceAudienceValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "a", "A")
	e.user(t, "b", "B")
	theirs, err := e.circles.CreateCircle(ctx, "b", "b's circle")
	require.NoError(t, err)

	t.Run("foreign circle is rejected", func(t *testing.T) {
		_, err := e.presence.SetPresence(ctx, "a", SetPresenceInput{
			State: model.PresenceIn, VisibilityMode: model.VisibleToCircles, VisibilityCircleIDs: []string{theirs.ID},
		})
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
	})

	t.Run("unknown circles fall back to everyone", func(t *testing.T) {
		p, err := e.presence.SetPresence(ctx, "a", SetPresenceInput{
			State: model.PresenceIn, VisibilityMode: model.VisibleToCircles, VisibilityCircleIDs: []string{"gone"},
		})
		require.NoError(t, err)
		assert.Equal(t, model.VisibleToEveryone, p.VisibilityMode)
		assert.Empty(t, p.VisibilityCircleIDs)
	})

	t.Run("empty list falls back to everyone", func(t *testing.T) {
		p, err := e.presence.SetPresence(ctx, "a", SetPresenceInput{
			State: model.PresenceIn, VisibilityMode: model.VisibleToCircles,
		})
		require.NoError(t, err)
		assert.Equal(t, model.VisibleToEveryone, p.VisibilityMode)
	})

	t.Run("bad state", func(t *testing.T) {
		_, err := e.presence.SetPresence(ctx, "a", SetPresenceInput{State: "maybe"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("bad mode", func(t *testing.T) {
		_, err := e.presence.SetPresence(ctx, "a", SetPresenceInput{State: model.PresenceIn, VisibilityMode: "friends"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("bad reset duration", func(t *testing.T) {
		bad := model.AutoReset("3h")
		_, err := e.presence.SetPresence(ctx, "a", SetPresenceInput{State: model.PresenceIn, ResetDuration: &bad})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestPresenceExpiry(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "u", "U")
	e.user(t, "v", "V")

	thirty := model.AutoReset30Min
	p, err := e.presence.SetPresence(ctx, "u", SetPresenceInput{
		State: model.PresenceIn, VisibilityMode: model.VisibleToEveryone, ResetDuration: &thirty,
	})
	require.NoError(t, err)
	require.NotNil(t, p.ExpiresAt)
	assert.Equal(t, epoch.Add(30*time.Minute), *p.ExpiresAt)
	assert.True(t, e.schedule.has("u"))

	got, err := e.presence.GetVisiblePresences(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, []string{"u"}, visibleIDs(got))

	e.clock.Advance(31 * time.Minute)

	got, err = e.presence.GetVisiblePresences(ctx, "v")
	require.NoError(t, err)
	assert.Empty(t, got)

	self, err := e.presence.GetPresence(ctx, "u", "u")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOut, self.State)
	assert.Nil(t, self.ExpiresAt)
	assert.False(t, e.schedule.has("u"))

	// 落库的记录同样已经切换
	row, err := e.stores.Presence.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOut, row.State)
}

func TestPresenceExpiresExactlyAtDeadline(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "u", "U")

	_, err := e.presence.SetPresence(ctx, "u", SetPresenceInput{State: model.PresenceIn})
	require.NoError(t, err)

	e.clock.Advance(time.Hour - time.Nanosecond)
	p, err := e.presence.GetPresence(ctx, "u", "u")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceIn, p.State)

	e.clock.Advance(time.Nanosecond)
	p, err = e.presence.GetPresence(ctx, "u", "u")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOut, p.State)
}

func TestReaffirmInRecomputesExpiry(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "u", "U")

	_, err := e.presence.SetPresence(ctx, "u", SetPresenceInput{State: model.PresenceIn})
	require.NoError(t, err)

	e.clock.Advance(40 * time.Minute)
	p, err := e.presence.SetPresence(ctx, "u", SetPresenceInput{State: model.PresenceIn})
	require.NoError(t, err)
	require.NotNil(t, p.ExpiresAt)
	assert.Equal(t, epoch.Add(40*time.Minute+time.Hour), *p.ExpiresAt)
}

func TestSetOutKeepsVisibilityFields(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "u", "U")
	c, err := e.circles.CreateCircle(ctx, "u", "close friends")
	require.NoError(t, err)

	_, err = e.presence.SetPresence(ctx, "u", SetPresenceInput{
		State: model.PresenceIn, VisibilityMode: model.VisibleToCircles, VisibilityCircleIDs: []string{c.ID},
	})
	require.NoError(t, err)

	p, err := e.presence.SetPresence(ctx, "u", SetPresenceInput{State: model.PresenceOut})
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOut, p.State)
	assert.Nil(t, p.ExpiresAt)
	assert.Equal(t, model.VisibleToCircles, p.VisibilityMode)
	assert.Equal(t, []string{c.ID}, []string(p.VisibilityCircleIDs))
	assert.False(t, e.schedule.has("u"))

	// Out -> Out 返回当前记录
	again, err := e.presence.SetPresence(ctx, "u", SetPresenceInput{State: model.PresenceOut})
	require.NoError(t, err)
	assert.Equal(t, p.UpdatedAt, again.UpdatedAt)
}

func TestResetDurationFromUserSettings(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "u", "U")

	never := model.AutoResetNever
	_, err := e.users.UpdateSettings(ctx, "u", SettingsInput{AutoReset: &never})
	require.NoError(t, err)
	p, err := e.presence.SetPresence(ctx, "u", SetPresenceInput{State: model.PresenceIn})
	require.NoError(t, err)
	assert.Nil(t, p.ExpiresAt)
	assert.False(t, e.schedule.has("u"))

	tonight := model.AutoResetTonight
	tz := "America/New_York"
	_, err = e.users.UpdateSettings(ctx, "u", SettingsInput{AutoReset: &tonight, TimeZone: &tz})
	require.NoError(t, err)
	p, err = e.presence.SetPresence(ctx, "u", SetPresenceInput{State: model.PresenceIn})
	require.NoError(t, err)
	require.NotNil(t, p.ExpiresAt)
	loc, err := time.LoadLocation(tz)
	require.NoError(t, err)
	// 15:00 UTC 是纽约当天上午，过期时间为当地 21:00
	assert.True(t, time.Date(2026, 5, 4, 21, 0, 0, 0, loc).Equal(*p.ExpiresAt))
}

func TestBlockHidesPresenceBothWays(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "a", "A")
	e.user(t, "b", "B")

	_, err := e.safety.Block(ctx, "a", "b")
	require.NoError(t, err)
	for _, id := range []string{"a", "b"} {
		_, err := e.presence.SetPresence(ctx, id, SetPresenceInput{State: model.PresenceIn, VisibilityMode: model.VisibleToEveryone})
		require.NoError(t, err)
	}

	got, err := e.presence.GetVisiblePresences(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = e.presence.GetVisiblePresences(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, got)

	p, err := e.presence.GetPresence(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOut, p.State)

	require.NoError(t, e.safety.Unblock(ctx, "a", "b"))
	got, err = e.presence.GetVisiblePresences(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, visibleIDs(got))
}

func TestDeletedCircleNoLongerGrantsVisibility(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "owner", "O")
	e.user(t, "viewer", "V")

	c, err := e.circles.CreateCircle(ctx, "owner", "c")
	require.NoError(t, err)
	_, err = e.circles.AddMember(ctx, c.ID, "owner", "viewer")
	require.NoError(t, err)
	_, err = e.presence.SetPresence(ctx, "owner", SetPresenceInput{
		State: model.PresenceIn, VisibilityMode: model.VisibleToCircles, VisibilityCircleIDs: []string{c.ID},
	})
	require.NoError(t, err)

	got, err := e.presence.GetVisiblePresences(ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, e.circles.DeleteCircle(ctx, c.ID, "owner"))

	got, err = e.presence.GetVisiblePresences(ctx, "viewer")
	require.NoError(t, err)
	assert.Empty(t, got)

	// 模式保持 circles，不会因为列表变空而对所有人公开
	row, err := e.stores.Presence.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, model.VisibleToCircles, row.VisibilityMode)
	assert.Empty(t, row.VisibilityCircleIDs)
}

func TestGetPresenceHidesAudienceFromOthers(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "owner", "O")
	e.user(t, "viewer", "V")
	e.user(t, "outsider", "X")

	c, err := e.circles.CreateCircle(ctx, "owner", "c")
	require.NoError(t, err)
	_, err = e.circles.AddMember(ctx, c.ID, "owner", "viewer")
	require.NoError(t, err)
	_, err = e.presence.SetPresence(ctx, "owner", SetPresenceInput{
		State: model.PresenceIn, VisibilityMode: model.VisibleToCircles, VisibilityCircleIDs: []string{c.ID},
	})
	require.NoError(t, err)

	p, err := e.presence.GetPresence(ctx, "viewer", "owner")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceIn, p.State)
	assert.Empty(t, p.VisibilityCircleIDs)

	p, err = e.presence.GetPresence(ctx, "outsider", "owner")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOut, p.State)

	_, err = e.presence.GetPresence(ctx, "viewer", "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNeverSetPresenceDefaultsToOut(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "u", "U")

	p, err := e.presence.GetPresence(ctx, "u", "u")
	require.NoError(t, err)
	assert.Equal(t, model.PresenceOut, p.State)
	assert.Equal(t, model.VisibleToEveryone, p.VisibilityMode)
}
