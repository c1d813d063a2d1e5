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

func TestEnsureProvisionsOnce(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	u, err := e.users.Ensure(ctx, Identity{UserID: "sub-1", Name: " Sam ", Email: "sam@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Sam", u.Name)
	assert.True(t, u.SearchableByHandle)
	require.NotNil(t, u.Email)

	name := "Samantha"
	_, err = e.users.UpdateProfile(ctx, "sub-1", ProfileInput{Name: &name})
	require.NoError(t, err)

	// 再次认证不会覆盖已修改的资料
	again, err := e.users.Ensure(ctx, Identity{UserID: "sub-1", Name: "Sam"})
	require.NoError(t, err)
	assert.Equal(t, "Samantha", again.Name)

	_, err = e.users.Ensure(ctx, Identity{})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "@Sam_99", want: "sam_99"},
		{in: "  jo.e ", want: "jo.e"},
		{in: "", want: ""},
		{in: "@", want: ""},
		{in: "ab", wantErr: true},
		{in: "has space", wantErr: true},
		{in: "émile", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeHandle(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdateProfileHandleConflict(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "a", "A")
	e.user(t, "b", "B")

	h := "@Taken"
	u, err := e.users.UpdateProfile(ctx, "a", ProfileInput{Handle: &h})
	require.NoError(t, err)
	require.NotNil(t, u.Handle)
	assert.Equal(t, "taken", *u.Handle)

	_, err = e.users.UpdateProfile(ctx, "b", ProfileInput{Handle: &h})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	none := ""
	u, err = e.users.UpdateProfile(ctx, "a", ProfileInput{Handle: &none})
	require.NoError(t, err)
	assert.Nil(t, u.Handle)

	_, err = e.users.UpdateProfile(ctx, "b", ProfileInput{Handle: &h})
	require.NoError(t, err)

	empty := " "
	_, err = e.users.UpdateProfile(ctx, "b", ProfileInput{Name: &empty})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateSettingsValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "a", "A")

	bad := model.AutoReset("5m")
	_, err := e.users.UpdateSettings(ctx, "a", SettingsInput{AutoReset: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	tz := "Mars/Olympus"
	_, err = e.users.UpdateSettings(ctx, "a", SettingsInput{TimeZone: &tz})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	good := model.AutoReset2Hours
	off := false
	u, err := e.users.UpdateSettings(ctx, "a", SettingsInput{AutoReset: &good, SearchableByHandle: &off})
	require.NoError(t, err)
	assert.Equal(t, model.AutoReset2Hours, u.AutoReset)
	assert.False(t, u.SearchableByHandle)
}

func TestDeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "a", "A")
	e.user(t, "b", "B")

	c, err := e.circles.CreateCircle(ctx, "a", "c")
	require.NoError(t, err)
	_, err = e.presence.SetPresence(ctx, "a", SetPresenceInput{State: model.PresenceIn})
	require.NoError(t, err)
	th, err := e.chat.OpenOrCreateThread(ctx, "a", "b")
	require.NoError(t, err)
	_, _, err = e.friends.SendRequest(ctx, "a", "b@example.com")
	require.NoError(t, err)
	_, err = e.chat.SendMessage(ctx, th.ID, "a", "from a")
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	_, err = e.chat.SendMessage(ctx, th.ID, "b", "from b")
	require.NoError(t, err)

	require.NoError(t, e.users.DeleteAccount(ctx, "a"))

	_, err = e.users.GetProfile(ctx, "a")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.stores.Circles.Get(ctx, c.ID)
	assert.Error(t, err)
	assert.False(t, e.schedule.has("a"))
	got, err := e.presence.GetVisiblePresences(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, got)
	pending, err := e.friends.ListRequests(ctx, "b", "incoming")
	require.NoError(t, err)
	assert.Empty(t, pending)

	// 对方保留会话
	threads, err := e.chat.ListThreads(ctx, "b")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, th.ID, threads[0].ID)
	msgs, err := e.chat.ListMessages(ctx, th.ID, "b")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "from b", msgs[0].Body)

	assert.ErrorIs(t, e.users.DeleteAccount(ctx, "a"), apperr.ErrNotFound)
}
