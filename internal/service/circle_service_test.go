package service

import (
	"context"
	"testing"

	"imin-server/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCircleValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "o", "O")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "trimmed", input: "  Roommates  ", want: "Roommates"},
		{name: "empty", input: "", wantErr: apperr.ErrValidation},
		{name: "whitespace only", input: " \t ", wantErr: apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := e.circles.CreateCircle(ctx, "o", tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name)
			assert.NotEmpty(t, c.ID)
			assert.Empty(t, c.MemberIDs)
		})
	}
}

func TestCircleOwnerOnly(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "o", "O")
	e.user(t, "x", "X")
	c, err := e.circles.CreateCircle(ctx, "o", "c")
	require.NoError(t, err)

	_, err = e.circles.RenameCircle(ctx, c.ID, "x", "mine now")
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	_, err = e.circles.AddMember(ctx, c.ID, "x", "x")
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	_, err = e.circles.RemoveMember(ctx, c.ID, "x", "o")
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	_, err = e.circles.GetCircle(ctx, c.ID, "x")
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	assert.ErrorIs(t, e.circles.DeleteCircle(ctx, c.ID, "x"), apperr.ErrAuthorization)

	_, err = e.circles.RenameCircle(ctx, "missing", "o", "n")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	renamed, err := e.circles.RenameCircle(ctx, c.ID, "o", " Family ")
	require.NoError(t, err)
	assert.Equal(t, "Family", renamed.Name)
	_, err = e.circles.RenameCircle(ctx, c.ID, "o", "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCircleMembershipSetSemantics(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "o", "O")
	e.user(t, "m", "M")
	c, err := e.circles.CreateCircle(ctx, "o", "c")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := e.circles.AddMember(ctx, c.ID, "o", "m")
		require.NoError(t, err)
		assert.Equal(t, []string{"m"}, got.MemberIDs)
	}

	_, err = e.circles.AddMember(ctx, c.ID, "o", "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	for i := 0; i < 2; i++ {
		got, err := e.circles.RemoveMember(ctx, c.ID, "o", "m")
		require.NoError(t, err)
		assert.Empty(t, got.MemberIDs)
	}

	list, err := e.circles.ListCircles(ctx, "o")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].MemberIDs)
}
