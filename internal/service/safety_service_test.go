package service

import (
	"context"
	"testing"

	"imin-server/internal/model"
	"imin-server/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockIsIdempotentAndDirectional(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "a", "A")
	e.user(t, "b", "B")

	for i := 0; i < 2; i++ {
		_, err := e.safety.Block(ctx, "a", "b")
		require.NoError(t, err)
	}
	list, err := e.safety.ListBlocked(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].BlockedID)

	blocked, err := e.safety.IsBlocked(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, blocked)
	blocked, err = e.safety.IsBlocked(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, blocked)

	for i := 0; i < 2; i++ {
		require.NoError(t, e.safety.Unblock(ctx, "a", "b"))
	}
	blocked, err = e.safety.IsBlocked(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, blocked)

	_, err = e.safety.Block(ctx, "a", "a")
	assert.ErrorIs(t, err, apperr.ErrInvalidRecipient)
	_, err = e.safety.Block(ctx, "a", "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.user(t, "a", "A")

	details := "  keeps sending links  "
	blank := "   "
	r, err := e.safety.Report(ctx, "a", ReportInput{
		ThreadID:       "t1",
		ReportedUserID: &blank,
		Reason:         model.ReportSpam,
		Details:        &details,
	})
	require.NoError(t, err)
	require.NotNil(t, r.Details)
	assert.Equal(t, "keeps sending links", *r.Details)
	assert.Nil(t, r.ReportedUserID)
	assert.Len(t, e.store.Reported(), 1)

	for _, reason := range []model.ReportReason{"", "rude", "SPAM"} {
		_, err := e.safety.Report(ctx, "a", ReportInput{ThreadID: "t1", Reason: reason})
		assert.ErrorIs(t, err, apperr.ErrValidation, "reason %q", reason)
	}
	_, err = e.safety.Report(ctx, "a", ReportInput{Reason: model.ReportOther})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
