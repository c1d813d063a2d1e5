package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewFake(start)
	assert.Equal(t, start, f.Now())

	f.Advance(31 * time.Minute)
	assert.Equal(t, start.Add(31*time.Minute), f.Now())

	f.Set(start)
	assert.Equal(t, start, f.Now())
}
