package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewFixed(at)

	assert.Equal(t, at, c.Now())
	assert.Equal(t, c.Now(), c.Now())
}

func TestManualClock_Advance(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewManual(at)

	got := c.Advance(90 * time.Minute)

	assert.Equal(t, at.Add(90*time.Minute), got)
	assert.Equal(t, got, c.Now())
}

func TestManualClock_SetNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	c := NewManual(time.Time{})

	c.Set(time.Date(2024, 3, 1, 17, 0, 0, 0, loc))

	assert.Equal(t, time.UTC, c.Now().Location())
	assert.Equal(t, 10, c.Now().Hour())
}

func TestSystemClock_UTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystem().Now().Location())
}
