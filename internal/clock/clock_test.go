package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avstrong/hotelbooking/internal/clock"
)

func TestToday(t *testing.T) {
	now := clock.Fixed(time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), clock.Today(now, nil))

	tokyo := time.FixedZone("JST", 9*60*60)

	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), clock.Today(now, tokyo))
}

func TestSystemIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, clock.System{}.Now().Location())
}
