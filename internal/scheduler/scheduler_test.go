package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEveryRunsImmediatelyAndOnTicks(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	var runs atomic.Int32
	Every(ctx, 30*time.Millisecond, "test", func(context.Context) error {
		runs.Add(1)
		return errors.New("keeps going")
	})

	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestEveryInWindowSkipsOutside(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	now := time.Now()
	closed := &Window{Start: (now.Hour() + 1) % 24, End: (now.Hour() + 1) % 24}

	var runs atomic.Int32
	EveryInWindow(ctx, 10*time.Millisecond, "test", closed, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	assert.Zero(t, runs.Load())
}

func TestWindowContains(t *testing.T) {
	w := &Window{Start: 9, End: 17, WeekdaysOnly: true}
	mon := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC) // Monday

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"monday morning", mon.Add(9 * time.Hour), true},
		{"monday before open", mon.Add(8*time.Hour + 59*time.Minute), false},
		{"monday at close", mon.Add(17 * time.Hour), false},
		{"saturday midday", mon.AddDate(0, 0, 5).Add(12 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(tt.at))
		})
	}

	var none *Window
	assert.True(t, none.Contains(mon))
}

func TestWindowNext(t *testing.T) {
	w := &Window{Start: 9, End: 17, WeekdaysOnly: true}
	fri := time.Date(2024, 6, 7, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), w.Next(fri))

	inside := time.Date(2024, 6, 7, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, inside, w.Next(inside))
}
