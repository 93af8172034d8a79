package service

import (
	"testing"
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"

	"github.com/stretchr/testify/assert"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestTimeGuard(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	attempt := &model.ExamAttempt{DeadlineAt: deadline}

	t.Run("截止前", func(t *testing.T) {
		guard := &TimeGuard{Now: fixedClock(deadline.Add(-10 * time.Minute))}
		assert.False(t, guard.IsExpired(attempt))
		assert.Equal(t, 10*time.Minute, guard.Remaining(attempt))
	})

	t.Run("截止时间点本身视为过期", func(t *testing.T) {
		guard := &TimeGuard{Now: fixedClock(deadline)}
		assert.True(t, guard.IsExpired(attempt))
		assert.Equal(t, time.Duration(0), guard.Remaining(attempt))
	})

	t.Run("截止后剩余时间不为负", func(t *testing.T) {
		guard := &TimeGuard{Now: fixedClock(deadline.Add(time.Hour))}
		assert.True(t, guard.IsExpired(attempt))
		assert.Equal(t, time.Duration(0), guard.Remaining(attempt))
	})
}
