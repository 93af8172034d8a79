package service

import (
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
)

// TimeGuard 计算 attempt 的剩余时间与过期判定
// Now 可注入，测试时替换为固定时钟
type TimeGuard struct {
	Now func() time.Time
}

func NewTimeGuard() *TimeGuard {
	return &TimeGuard{Now: time.Now}
}

// Remaining 返回距截止时间的剩余时长，最小为 0
func (g *TimeGuard) Remaining(attempt *model.ExamAttempt) time.Duration {
	remaining := attempt.DeadlineAt.Sub(g.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired 截止时间点本身视为已过期
func (g *TimeGuard) IsExpired(attempt *model.ExamAttempt) bool {
	return !g.Now().Before(attempt.DeadlineAt)
}
