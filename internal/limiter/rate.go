package limiter

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(context.Context) error
	Limit() rate.Limit
}

// implements RateLimiter
type multiLimiter struct {
	limiters []RateLimiter
}

// MultiLimiter waits on every limiter, so the most restrictive one wins.
func MultiLimiter(limiters ...RateLimiter) RateLimiter {
	byLimit := func(i, j int) bool {
		return limiters[i].Limit() < limiters[j].Limit()
	}
	sort.Slice(limiters, byLimit)
	return &multiLimiter{limiters: limiters}
}

func (l *multiLimiter) Wait(ctx context.Context) error {
	for _, l := range l.limiters {
		if err := l.Wait(ctx); err != nil {
			return fmt.Errorf("limiter: %w", err)
		}
	}
	return nil
}

func (l *multiLimiter) Limit() rate.Limit {
	if len(l.limiters) == 0 {
		return rate.Inf
	}
	return l.limiters[0].Limit()
}

// PerSecond allows eventCount events a second, in bursts of at most
// eventCount. Zero or less means no limit.
func PerSecond(eventCount int) RateLimiter {
	if eventCount <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(Per(eventCount, time.Second), Burst(eventCount))
}

func Per(eventCount int, duration time.Duration) rate.Limit {
	return rate.Every(duration / time.Duration(eventCount))
}

func Burst(eventCount int) int {
	return eventCount
}

// PerMinute allows eventCount events a minute, in bursts of at most
// eventCount. Zero or less means no limit.
func PerMinute(eventCount int) RateLimiter {
	if eventCount <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(Per(eventCount, time.Minute), Burst(eventCount))
}

// New throttles to at most perSecond events a second and perMinute events a
// minute. A zero count leaves that window unlimited.
func New(perSecond, perMinute int) RateLimiter {
	var limiters []RateLimiter
	if perSecond > 0 {
		limiters = append(limiters, PerSecond(perSecond))
	}
	if perMinute > 0 {
		limiters = append(limiters, PerMinute(perMinute))
	}
	return MultiLimiter(limiters...)
}
