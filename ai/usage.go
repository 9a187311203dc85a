package ai

import "sync/atomic"

// TokenUsage accumulates token counts reported by model calls.
// It is safe for concurrent use; the zero value is ready to use.
type TokenUsage struct {
	total  atomic.Int64
	input  atomic.Int64
	output atomic.Int64
}

// Add records the usage of one call.
func (u *TokenUsage) Add(usage Usage) {
	if u == nil {
		return
	}
	u.total.Add(int64(usage.Total))
	u.input.Add(int64(usage.Input))
	u.output.Add(int64(usage.Output))
}

// Reset zeroes every counter.
func (u *TokenUsage) Reset() {
	u.total.Store(0)
	u.input.Store(0)
	u.output.Store(0)
}

// Snapshot returns the current totals.
func (u *TokenUsage) Snapshot() Usage {
	return Usage{
		Total:  int(u.total.Load()),
		Input:  int(u.input.Load()),
		Output: int(u.output.Load()),
	}
}
