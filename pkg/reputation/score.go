// Package reputation implements the send-throttling gate. Per tenant and
// channel it keeps rolling send and failure counters; the combined score
// decides whether a send may go out now or must wait for the reputation to
// recover.
package reputation

import (
	"math"
	"time"
)

const (
	// Window is the rolling counter horizon.
	Window = time.Hour

	// velocityCeiling is the sends-per-window level above which raw volume
	// starts to depress the score.
	velocityCeiling = 500

	// CriticalFloor is the score below which sends are deferred.
	CriticalFloor = 40.0

	// DefaultRetryAfter is used when the backend can't report how much of the
	// window remains.
	DefaultRetryAfter = 15 * time.Minute
)

// Score combines the window's counters into a 0..100 reputation score. A
// clean, low-volume window scores 100; failures weigh heavier than volume.
func Score(sent, failed int64) float64 {
	score := 100.0

	if sent > 0 {
		failureRate := float64(failed) / float64(sent)
		score -= math.Min(failureRate, 1) * 80
	}

	if sent > velocityCeiling {
		over := float64(sent-velocityCeiling) / float64(velocityCeiling)
		score -= math.Min(over*30, 30)
	}

	return math.Max(score, 0)
}
