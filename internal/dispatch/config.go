package dispatch

import (
	"net/http"
	"time"
)

// Config controls pacing, concurrency and retry classification of a batch.
type Config struct {
	// MaxOutstanding caps the number of requests in flight.
	MaxOutstanding int
	// Interval is the minimum spacing between two attempt starts.
	Interval time.Duration
	// StopOnFirstFail stops starting new attempts once any item has failed.
	StopOnFirstFail bool
	OKStatuses      []int
	RetryStatuses   []int
	// Attempts bounds the tries per item, the first one included.
	Attempts int
}

// Defaults. The integration API allows 500 requests per minute; pacing at
// half that rate leaves room for retries.
const (
	DefaultMaxOutstanding = 64
	DefaultInterval       = 2 * time.Minute / 500
	DefaultAttempts       = 100
)

var (
	DefaultOKStatuses = []int{
		http.StatusOK,
		http.StatusCreated,
		http.StatusAccepted,
		http.StatusNoContent,
	}
	DefaultRetryStatuses = []int{
		http.StatusTooManyRequests,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusTooEarly,
		http.StatusFailedDependency,
		http.StatusServiceUnavailable,
	}
)

func DefaultConfig() Config {
	return Config{
		MaxOutstanding: DefaultMaxOutstanding,
		Interval:       DefaultInterval,
		OKStatuses:     append([]int(nil), DefaultOKStatuses...),
		RetryStatuses:  append([]int(nil), DefaultRetryStatuses...),
		Attempts:       DefaultAttempts,
	}
}

// normalized fills zero values so a partially populated Config stays usable.
func (c Config) normalized() Config {
	if c.MaxOutstanding <= 0 {
		c.MaxOutstanding = DefaultMaxOutstanding
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
	if c.Attempts <= 0 {
		c.Attempts = 1
	}
	if len(c.OKStatuses) == 0 {
		c.OKStatuses = DefaultOKStatuses
	}
	return c
}

type statusSet map[int]struct{}

func newStatusSet(codes []int) statusSet {
	s := make(statusSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s statusSet) has(code int) bool {
	_, ok := s[code]
	return ok
}
