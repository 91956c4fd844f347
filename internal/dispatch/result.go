package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pbx/internal/common"
)

// Result is the outcome of one batch item.
type Result struct {
	Index     int
	RequestID string
	Label     string
	// Status is the last HTTP status observed, 0 when no response arrived.
	Status   int
	Attempts int
	Body     []byte
	Err      error
	OK       bool
	// NotAttempted marks items skipped before their first attempt.
	NotAttempted bool
	Duration     time.Duration
}

// Describe renders the outcome for humans.
func (r Result) Describe() string {
	switch {
	case r.OK:
		return fmt.Sprintf("uploaded (status %d)", r.Status)
	case r.NotAttempted:
		if r.Err != nil && !errors.Is(r.Err, common.ErrNotAttempted) {
			return fmt.Sprintf("not attempted: %v", r.Err)
		}
		return "not attempted"
	case r.Attempts == 0:
		return fmt.Sprintf("failed before sending: %v", r.Err)
	case r.Err != nil:
		return fmt.Sprintf("failed after %d attempt(s): %v", r.Attempts, r.Err)
	default:
		return fmt.Sprintf("failed after %d attempt(s): status %d %s", r.Attempts, r.Status, snippet(r.Body))
	}
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

// BatchError reports a batch in which at least one item did not succeed. It
// carries every result for diagnosis.
type BatchError struct {
	Results []Result
}

func (e *BatchError) Error() string {
	failed := e.Failed()
	skipped := 0
	for _, r := range failed {
		if r.NotAttempted {
			skipped++
		}
	}
	return fmt.Sprintf("failed to upload %d of %d documents (%d not attempted)", len(failed), len(e.Results), skipped)
}

// Failed returns the unsuccessful results in input order.
func (e *BatchError) Failed() []Result {
	var out []Result
	for _, r := range e.Results {
		if !r.OK {
			out = append(out, r)
		}
	}
	return out
}

// CheckResults returns a *BatchError when any result is unsuccessful.
func CheckResults(results []Result) error {
	for _, r := range results {
		if !r.OK {
			return &BatchError{Results: results}
		}
	}
	return nil
}
