package journal

import "time"

// Run is one invocation of the upload command.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Target     string
	Pattern    string
	Total      int
	Failed     int
}

// Finished reports whether the run completed and was recorded.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Upload is the outcome of one document within a run.
type Upload struct {
	RunID        string
	RequestID    string
	Path         string
	Target       string
	OK           bool
	Status       int
	Attempts     int
	Error        string
	NotAttempted bool
	CreatedAt    time.Time
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
