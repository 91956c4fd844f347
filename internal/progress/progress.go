// Package progress renders a single status line for a running batch.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/pbx/internal/dispatch"
	"golang.org/x/term"
)

type fder interface {
	Fd() uintptr
}

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(fder)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Bar implements dispatch.Observer. On a terminal it keeps one line updated
// with the batch counters; elsewhere it stays silent and leaves reporting to
// the logs.
type Bar struct {
	w       io.Writer
	total   int
	enabled bool
	now     func() time.Time

	mu       sync.Mutex
	begun    time.Time
	started  map[int]bool
	inFlight int
	done     int
	failed   int
	skipped  int
	lastLen  int
}

var _ dispatch.Observer = (*Bar)(nil)

func New(w io.Writer, total int) *Bar {
	return &Bar{w: w, total: total, enabled: isTerminal(w), now: time.Now, started: map[int]bool{}}
}

func (b *Bar) Enabled() bool {
	return b.enabled
}

func (b *Bar) Started(index int, _ *dispatch.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.begun.IsZero() {
		b.begun = b.now()
	}
	b.started[index] = true
	b.inFlight++
	b.render()
}

func (b *Bar) Finished(res dispatch.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case res.NotAttempted:
		b.skipped++
	case !res.OK:
		b.failed++
	}
	if b.started[res.Index] {
		delete(b.started, res.Index)
		b.inFlight--
	}
	b.done++
	b.render()
}

// Close ends the status line so later output starts on a fresh line.
func (b *Bar) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.enabled && b.lastLen > 0 {
		fmt.Fprintln(b.w)
		b.lastLen = 0
	}
}

// Line formats the current counters.
func (b *Bar) Line() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.line()
}

func (b *Bar) line() string {
	elapsed := time.Duration(0)
	if !b.begun.IsZero() {
		elapsed = b.now().Sub(b.begun).Truncate(time.Second)
	}
	pct := 100
	if b.total > 0 {
		pct = b.done * 100 / b.total
	}
	return fmt.Sprintf("[%3d%%] %d/%d done, %d in flight, %d failed, %d skipped (%s)",
		pct, b.done, b.total, b.inFlight, b.failed, b.skipped, elapsed)
}

func (b *Bar) render() {
	if !b.enabled {
		return
	}
	s := b.line()
	pad := b.lastLen - len(s)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(b.w, "\r%s%*s", s, pad, "")
	b.lastLen = len(s)
}
