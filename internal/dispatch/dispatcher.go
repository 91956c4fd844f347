package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/pbx/internal/common"
	"github.com/dmitrijs2005/pbx/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// maxResponseBody bounds how much of a response is kept in a Result.
const maxResponseBody = 64 << 10

// Observer is notified about item progress. Started fires once an item's
// request is ready, before it waits for its first attempt; Finished fires
// once per item. Calls may come from several goroutines at once.
type Observer interface {
	Started(index int, req *Request)
	Finished(res Result)
}

type nopObserver struct{}

func (nopObserver) Started(int, *Request) {}
func (nopObserver) Finished(Result)       {}

type Option func(*Dispatcher)

// WithObserver reports item progress to o.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// Dispatcher runs batches over one shared HTTP client.
type Dispatcher struct {
	client   *http.Client
	config   Config
	logger   logging.Logger
	observer Observer
}

func New(client *http.Client, cfg Config, logger logging.Logger, opts ...Option) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	d := &Dispatcher{
		client:   client,
		config:   cfg.normalized(),
		logger:   logger,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Config() Config {
	return d.config
}

// batch holds the state shared by the items of one Dispatch call.
type batch struct {
	d       *Dispatcher
	sem     *semaphore.Weighted
	gate    *gate
	ok      statusSet
	retry   statusSet
	stopped atomic.Bool
}

// gate admits attempt starts one at a time, at least interval apart. The
// token is taken at the instant an attempt is let through, so a waiter that
// wakes late pushes the next start back instead of shrinking the gap.
type gate struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

func newGate(interval time.Duration) *gate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &gate{limiter: rate.NewLimiter(limit, 1)}
}

// pass blocks until the next start is allowed. It fails with the context
// error, or with common.ErrNotAttempted once stopped reports true.
func (g *gate) pass(ctx context.Context, stopped func() bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if stopped() {
			return common.ErrNotAttempted
		}
		now := time.Now()
		if g.limiter.AllowN(now, 1) {
			return nil
		}
		if err := sleep(ctx, g.delay(now)); err != nil {
			return err
		}
	}
}

// delay is the time until the bucket holds a whole token again.
func (g *gate) delay(now time.Time) time.Duration {
	missing := 1 - g.limiter.TokensAt(now)
	d := time.Duration(missing / float64(g.limiter.Limit()) * float64(time.Second))
	if d <= 0 {
		d = time.Microsecond
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Dispatch executes all sources and returns one Result per source, in input
// order. It does not fail as a whole; inspect the results or use CheckResults.
func (d *Dispatcher) Dispatch(ctx context.Context, sources []Source) []Result {
	results := make([]Result, len(sources))
	if len(sources) == 0 {
		return results
	}

	b := &batch{
		d:       d,
		sem:     semaphore.NewWeighted(int64(d.config.MaxOutstanding)),
		gate:    newGate(d.config.Interval),
		ok:      newStatusSet(d.config.OKStatuses),
		retry:   newStatusSet(d.config.RetryStatuses),
	}

	d.logger.Info(ctx, "dispatching batch",
		"requests", len(sources),
		"max_outstanding", d.config.MaxOutstanding,
		"interval", d.config.Interval,
		"attempts", d.config.Attempts)

	var g errgroup.Group
	for i, src := range sources {
		if b.stopped.Load() {
			results[i] = b.skip(i, nil)
			continue
		}
		if err := b.sem.Acquire(ctx, 1); err != nil {
			results[i] = b.skip(i, err)
			continue
		}
		if b.stopped.Load() {
			b.sem.Release(1)
			results[i] = b.skip(i, nil)
			continue
		}
		i, src := i, src
		g.Go(func() error {
			defer b.sem.Release(1)
			results[i] = b.execute(ctx, i, src)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (b *batch) skip(i int, err error) Result {
	if err == nil {
		err = common.ErrNotAttempted
	}
	res := Result{Index: i, NotAttempted: true, Err: err}
	b.d.observer.Finished(res)
	return res
}

func (b *batch) execute(ctx context.Context, i int, src Source) Result {
	res := b.run(ctx, i, src)
	if !res.OK && b.d.config.StopOnFirstFail && b.stopped.CompareAndSwap(false, true) {
		b.d.logger.Warn(ctx, "stopping batch after first failure", "index", i, "label", res.Label)
	}
	b.d.observer.Finished(res)
	return res
}

func (b *batch) run(ctx context.Context, i int, src Source) (res Result) {
	res = Result{Index: i}

	req, err := src(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	if _, err := url.Parse(req.URL); err != nil {
		res.Label = req.Label
		res.Err = fmt.Errorf("parse url %q: %w", req.URL, err)
		return res
	}
	if req.ID == "" {
		res.RequestID = uuid.NewString()
	} else {
		res.RequestID = req.ID
	}
	res.Label = req.Label

	log := b.d.logger.With("request_id", res.RequestID, "label", req.Label)
	begin := time.Now()
	defer func() { res.Duration = time.Since(begin) }()

	b.d.observer.Started(i, req)

	for res.Attempts < b.d.config.Attempts {
		sent, status, body, err := b.attempt(ctx, req)
		if !sent {
			if errors.Is(err, common.ErrNotAttempted) || ctx.Err() != nil {
				return b.interrupted(res, err)
			}
			res.Err = err
			return res
		}

		res.Attempts++
		res.Status, res.Body, res.Err = status, body, nil

		switch {
		case err != nil && ctx.Err() != nil:
			res.Err = err
			return res
		case err != nil:
			res.Err = fmt.Errorf("%w: %w", common.ErrTransient, err)
			log.Warn(ctx, "transport error", "attempt", res.Attempts, "error", err)
			continue
		case b.ok.has(status):
			res.OK = true
			log.Debug(ctx, "request succeeded", "status", status, "attempt", res.Attempts)
			return res
		case b.retry.has(status):
			res.Err = fmt.Errorf("%w: status %d", common.ErrTransient, status)
			log.Warn(ctx, "retryable status", "status", status, "attempt", res.Attempts)
			continue
		default:
			log.Debug(ctx, "request failed", "status", status, "attempt", res.Attempts)
			return res
		}
	}

	log.Error(ctx, "giving up", "attempts", res.Attempts, "status", res.Status)
	return res
}

// interrupted finalizes an item whose next attempt could not start.
func (b *batch) interrupted(res Result, cause error) Result {
	if res.Attempts == 0 {
		res.NotAttempted = true
		res.Err = cause
		return res
	}
	if res.Err == nil {
		res.Err = cause
	}
	return res
}

// attempt sends req once. sent is false when the request never left because
// it could not be built or the gate refused it.
func (b *batch) attempt(ctx context.Context, req *Request) (sent bool, status int, body []byte, err error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := req.HTTPRequest(ctx)
	if err != nil {
		return false, 0, nil, err
	}
	if err := b.gate.pass(ctx, b.stopped.Load); err != nil {
		return false, 0, nil, err
	}

	resp, err := b.d.client.Do(httpReq)
	if err != nil {
		return true, 0, nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil && !errors.Is(err, io.EOF) {
		return true, 0, nil, fmt.Errorf("read response: %w", err)
	}
	return true, resp.StatusCode, body, nil
}
