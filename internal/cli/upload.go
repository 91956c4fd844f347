package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/pbx/internal/auth"
	"github.com/dmitrijs2005/pbx/internal/dispatch"
	"github.com/dmitrijs2005/pbx/internal/docstore"
	"github.com/dmitrijs2005/pbx/internal/journal"
	"github.com/dmitrijs2005/pbx/internal/pathmatch"
	"github.com/dmitrijs2005/pbx/internal/progress"
	"github.com/dmitrijs2005/pbx/internal/upload"
)

func (a *App) runUpload(ctx context.Context, pattern string, df *documentsFlags, uf *uploadFlags) error {
	if err := a.checkCredentials(); err != nil {
		return err
	}

	compiled, err := pathmatch.Compile(pattern)
	if err != nil {
		return usageErrorf("%w", err)
	}

	base := baseParams(df, uf)
	// a pattern that captures the target validates it per document instead
	if !capturesTarget(compiled.Names()) {
		if err := base.Target.Validate(); err != nil {
			return &usageError{err: err}
		}
	}

	creds := upload.NewCachedCredentials(a.cfg.KeyFile, a.cfg.TokenExpiry)
	cred, err := creds.Credential()
	if err != nil {
		return err
	}
	a.log.Debug(ctx, "minted access token", "endpoint", cred.Endpoint, "expires_at", cred.ExpiresAt)

	store := docstore.NewRouter(func(ctx context.Context) (docstore.Store, error) {
		return a.newS3(ctx, a.cfg.S3)
	})
	matches, err := store.Find(ctx, pattern, uf.recursive, a.log)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintf(a.stdout, "No documents matched %s\n", pattern)
		return nil
	}

	params := make([]upload.Params, 0, len(matches))
	for _, m := range matches {
		p := base.WithVars(m.Vars)
		p.Path = m.Path
		params = append(params, p)
	}

	builder := upload.NewBuilder(store, creds, a.cfg.APIKey)
	if uf.dryRun {
		return a.dryRun(ctx, builder, params)
	}

	jr := a.openJournal(ctx)
	if jr != nil {
		defer jr.Close()
	}
	if uf.skipUploaded {
		if params, err = a.skipUploaded(ctx, jr, params); err != nil {
			return err
		}
		if len(params) == 0 {
			fmt.Fprintln(a.stdout, "All matching documents were already uploaded")
			return nil
		}
	}

	a.warnExpiry(ctx, cred, len(params))

	sources := make([]dispatch.Source, len(params))
	for i, p := range params {
		sources[i] = builder.Thunk(p)
	}

	run := &journal.Run{Target: base.Target.String(), Pattern: pattern, Total: len(params)}
	if jr != nil {
		if err := jr.Repo.CreateRun(ctx, run); err != nil {
			a.log.Warn(ctx, "journal unavailable, run will not be recorded", "error", err)
			jr = nil
		}
	}

	bar := progress.New(a.stderr, len(sources))
	d := dispatch.New(a.httpClient, a.cfg.Dispatch(), a.log, dispatch.WithObserver(bar))

	started := a.now()
	results := d.Dispatch(ctx, sources)
	bar.Close()

	if jr != nil {
		if err := jr.Record(ctx, run, journalUploads(params, results)); err != nil {
			a.log.Warn(ctx, "failed to record run in journal", "error", err)
		}
	}

	a.printSummary(params, results, a.now().Sub(started))
	return dispatch.CheckResults(results)
}

func capturesTarget(names []string) bool {
	return slices.Contains(names, upload.VarInboxID) || slices.Contains(names, upload.VarRouterID)
}

// dryRun builds every request and prints it without sending anything.
func (a *App) dryRun(ctx context.Context, b *upload.Builder, params []upload.Params) error {
	var failed int
	for _, p := range params {
		req, err := b.Build(ctx, p)
		if err != nil {
			failed++
			fmt.Fprintf(a.stdout, "%s %s: %v\n", red("SKIP"), p.Path, err)
			continue
		}
		fmt.Fprintf(a.stdout, "%s %s %s %s\n", green(req.Method), req.URL, gray(fmt.Sprintf("(%d bytes)", len(req.Body))), p.Path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents could not be prepared", failed, len(params))
	}
	return nil
}

// openJournal returns nil when the journal is disabled or cannot be opened;
// uploads never fail because of it.
func (a *App) openJournal(ctx context.Context) *journal.Journal {
	if a.cfg.JournalPath == "" {
		return nil
	}
	jr, err := journal.Open(ctx, a.cfg.JournalPath)
	if err != nil {
		a.log.Warn(ctx, "journal unavailable, run will not be recorded", "path", a.cfg.JournalPath, "error", err)
		return nil
	}
	return jr
}

func (a *App) skipUploaded(ctx context.Context, jr *journal.Journal, params []upload.Params) ([]upload.Params, error) {
	if jr == nil {
		return nil, errors.New("--skip-uploaded needs the journal, which is disabled or unavailable")
	}
	kept := make([]upload.Params, 0, len(params))
	for _, p := range params {
		done, err := jr.Repo.IsUploaded(ctx, p.Target.String(), p.Path)
		if err != nil {
			return nil, err
		}
		if done {
			a.log.Info(ctx, "skipping uploaded document", "path", p.Path, "target", p.Target.String())
			continue
		}
		kept = append(kept, p)
	}
	return kept, nil
}

// warnExpiry flags batches whose pacing alone outlasts the access token.
// Tokens are not refreshed, so later requests would be rejected.
func (a *App) warnExpiry(ctx context.Context, cred *auth.Credential, n int) {
	interval := a.cfg.Interval
	if n < 2 || interval <= 0 {
		return
	}
	need := time.Duration(n-1) * interval
	left := cred.Remaining(a.now())
	if need <= left {
		return
	}
	a.log.Warn(ctx, "batch may outlive the access token, later uploads will be rejected",
		"documents", n, "min_duration", need, "token_remaining", left)
	fmt.Fprintln(a.stderr, yellow(fmt.Sprintf(
		"Warning: uploading %d documents takes at least %s but the token expires in %s; raise --token-expiry or split the batch",
		n, need.Round(time.Second), left.Round(time.Second))))
}

func journalUploads(params []upload.Params, results []dispatch.Result) []journal.Upload {
	out := make([]journal.Upload, len(results))
	for i, r := range results {
		u := journal.Upload{
			RequestID:    r.RequestID,
			Path:         params[i].Path,
			Target:       params[i].Target.String(),
			OK:           r.OK,
			Status:       r.Status,
			Attempts:     r.Attempts,
			NotAttempted: r.NotAttempted,
		}
		if r.Err != nil {
			u.Error = r.Err.Error()
		}
		out[i] = u
	}
	return out
}
