package upload

import (
	"context"

	"github.com/dmitrijs2005/pbx/internal/dispatch"
)

// Uploader sends single documents right away.
type Uploader struct {
	builder    *Builder
	dispatcher *dispatch.Dispatcher
}

func NewUploader(b *Builder, d *dispatch.Dispatcher) *Uploader {
	return &Uploader{builder: b, dispatcher: d}
}

// Upload builds the request for p. With dryRun the descriptor is returned
// unsent for later batching; otherwise it is dispatched on its own and its
// result returned.
func (u *Uploader) Upload(ctx context.Context, p Params, dryRun bool) (*dispatch.Request, *dispatch.Result, error) {
	req, err := u.builder.Build(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	if dryRun {
		return req, nil, nil
	}

	results := u.dispatcher.Dispatch(ctx, []dispatch.Source{dispatch.Static(req)})
	res := results[0]
	return req, &res, dispatch.CheckResults(results)
}
