// Package docstore locates and reads the documents to upload. Paths starting
// with s3:// are served from an S3-compatible bucket, everything else from
// the local filesystem.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/dmitrijs2005/pbx/internal/common"
	"github.com/dmitrijs2005/pbx/internal/logging"
	"github.com/dmitrijs2005/pbx/internal/pathmatch"
)

// Store finds documents by pattern and reads their content.
type Store interface {
	Find(ctx context.Context, pattern string, recursive bool, log logging.Logger) ([]pathmatch.Match, error)
	// ReadFile fails with common.ErrMissingFile when path does not exist.
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// Local serves documents from the filesystem.
type Local struct{}

func (Local) Find(ctx context.Context, pattern string, recursive bool, log logging.Logger) ([]pathmatch.Match, error) {
	if fi, err := os.Stat(pattern); err == nil && fi.IsDir() {
		// a bare directory selects the files inside it
		pattern = strings.TrimRight(pattern, `/\`) + "/*"
	}
	p, err := pathmatch.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return p.Find(ctx, recursive, log)
}

func (Local) ReadFile(_ context.Context, path string) ([]byte, error) {
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", common.ErrMissingFile, path)
	case err != nil:
		return nil, err
	case fi.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", common.ErrMissingFile, path)
	}
	return os.ReadFile(path)
}

// Router sends s3:// paths to an S3 store created on first use and all other
// paths to Local.
type Router struct {
	Local Store
	NewS3 func(ctx context.Context) (Store, error)

	once sync.Once
	s3   Store
	err  error
}

func NewRouter(newS3 func(ctx context.Context) (Store, error)) *Router {
	return &Router{Local: Local{}, NewS3: newS3}
}

func (r *Router) storeFor(ctx context.Context, path string) (Store, error) {
	if !IsS3(path) {
		return r.Local, nil
	}
	r.once.Do(func() {
		if r.NewS3 == nil {
			r.err = errors.New("s3 document source is not configured")
			return
		}
		r.s3, r.err = r.NewS3(ctx)
	})
	return r.s3, r.err
}

func (r *Router) Find(ctx context.Context, pattern string, recursive bool, log logging.Logger) ([]pathmatch.Match, error) {
	s, err := r.storeFor(ctx, pattern)
	if err != nil {
		return nil, err
	}
	return s.Find(ctx, pattern, recursive, log)
}

func (r *Router) ReadFile(ctx context.Context, path string) ([]byte, error) {
	s, err := r.storeFor(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.ReadFile(ctx, path)
}
