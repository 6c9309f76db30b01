package usemerge

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jward/usemerge/internal/store"
)

// IndexFilesParallel indexes files in two phases:
//
//	Phase A (parallel): read, hash and parse on a bounded worker pool, buffering
//	                    results in a BatchedStore.
//	Phase B (serial):   commit the whole batch to SQLite in one transaction.
//
// Per-file failures are collected and do not cancel the other workers.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	workers := e.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	batch := store.NewBatchedStore()

	// ---- Phase A: parallel extraction ----
	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := e.indexFile(gctx, path, batch); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("index %s: %w", path, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("usemerge: index: %w", err)
	}

	// ---- Phase B: serial commit ----
	if batch.Len() > 0 {
		if err := e.store.CommitBatch(batch); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("commit: %w", err))
		}
	}

	e.logger.Info("index complete",
		zap.Int("files", len(paths)),
		zap.Int("indexed", batch.Len()),
		zap.Int("workers", workers),
	)
	return errs.ErrorOrNil()
}
