package orchestrator

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elefant-sync/elefant/datapipe"
	"github.com/elefant-sync/elefant/elefanterrors"
	"github.com/elefant-sync/elefant/schema"
)

// preDataPhase applies every pre-data DDL object over the orchestrator's
// own exclusive DDL connection (spec.md §4.5 phase 2).
func (o *Orchestrator) preDataPhase(ctx context.Context, forest *schema.Forest) error {
	return o.DDLSink.PrepareTarget(ctx, forest)
}

// postDataPhase applies every post-data DDL object (spec.md §4.5 phase
// 4), run only after every data chunk committed.
func (o *Orchestrator) postDataPhase(ctx context.Context, forest *schema.Forest) error {
	return o.DDLSink.Finalize(ctx, forest)
}

// tableTracker counts, per table, how many of its chunks are still
// outstanding so the worker that completes the last one can write the
// differential-resume marker (spec.md §6.3: markers are per table, not
// per chunk).
type tableTracker struct {
	mu        sync.Mutex
	remaining map[schema.QualifiedIdentifier]int
}

func (t *tableTracker) done(qid schema.QualifiedIdentifier) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remaining[qid]--
	return t.remaining[qid] == 0
}

// dataPhase fans work items out across a bounded worker pool, one
// source+sink connection pair per worker for its entire lifetime (spec.md
// §4.5: "each worker holds exactly one source connection and one sink
// connection"), using golang.org/x/sync/errgroup so any worker's error
// cancels the others and is returned from Wait.
func (o *Orchestrator) dataPhase(ctx context.Context, p *plan) error {
	if len(p.items) == 0 {
		return nil
	}

	tracker := &tableTracker{remaining: p.remaining}

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan workItem)

	g.Go(func() error {
		defer close(queue)
		for _, it := range p.items {
			select {
			case queue <- it:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := o.Opts.MaxParallelism
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			src, err := o.NewSource(gctx)
			if err != nil {
				return err
			}
			defer src.Close()

			sink, err := o.NewSink(gctx)
			if err != nil {
				return err
			}
			defer sink.Close()

			for it := range queue {
				if err := o.copyChunkWithRetry(gctx, src, sink, it); err != nil {
					return err
				}
				if tracker.done(it.table.Identifier()) && o.Opts.Differential && o.MarkerConn != nil {
					if err := datapipe.MarkPhaseComplete(gctx, o.MarkerConn, o.RunID, schema.KindTable, it.table.Identifier(), "data"); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// copyChunkWithRetry streams one slice from src to sink, retrying
// transient failures up to Opts.RetryAttempts times with exponential
// backoff from Opts.RetryBackoff (spec.md §4.5/§7).
func (o *Orchestrator) copyChunkWithRetry(ctx context.Context, src datapipe.Source, sink datapipe.Sink, it workItem) error {
	attempts := o.Opts.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := o.Opts.RetryBackoff

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff * time.Duration(1<<uint(attempt-1))):
			case <-ctx.Done():
				return ctx.Err()
			}
			o.Logger.Warn().
				Str("table", string(it.table.Identifier())).
				Int("attempt", attempt+1).
				Err(lastErr).
				Msg("retrying chunk after transient failure")
		}

		err := copyChunk(ctx, src, sink, it.slice)
		if err == nil {
			return nil
		}
		lastErr = err
		if !elefanterrors.IsTransient(err) {
			return err
		}
	}
	return lastErr
}

// copyChunk pipes slice's binary COPY stream directly from src to sink
// without buffering the whole chunk in memory. A read error closes the
// pipe with that error, so the sink sees a failed stream rather than a
// cleanly ended one.
func copyChunk(ctx context.Context, src datapipe.Source, sink datapipe.Sink, slice datapipe.TableSlice) error {
	pr, pw := io.Pipe()

	readErrCh := make(chan error, 1)
	go func() {
		err := src.ReadChunk(ctx, slice, pw)
		pw.CloseWithError(err)
		readErrCh <- err
	}()

	writeErr := sink.WriteChunk(ctx, slice, pr)
	pr.Close()

	readErr := <-readErrCh
	if readErr != nil {
		return readErr
	}
	return writeErr
}
