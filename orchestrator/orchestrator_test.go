package orchestrator

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/elefant-sync/elefant/datapipe"
	"github.com/elefant-sync/elefant/elefantconfig"
	"github.com/elefant-sync/elefant/elefanterrors"
	"github.com/elefant-sync/elefant/schema"
)

// fakeSource/fakeSink let the data-phase worker pool and retry logic be
// exercised without a live PostgreSQL connection.

type fakeSource struct {
	mu        sync.Mutex
	chunksOf  map[schema.QualifiedIdentifier][]datapipe.TableSlice
	readCalls int
	failFirst int // number of ReadChunk calls to fail before succeeding
}

func (f *fakeSource) ListChunks(_ context.Context, t *schema.Table, _ int) ([]datapipe.TableSlice, error) {
	return f.chunksOf[t.Identifier()], nil
}

func (f *fakeSource) ReadChunk(_ context.Context, slice datapipe.TableSlice, w io.Writer) error {
	f.mu.Lock()
	f.readCalls++
	shouldFail := f.readCalls <= f.failFirst
	f.mu.Unlock()
	if shouldFail {
		return elefanterrors.New(elefanterrors.Transient, "", "data", nil)
	}
	_, err := w.Write([]byte("PGCOPY\n"))
	return err
}

func (f *fakeSource) Close() error { return nil }

type fakeSink struct {
	mu      sync.Mutex
	written []schema.QualifiedIdentifier
}

func (s *fakeSink) PrepareTarget(_ context.Context, _ *schema.Forest) error { return nil }
func (s *fakeSink) Finalize(_ context.Context, _ *schema.Forest) error     { return nil }

func (s *fakeSink) WriteChunk(_ context.Context, slice datapipe.TableSlice, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	s.mu.Lock()
	s.written = append(s.written, slice.Table)
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) Close() error { return nil }

func newTestOrchestrator(t *testing.T, src *fakeSource, sink *fakeSink) *Orchestrator {
	t.Helper()
	opts := elefantconfig.DefaultRunOptions()
	opts.MaxParallelism = 2
	opts.RetryBackoff = 0
	o, err := New(opts, zerolog.Nop(), func(context.Context) (datapipe.Source, error) {
		return src, nil
	}, func(context.Context) (datapipe.Sink, error) {
		return sink, nil
	}, sink, nil)
	require.NoError(t, err)
	return o
}

func testTable(name string) *schema.Table {
	tbl := &schema.Table{}
	tbl.SetIdentity(schema.QualifyIdentifier("public", name), nil)
	return tbl
}

func TestDataPhaseCopiesEveryChunk(t *testing.T) {
	t1 := testTable("orders")
	t2 := testTable("customers")
	src := &fakeSource{chunksOf: map[schema.QualifiedIdentifier][]datapipe.TableSlice{
		t1.Identifier(): {{Table: t1.Identifier()}, {Table: t1.Identifier(), Predicate: "id >= 100"}},
		t2.Identifier(): {{Table: t2.Identifier()}},
	}}
	sink := &fakeSink{}
	o := newTestOrchestrator(t, src, sink)

	forest := &schema.Forest{Tables: []*schema.Table{t1, t2}}
	p, err := o.planPhase(context.Background(), forest)
	require.NoError(t, err)
	require.Len(t, p.items, 3)

	require.NoError(t, o.dataPhase(context.Background(), p))
	require.Len(t, sink.written, 3)
}

func TestCopyChunkWithRetryRecoversFromTransientFailure(t *testing.T) {
	tbl := testTable("orders")
	src := &fakeSource{
		chunksOf:  map[schema.QualifiedIdentifier][]datapipe.TableSlice{tbl.Identifier(): {{Table: tbl.Identifier()}}},
		failFirst: 2,
	}
	sink := &fakeSink{}
	o := newTestOrchestrator(t, src, sink)
	o.Opts.RetryAttempts = 3

	err := o.copyChunkWithRetry(context.Background(), src, sink, workItem{table: tbl, slice: datapipe.TableSlice{Table: tbl.Identifier()}})
	require.NoError(t, err)
	require.Len(t, sink.written, 1)
}
