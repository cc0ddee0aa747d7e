// Package datapipe is elefant's Source/Sink adapter layer (spec.md §4.4,
// component D): the orchestrator moves rows by pairing one Source with
// one Sink and never touches either side's wire format directly.
// Grounded on the chunked COPY-based table copiers in
// _examples/other_examples/754dfefc_deanbaker-spirit (pkg/row_copier.go)
// and _examples/other_examples/41d94df0_benjaminsanborn-psc (copier.go),
// both of which expose the same "list chunks, stream one" shape this
// package generalizes into an interface pair so the orchestrator (E) can
// run DB→DB, DB→file, and file→DB without caring which.
package datapipe

import (
	"context"
	"io"

	"github.com/elefant-sync/elefant/schema"
)

// TableSlice names a bounded subset of one table's rows (spec.md §3.3).
// An empty Predicate means "entire table" — the non-chunked case.
type TableSlice struct {
	Table             schema.QualifiedIdentifier
	Predicate         string
	ExpectedRowBound  int64 // 0 means unknown
}

// Source is the read side of the pipeline.
type Source interface {
	// ListChunks returns one slice for a non-chunked table, or a
	// partition of the table's key space when the orchestrator elects to
	// parallelize it (spec.md §4.4).
	ListChunks(ctx context.Context, table *schema.Table, parallelism int) ([]TableSlice, error)
	// ReadChunk opens a REPEATABLE READ snapshot and streams slice's rows
	// in PostgreSQL binary COPY format to w.
	ReadChunk(ctx context.Context, slice TableSlice, w io.Writer) error
	// Close releases this Source's connection.
	Close() error
}

// Sink is the write side of the pipeline.
type Sink interface {
	// PrepareTarget applies every pre-data DDL object in forest, in
	// dependency order.
	PrepareTarget(ctx context.Context, forest *schema.Forest) error
	// WriteChunk reads slice's binary COPY stream from r and loads it.
	// Must be idempotent under differential resume (spec.md §4.4): a
	// retried chunk after a partial failure should not duplicate rows.
	WriteChunk(ctx context.Context, slice TableSlice, r io.Reader) error
	// Finalize applies every post-data DDL object in forest, in
	// dependency order, after every data chunk has completed.
	Finalize(ctx context.Context, forest *schema.Forest) error
	// Close releases this Sink's connection.
	Close() error
}
