package datapipe

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// PgSink loads table chunks and applies DDL into a live PostgreSQL
// database over a dedicated connection (spec.md §4.4).
type PgSink struct {
	conn *pgwire.Conn
}

// NewPgSink wraps conn. The orchestrator holds one PgSink per data-phase
// worker plus one additional PgSink it keeps exclusively for pre-data
// and post-data DDL (spec.md §4.5).
func NewPgSink(conn *pgwire.Conn) *PgSink {
	return &PgSink{conn: conn}
}

func (s *PgSink) Close() error { return s.conn.Close() }

// PrepareTarget applies every pre-data DDL object in forest.EmitOrder in
// dependency order (spec.md §4.5 phase 2). Differential skipping of
// individual objects is the orchestrator's responsibility (it has the
// run-wide marker-checking logic); PrepareTarget always applies whatever
// forest it is given.
func (s *PgSink) PrepareTarget(ctx context.Context, forest *schema.Forest) error {
	return s.applyPhase(ctx, forest, schema.PreData)
}

// Finalize applies every post-data DDL object in dependency order
// (spec.md §4.5 phase 4).
func (s *PgSink) Finalize(ctx context.Context, forest *schema.Forest) error {
	return s.applyPhase(ctx, forest, schema.PostData)
}

func (s *PgSink) applyPhase(ctx context.Context, forest *schema.Forest, phase schema.Phase) error {
	order, err := schema.EmitOrder(forest)
	if err != nil {
		return err
	}
	for _, obj := range order {
		var buf bytes.Buffer
		if err := schema.EmitDDL(&buf, obj, phase); err != nil {
			return err
		}
		if buf.Len() == 0 {
			continue
		}
		if _, err := s.conn.QuerySimple(ctx, buf.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteChunk issues COPY ... FROM STDIN (FORMAT BINARY) for slice and
// streams r's binary COPY data into it (spec.md §4.4/§4.1 copy_in).
func (s *PgSink) WriteChunk(ctx context.Context, slice TableSlice, r io.Reader) error {
	sql := fmt.Sprintf("COPY %s FROM STDIN (FORMAT BINARY);", slice.Table)
	_, err := s.conn.CopyIn(ctx, sql, r, 0)
	return err
}

// TruncateTable empties table before a differential re-copy: spec.md
// §4.5 resolves partial per-table state by re-copying the whole table
// rather than tracking individual slices, which only produces a correct
// result if the partial rows from the interrupted attempt are cleared
// first.
func (s *PgSink) TruncateTable(ctx context.Context, table schema.QualifiedIdentifier) error {
	_, err := s.conn.QuerySimple(ctx, fmt.Sprintf("TRUNCATE TABLE %s;", table))
	return err
}
