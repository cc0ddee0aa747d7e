// Package sqlfile is elefant's SQL-file codec (spec.md §4.6, component
// F): the same `COPY ... (FORMAT BINARY)` byte stream the orchestrator
// moves between a PgSource and a PgSink can instead be written to, or
// replayed from, a plain file, so `export`/`import` need nothing the
// `copy` subcommand doesn't already have.
//
// Grounded on the two-format (statement-based vs native-bulk-load)
// dump writer split of
// _examples/other_examples/8444d62e_skeema-skeema (fmt package) and the
// streaming row-to-literal conversion of
// _examples/other_examples/41d94df0_benjaminsanborn-psc (copier.go).
package sqlfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/elefant-sync/elefant/datapipe"
	"github.com/elefant-sync/elefant/elefanterrors"
	"github.com/elefant-sync/elefant/pgvalue"
	"github.com/elefant-sync/elefant/schema"
)

// Format selects one of the two on-disk encodings spec.md §4.6 defines.
type Format string

const (
	InsertStatements Format = "InsertStatements"
	CopyStatements   Format = "CopyStatements"
)

// Writer implements datapipe.Sink by rendering pre-data DDL, data, and
// post-data DDL into a plain file instead of a live connection, per
// spec.md §6.4's header/section marker format.
type Writer struct {
	w                io.Writer
	format           Format
	maxRowsPerInsert int

	tables      map[schema.QualifiedIdentifier]*schema.Table
	wroteHeader bool
	inDataSection bool
}

// NewWriter wraps w. maxRowsPerInsert bounds how many VALUES tuples one
// INSERT statement carries under InsertStatements (spec.md §4.6); it is
// ignored for CopyStatements. A value <= 0 defaults to 1000.
func NewWriter(w io.Writer, format Format, maxRowsPerInsert int) *Writer {
	if maxRowsPerInsert <= 0 {
		maxRowsPerInsert = 1000
	}
	return &Writer{w: w, format: format, maxRowsPerInsert: maxRowsPerInsert}
}

func (wr *Writer) header() error {
	if wr.wroteHeader {
		return nil
	}
	if _, err := fmt.Fprintf(wr.w, "-- ELEFANT_SYNC format=%s version=1\n", wr.format); err != nil {
		return err
	}
	wr.wroteHeader = true
	return nil
}

func (wr *Writer) section(name string) error {
	_, err := fmt.Fprintf(wr.w, "-- ELEFANT_SYNC:section=%s\n", name)
	return err
}

func (wr *Writer) indexTables(forest *schema.Forest) {
	if wr.tables != nil {
		return
	}
	wr.tables = make(map[schema.QualifiedIdentifier]*schema.Table, len(forest.Tables))
	for _, t := range forest.Tables {
		wr.tables[t.Identifier()] = t
	}
}

// PrepareTarget writes the file header (once), the pre-data section
// marker, and every pre-data DDL statement in dependency order.
func (wr *Writer) PrepareTarget(_ context.Context, forest *schema.Forest) error {
	return wr.emitPhase(forest, schema.PreData, "pre-data")
}

// Finalize writes the post-data section marker and every post-data DDL
// statement, after every data chunk has been written.
func (wr *Writer) Finalize(_ context.Context, forest *schema.Forest) error {
	return wr.emitPhase(forest, schema.PostData, "post-data")
}

func (wr *Writer) emitPhase(forest *schema.Forest, phase schema.Phase, sectionName string) error {
	wr.indexTables(forest)
	if err := wr.header(); err != nil {
		return err
	}
	order, err := schema.EmitOrder(forest)
	if err != nil {
		return err
	}
	var buf strings.Builder
	for _, obj := range order {
		buf.Reset()
		if err := schema.EmitDDL(&buf, obj, phase); err != nil {
			return err
		}
		if buf.Len() == 0 {
			continue
		}
		if err := wr.section(sectionName); err != nil {
			return err
		}
		if _, err := io.WriteString(wr.w, buf.String()); err != nil {
			return err
		}
		sectionName = "" // only stamp the marker once per phase
	}
	return nil
}

// WriteChunk renders slice's binary COPY payload (read from r) as
// either a COPY ... FROM stdin block or a batch of INSERT statements,
// depending on the writer's Format.
func (wr *Writer) WriteChunk(_ context.Context, slice datapipe.TableSlice, r io.Reader) error {
	if err := wr.header(); err != nil {
		return err
	}
	if !wr.inDataSection {
		if err := wr.section("data"); err != nil {
			return err
		}
		wr.inDataSection = true
	}

	switch wr.format {
	case CopyStatements:
		return wr.writeCopyChunk(slice, r)
	default:
		return wr.writeInsertChunk(slice, r)
	}
}

// writeCopyChunk relays the binary COPY payload verbatim, length-
// prefixed with an ELEFANT_SYNC marker rather than the text-format `\.`
// terminator psql uses: binary payloads can legally contain byte
// sequences that look like a text terminator, so only elefant's own
// Reader replays this format (spec.md §4.6 scopes CopyStatements to
// elefant-to-elefant transfer, unlike the psql-compatible
// InsertStatements format).
func (wr *Writer) writeCopyChunk(slice datapipe.TableSlice, r io.Reader) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(wr.w, "COPY %s FROM stdin (FORMAT BINARY);\n", slice.Table); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(wr.w, "-- ELEFANT_SYNC:copy_bytes=%d\n", len(payload)); err != nil {
		return err
	}
	if _, err := wr.w.Write(payload); err != nil {
		return err
	}
	_, err = fmt.Fprint(wr.w, "\n-- ELEFANT_SYNC:end_copy\n")
	return err
}

func (wr *Writer) writeInsertChunk(slice datapipe.TableSlice, r io.Reader) error {
	table := wr.tables[slice.Table]
	if table == nil {
		return elefanterrors.New(elefanterrors.UnsupportedFeature, string(slice.Table), "sqlfile_insert", nil)
	}

	bw := bufio.NewWriter(wr.w)
	columnList := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		columnList[i] = schema.QuoteIdentifier(c.Name)
	}

	rowsInBatch := 0
	flushHeader := func() error {
		_, err := fmt.Fprintf(bw, "INSERT INTO %s (%s) VALUES\n", slice.Table, strings.Join(columnList, ", "))
		return err
	}

	err := decodeCopyBinary(r, func(fields [][]byte) error {
		if rowsInBatch == 0 {
			if err := flushHeader(); err != nil {
				return err
			}
		} else {
			if _, err := bw.WriteString(",\n"); err != nil {
				return err
			}
		}
		literal, err := rowLiteral(table, fields)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(literal); err != nil {
			return err
		}
		rowsInBatch++
		if rowsInBatch >= wr.maxRowsPerInsert {
			if _, err := bw.WriteString(";\n"); err != nil {
				return err
			}
			rowsInBatch = 0
		}
		return nil
	})
	if err != nil {
		return err
	}
	if rowsInBatch > 0 {
		if _, err := bw.WriteString(";\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// rowLiteral renders one decoded binary COPY row as a parenthesized SQL
// tuple, decoding each field through pgvalue's binary scan target for
// its column's type and re-encoding it as a text literal.
func rowLiteral(table *schema.Table, fields [][]byte) (string, error) {
	var b strings.Builder
	b.WriteByte('(')
	for i, raw := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		if raw == nil {
			b.WriteString("NULL")
			continue
		}
		if i >= len(table.Columns) {
			return "", elefanterrors.New(elefanterrors.ProtocolViolation, string(table.Identifier()), "sqlfile_insert", nil)
		}
		oid := pgvalue.OID(table.Columns[i].Type.OID)
		target := pgvalue.NewScanTarget(oid)
		if target == nil {
			// No specialized codec for this OID: fall back to a quoted text
			// literal of the raw bytes, which is valid for any type whose
			// binary and text representations elefant hasn't special-cased.
			b.WriteString(string(schema.QuoteLiteral(string(raw))))
			continue
		}
		if err := target.ScanBinary(raw); err != nil {
			return "", err
		}
		encoder, ok := target.(pgvalue.ToSql)
		if !ok {
			b.WriteString(string(schema.QuoteLiteral(string(raw))))
			continue
		}
		litBytes, err := encoder.EncodeText(nil)
		if err != nil {
			return "", err
		}
		b.WriteString(string(schema.QuoteLiteral(string(litBytes))))
	}
	b.WriteByte(')')
	return b.String(), nil
}

// Close is a no-op: Writer does not own w's lifecycle (the caller opened
// the file and closes it after the orchestrator run completes).
func (wr *Writer) Close() error { return nil }
