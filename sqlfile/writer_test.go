package sqlfile

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elefant-sync/elefant/datapipe"
	"github.com/elefant-sync/elefant/pgvalue"
	"github.com/elefant-sync/elefant/schema"
)

func binaryCopyRow(t *testing.T, fields ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(copySignature[:])
	binary.Write(&buf, binary.BigEndian, int32(0))
	binary.Write(&buf, binary.BigEndian, int32(0))

	binary.Write(&buf, binary.BigEndian, int16(len(fields)))
	for _, f := range fields {
		if f == nil {
			binary.Write(&buf, binary.BigEndian, int32(-1))
			continue
		}
		binary.Write(&buf, binary.BigEndian, int32(len(f)))
		buf.Write(f)
	}
	binary.Write(&buf, binary.BigEndian, int16(-1))
	return buf.Bytes()
}

func int4Bytes(n int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(n))
	return b
}

func testOrdersTable() *schema.Table {
	tbl := &schema.Table{
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeRef{OID: uint32(pgvalue.OIDInt4)}},
			{Name: "note", Type: schema.TypeRef{OID: uint32(pgvalue.OIDText)}},
		},
	}
	tbl.SetIdentity(schema.QualifyIdentifier("public", "orders"), nil)
	return tbl
}

func TestWriterInsertStatementsRendersRows(t *testing.T) {
	tbl := testOrdersTable()
	forest := &schema.Forest{Tables: []*schema.Table{tbl}}

	var out strings.Builder
	w := NewWriter(&out, InsertStatements, 1)
	require.NoError(t, w.PrepareTarget(context.Background(), forest))

	row1 := binaryCopyRow(t, int4Bytes(1), []byte("hello"))
	row2 := binaryCopyRow(t, int4Bytes(2), nil)

	require.NoError(t, w.WriteChunk(context.Background(), datapipe.TableSlice{Table: tbl.Identifier()}, bytes.NewReader(row1)))
	require.NoError(t, w.WriteChunk(context.Background(), datapipe.TableSlice{Table: tbl.Identifier()}, bytes.NewReader(row2)))
	require.NoError(t, w.Finalize(context.Background(), forest))

	text := out.String()
	require.Contains(t, text, "-- ELEFANT_SYNC format=InsertStatements version=1")
	require.Contains(t, text, `INSERT INTO "public"."orders" ("id", "note") VALUES`)
	require.Contains(t, text, "'1', 'hello'")
	require.Contains(t, text, "'2', NULL")
}

func TestWriterCopyStatementsThenReaderReplays(t *testing.T) {
	tbl := testOrdersTable()
	forest := &schema.Forest{Tables: []*schema.Table{tbl}}

	var out strings.Builder
	w := NewWriter(&out, CopyStatements, 0)
	require.NoError(t, w.PrepareTarget(context.Background(), forest))

	row := binaryCopyRow(t, int4Bytes(7), []byte("abc"))
	require.NoError(t, w.WriteChunk(context.Background(), datapipe.TableSlice{Table: tbl.Identifier()}, bytes.NewReader(row)))
	require.NoError(t, w.Finalize(context.Background(), forest))

	rd, err := NewReader(strings.NewReader(out.String()))
	require.NoError(t, err)
	require.Equal(t, CopyStatements, rd.Format())

	var ddlStatements []string
	var writtenChunks []datapipe.TableSlice
	sink := &replaySink{
		onWriteChunk: func(slice datapipe.TableSlice, payload []byte) {
			writtenChunks = append(writtenChunks, slice)
			require.Equal(t, row, payload)
		},
	}
	err = rd.Replay(context.Background(), sink, func(_ context.Context, stmt string) error {
		ddlStatements = append(ddlStatements, stmt)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, writtenChunks, 1)
	require.Equal(t, tbl.Identifier(), writtenChunks[0].Table)
}

// replaySink is a minimal datapipe.Sink fake for exercising Reader.Replay.
type replaySink struct {
	onWriteChunk func(slice datapipe.TableSlice, payload []byte)
}

func (s *replaySink) PrepareTarget(context.Context, *schema.Forest) error { return nil }
func (s *replaySink) Finalize(context.Context, *schema.Forest) error     { return nil }
func (s *replaySink) Close() error                                       { return nil }

func (s *replaySink) WriteChunk(_ context.Context, slice datapipe.TableSlice, r io.Reader) error {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return err
	}
	s.onWriteChunk(slice, buf.Bytes())
	return nil
}
