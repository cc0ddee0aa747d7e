package sqlfile

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/elefant-sync/elefant/datapipe"
	"github.com/elefant-sync/elefant/elefanterrors"
	"github.com/elefant-sync/elefant/schema"
)

const headerPrefix = "-- ELEFANT_SYNC format="
const sectionPrefix = "-- ELEFANT_SYNC:section="
const copyBytesPrefix = "-- ELEFANT_SYNC:copy_bytes="
const endCopyMarker = "-- ELEFANT_SYNC:end_copy"

// Reader replays a file Writer produced back into a datapipe.Sink,
// detecting the format from the header line (spec.md §6.4) rather than
// requiring the caller to know it up front.
type Reader struct {
	br     *bufio.Reader
	format Format
}

// NewReader reads and validates r's header line before returning.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, elefanterrors.New(elefanterrors.ProtocolViolation, "", "sqlfile_read", err)
	}
	line = strings.TrimRight(line, "\n")
	if !strings.HasPrefix(line, headerPrefix) {
		return nil, elefanterrors.New(elefanterrors.ProtocolViolation, "", "sqlfile_read", nil)
	}
	rest := strings.TrimPrefix(line, headerPrefix)
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, elefanterrors.New(elefanterrors.ProtocolViolation, "", "sqlfile_read", nil)
	}
	format := Format(fields[0])
	if format != InsertStatements && format != CopyStatements {
		return nil, elefanterrors.New(elefanterrors.UnsupportedFeature, fields[0], "sqlfile_read", nil)
	}
	return &Reader{br: br, format: format}, nil
}

// Format reports the detected on-disk format.
func (rd *Reader) Format() Format { return rd.format }

// Replay walks every section of the file in order. Each SQL statement
// (the lines up to one ending in ';', INSERT statements included) is
// passed to execDDL, or dropped when execDDL is nil; each COPY block's
// payload is passed to sink.WriteChunk. sink.PrepareTarget and
// sink.Finalize are not called: the file itself carries already-ordered
// DDL text, so Replay executes it directly rather than re-deriving an IR
// from it.
func (rd *Reader) Replay(ctx context.Context, sink datapipe.Sink, execDDL func(ctx context.Context, statement string) error) error {
	var section string
	var ddlBuf strings.Builder

	flushDDL := func() error {
		if ddlBuf.Len() == 0 {
			return nil
		}
		stmt := ddlBuf.String()
		ddlBuf.Reset()
		if execDDL == nil {
			return nil
		}
		return execDDL(ctx, stmt)
	}

	for {
		line, err := rd.br.ReadString('\n')
		atEOF := err == io.EOF
		if err != nil && !atEOF {
			return elefanterrors.New(elefanterrors.ProtocolViolation, "", "sqlfile_read", err)
		}
		trimmed := strings.TrimRight(line, "\n")

		switch {
		case strings.HasPrefix(trimmed, sectionPrefix):
			if err := flushDDL(); err != nil {
				return err
			}
			section = strings.TrimPrefix(trimmed, sectionPrefix)

		case strings.HasPrefix(trimmed, "COPY ") && strings.Contains(trimmed, "FROM stdin"):
			table, perr := parseCopyTableName(trimmed)
			if perr != nil {
				return perr
			}
			n, lenLine, lerr := rd.readCopyLenMarker()
			if lerr != nil {
				return lerr
			}
			_ = lenLine
			payload := make([]byte, n)
			if _, err := io.ReadFull(rd.br, payload); err != nil {
				return elefanterrors.New(elefanterrors.ProtocolViolation, string(table), "sqlfile_read", err)
			}
			if err := rd.consumeEndCopyMarker(); err != nil {
				return err
			}
			if err := sink.WriteChunk(ctx, datapipe.TableSlice{Table: table}, bytes.NewReader(payload)); err != nil {
				return err
			}

		case section == "data" && strings.HasPrefix(trimmed, "INSERT INTO"):
			// InsertStatements data: relayed as plain DDL/DML through execDDL,
			// since an INSERT is itself valid SQL the target can execute
			// directly — no binary re-encoding needed on the way back in.
			ddlBuf.WriteString(trimmed)
			ddlBuf.WriteByte('\n')
			if strings.HasSuffix(strings.TrimSpace(trimmed), ";") {
				if err := flushDDL(); err != nil {
					return err
				}
			}

		case trimmed == "":
			// blank separator line, ignore

		default:
			ddlBuf.WriteString(trimmed)
			ddlBuf.WriteByte('\n')
			if strings.HasSuffix(strings.TrimSpace(trimmed), ";") {
				if err := flushDDL(); err != nil {
					return err
				}
			}
		}

		if atEOF {
			break
		}
	}
	return flushDDL()
}

func (rd *Reader) readCopyLenMarker() (int64, string, error) {
	line, err := rd.br.ReadString('\n')
	if err != nil {
		return 0, "", elefanterrors.New(elefanterrors.ProtocolViolation, "", "sqlfile_read", err)
	}
	line = strings.TrimRight(line, "\n")
	if !strings.HasPrefix(line, copyBytesPrefix) {
		return 0, line, elefanterrors.New(elefanterrors.ProtocolViolation, "", "sqlfile_read", nil)
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(line, copyBytesPrefix), 10, 64)
	if err != nil {
		return 0, line, elefanterrors.New(elefanterrors.ProtocolViolation, "", "sqlfile_read", err)
	}
	return n, line, nil
}

func (rd *Reader) consumeEndCopyMarker() error {
	for {
		line, err := rd.br.ReadString('\n')
		if err != nil {
			return elefanterrors.New(elefanterrors.ProtocolViolation, "", "sqlfile_read", err)
		}
		trimmed := strings.TrimRight(line, "\n")
		if trimmed == "" {
			continue
		}
		if trimmed == endCopyMarker {
			return nil
		}
		return elefanterrors.New(elefanterrors.ProtocolViolation, "", "sqlfile_read", nil)
	}
}

func parseCopyTableName(line string) (schema.QualifiedIdentifier, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return "", elefanterrors.New(elefanterrors.ProtocolViolation, line, "sqlfile_read", nil)
	}
	return schema.QualifiedIdentifier(fields[1]), nil
}
