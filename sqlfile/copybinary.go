package sqlfile

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/elefant-sync/elefant/elefanterrors"
)

// copySignature is the fixed 11-byte preamble every PostgreSQL binary
// COPY stream begins with (PostgreSQL COPY binary format, §PGCOPY).
var copySignature = [11]byte{'P', 'G', 'C', 'O', 'P', 'Y', '\n', 0xff, '\r', '\n', 0}

// decodeCopyBinary walks a PostgreSQL binary-format COPY stream (as
// produced by pgwire.Conn.CopyOut with FORMAT BINARY) and invokes visit
// once per row with that row's field payloads — nil for a SQL NULL
// field, non-nil (possibly empty) otherwise. Used by the
// InsertStatements writer to recover typed values from the same wire
// bytes a CopyStatements export would relay unparsed.
func decodeCopyBinary(r io.Reader, visit func(fields [][]byte) error) error {
	br := bufio.NewReaderSize(r, 32*1024)

	var sig [11]byte
	if _, err := io.ReadFull(br, sig[:]); err != nil {
		return elefanterrors.New(elefanterrors.Encoding, "", "sqlfile_decode", err)
	}
	if sig != copySignature {
		return elefanterrors.New(elefanterrors.ProtocolViolation, "", "sqlfile_decode", nil)
	}

	var flags, extLen int32
	if err := binary.Read(br, binary.BigEndian, &flags); err != nil {
		return elefanterrors.New(elefanterrors.Encoding, "", "sqlfile_decode", err)
	}
	if err := binary.Read(br, binary.BigEndian, &extLen); err != nil {
		return elefanterrors.New(elefanterrors.Encoding, "", "sqlfile_decode", err)
	}
	if extLen > 0 {
		if _, err := io.CopyN(io.Discard, br, int64(extLen)); err != nil {
			return elefanterrors.New(elefanterrors.Encoding, "", "sqlfile_decode", err)
		}
	}

	for {
		var numFields int16
		if err := binary.Read(br, binary.BigEndian, &numFields); err != nil {
			if err == io.EOF {
				return nil // stream truncated without a trailer; caller already knows length
			}
			return elefanterrors.New(elefanterrors.Encoding, "", "sqlfile_decode", err)
		}
		if numFields == -1 {
			return nil // end-of-data trailer
		}

		fields := make([][]byte, numFields)
		for i := range fields {
			var fieldLen int32
			if err := binary.Read(br, binary.BigEndian, &fieldLen); err != nil {
				return elefanterrors.New(elefanterrors.Encoding, "", "sqlfile_decode", err)
			}
			if fieldLen == -1 {
				fields[i] = nil
				continue
			}
			buf := make([]byte, fieldLen)
			if _, err := io.ReadFull(br, buf); err != nil {
				return elefanterrors.New(elefanterrors.Encoding, "", "sqlfile_decode", err)
			}
			fields[i] = buf
		}
		if err := visit(fields); err != nil {
			return err
		}
	}
}
