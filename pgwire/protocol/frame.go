package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jackc/chunkreader/v2"
	"github.com/jackc/pgio"
)

// Frame is the raw {kind, length, payload} envelope of spec.md §3.1.
// Startup and SSLRequest frames omit Kind (HasKind is false).
type Frame struct {
	Kind    byte
	HasKind bool
	Payload []byte
}

// FrameReader reads length-prefixed frames off the wire using a buffered
// chunk reader, grounded on the teacher's pgproto3 chunkReader (minimize
// read syscalls, reuse the backing buffer between frames).
type FrameReader struct {
	cr *chunkreader.ChunkReader
}

// NewFrameReader wraps r. headerSize bytes must still be read per call to
// Next; HasKind controls whether a 1-byte kind precedes the 4-byte length.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{cr: chunkreader.NewChunkReader(r)}
}

// Next reads one frame. When hasKind is true it expects {kind byte,
// length u32, payload}; otherwise {length u32, payload} (used only for
// the very first frame on a connection, spec.md §3.1).
func (fr *FrameReader) Next(hasKind bool) (Frame, error) {
	headerSize := 4
	if hasKind {
		headerSize = 5
	}

	header, err := fr.cr.Next(headerSize)
	if err != nil {
		return Frame{}, err
	}

	var kind byte
	lenOff := 0
	if hasKind {
		kind = header[0]
		lenOff = 1
	}
	msgLen := int(binary.BigEndian.Uint32(header[lenOff:])) - 4
	if msgLen < 0 {
		return Frame{}, fmt.Errorf("pgwire: invalid frame length %d", msgLen)
	}

	var payload []byte
	if msgLen > 0 {
		payload, err = fr.cr.Next(msgLen)
		if err != nil {
			return Frame{}, err
		}
	}

	return Frame{Kind: kind, HasKind: hasKind, Payload: payload}, nil
}

// FrameWriter builds outbound frames in a buffer. Each message's Encode
// uses its own FrameWriter, and Conn sends every encoded message with a
// separate Write.
type FrameWriter struct {
	buf bytes.Buffer
}

// BeginFrame writes the kind byte (if any) and a placeholder length,
// returning the offset of the length field to patch once the payload is
// known. Pass kind == 0 to omit the kind byte (Startup/SSLRequest).
func (fw *FrameWriter) BeginFrame(kind byte) (lenOffset int) {
	if kind != 0 {
		pgio.WriteByte(&fw.buf, kind)
	}
	lenOffset = fw.buf.Len()
	pgio.WriteInt32(&fw.buf, 0)
	return lenOffset
}

// EndFrame patches the length field written by BeginFrame now that the
// payload has been appended.
func (fw *FrameWriter) EndFrame(lenOffset int) {
	b := fw.buf.Bytes()
	binary.BigEndian.PutUint32(b[lenOffset:lenOffset+4], uint32(fw.buf.Len()-lenOffset))
}

// Bytes returns the accumulated frame bytes.
func (fw *FrameWriter) Bytes() []byte { return fw.buf.Bytes() }

// Reset clears the buffer for reuse.
func (fw *FrameWriter) Reset() { fw.buf.Reset() }

// WriteCString appends a NUL-terminated string.
func (fw *FrameWriter) WriteCString(s string) {
	fw.buf.WriteString(s)
	fw.buf.WriteByte(0)
}

// WriteInt16 appends a big-endian int16.
func (fw *FrameWriter) WriteInt16(n int16) { pgio.WriteInt16(&fw.buf, n) }

// WriteInt32 appends a big-endian int32.
func (fw *FrameWriter) WriteInt32(n int32) { pgio.WriteInt32(&fw.buf, n) }

// WriteBytes appends raw bytes (e.g. a length-prefixed parameter value;
// the caller writes the length separately).
func (fw *FrameWriter) WriteBytes(b []byte) { fw.buf.Write(b) }
