package protocol

import "encoding/binary"

// CopyData frames a chunk of COPY payload in either direction
// (spec.md §3.3 ChunkStream).
type CopyData struct {
	Data []byte
}

func (c *CopyData) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindCopyData)
	fw.WriteBytes(c.Data)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

func (c *CopyData) Decode(src []byte) error {
	c.Data = src
	return nil
}

// CopyDone signals the end of a successful COPY stream in either
// direction.
type CopyDone struct{}

func (c *CopyDone) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindCopyDone)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

func (c *CopyDone) Decode(src []byte) error { return nil }

// CopyFail aborts a COPY IN stream with an explanatory message
// (spec.md §5 cancellation: "Partial COPY IN is terminated with CopyFail").
type CopyFail struct {
	Message string
}

func (c *CopyFail) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindCopyFail)
	fw.WriteCString(c.Message)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

func decodeCopyResponse(src []byte) (overallFormat int8, columnFormats []int16, err error) {
	if len(src) < 3 {
		return 0, nil, &invalidMessageFormatErr{messageType: "CopyResponse"}
	}
	overallFormat = int8(src[0])
	count := int(binary.BigEndian.Uint16(src[1:3]))
	rest := src[3:]
	columnFormats = make([]int16, count)
	for i := 0; i < count; i++ {
		if len(rest) < 2 {
			return 0, nil, &invalidMessageFormatErr{messageType: "CopyResponse"}
		}
		columnFormats[i] = int16(binary.BigEndian.Uint16(rest))
		rest = rest[2:]
	}
	return overallFormat, columnFormats, nil
}

// CopyInResponse precedes a COPY FROM STDIN data phase.
type CopyInResponse struct {
	OverallFormat  int8
	ColumnFormats  []int16
}

func (c *CopyInResponse) Decode(src []byte) error {
	f, cols, err := decodeCopyResponse(src)
	if err != nil {
		return err
	}
	c.OverallFormat, c.ColumnFormats = f, cols
	return nil
}

// CopyOutResponse precedes a COPY TO STDOUT data phase.
type CopyOutResponse struct {
	OverallFormat int8
	ColumnFormats []int16
}

func (c *CopyOutResponse) Decode(src []byte) error {
	f, cols, err := decodeCopyResponse(src)
	if err != nil {
		return err
	}
	c.OverallFormat, c.ColumnFormats = f, cols
	return nil
}

// CopyBothResponse precedes a bidirectional COPY stream (used by logical
// replication; accepted here for protocol completeness though elefant's
// core does not initiate replication streams).
type CopyBothResponse struct {
	OverallFormat int8
	ColumnFormats []int16
}

func (c *CopyBothResponse) Decode(src []byte) error {
	f, cols, err := decodeCopyResponse(src)
	if err != nil {
		return err
	}
	c.OverallFormat, c.ColumnFormats = f, cols
	return nil
}
