package protocol

import (
	"encoding/binary"
)

// Parse creates a prepared statement (spec.md §4.1 prepare).
type Parse struct {
	StatementName string
	Query         string
	ParamOIDs     []uint32
}

func (p *Parse) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindParse)
	fw.WriteCString(p.StatementName)
	fw.WriteCString(p.Query)
	fw.WriteInt16(int16(len(p.ParamOIDs)))
	for _, oid := range p.ParamOIDs {
		fw.WriteInt32(int32(oid))
	}
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// Bind binds parameter values to a prepared statement under a portal
// name, requesting binary-format results (spec.md §4.1 execute).
type Bind struct {
	DestinationPortal    string
	PreparedStatement    string
	ParameterFormatCodes []int16
	Parameters           [][]byte
	ResultFormatCodes    []int16
}

func (b *Bind) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindBind)
	fw.WriteCString(b.DestinationPortal)
	fw.WriteCString(b.PreparedStatement)

	fw.WriteInt16(int16(len(b.ParameterFormatCodes)))
	for _, f := range b.ParameterFormatCodes {
		fw.WriteInt16(f)
	}

	fw.WriteInt16(int16(len(b.Parameters)))
	for _, p := range b.Parameters {
		if p == nil {
			fw.WriteInt32(-1)
			continue
		}
		fw.WriteInt32(int32(len(p)))
		fw.WriteBytes(p)
	}

	fw.WriteInt16(int16(len(b.ResultFormatCodes)))
	for _, f := range b.ResultFormatCodes {
		fw.WriteInt16(f)
	}

	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// DescribeTarget selects whether Describe targets a statement or portal.
type DescribeTarget byte

const (
	DescribeStatement DescribeTarget = 'S'
	DescribePortal    DescribeTarget = 'P'
)

// Describe requests ParameterDescription/RowDescription for a statement
// or portal.
type Describe struct {
	ObjectType DescribeTarget
	Name       string
}

func (d *Describe) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindDescribe)
	pgioWriteByte(&fw, byte(d.ObjectType))
	fw.WriteCString(d.Name)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// Execute runs a bound portal, returning at most MaxRows rows (0 = all).
type Execute struct {
	Portal  string
	MaxRows uint32
}

func (e *Execute) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindExecute)
	fw.WriteCString(e.Portal)
	fw.WriteInt32(int32(e.MaxRows))
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// Sync closes out an extended-query message group, prompting
// ReadyForQuery.
type Sync struct{}

func (s *Sync) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindSync)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// Flush asks the server to deliver any pending results without a Sync.
type Flush struct{}

func (f *Flush) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindFlush)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// Close closes a prepared statement or portal.
type Close struct {
	ObjectType DescribeTarget
	Name       string
}

func (c *Close) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindClose)
	pgioWriteByte(&fw, byte(c.ObjectType))
	fw.WriteCString(c.Name)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// pgioWriteByte is a small helper so Describe/Close can append a single
// byte without exposing FrameWriter's internal buffer.
func pgioWriteByte(fw *FrameWriter, b byte) { fw.WriteBytes([]byte{b}) }

// ParseComplete acknowledges a successful Parse.
type ParseComplete struct{}

func (p *ParseComplete) Decode(src []byte) error { return nil }

// BindComplete acknowledges a successful Bind.
type BindComplete struct{}

func (b *BindComplete) Decode(src []byte) error { return nil }

// CloseComplete acknowledges a successful Close.
type CloseComplete struct{}

func (c *CloseComplete) Decode(src []byte) error { return nil }

// NoData is returned by Describe(portal) when the statement returns no
// rows.
type NoData struct{}

func (n *NoData) Decode(src []byte) error { return nil }

// ParameterDescription lists the parameter type OIDs of a prepared
// statement (spec.md §3.1 PreparedStatement).
type ParameterDescription struct {
	ParameterOIDs []uint32
}

func (p *ParameterDescription) Decode(src []byte) error {
	if len(src) < 2 {
		return &invalidMessageFormatErr{messageType: "ParameterDescription"}
	}
	count := int(binary.BigEndian.Uint16(src))
	rest := src[2:]
	oids := make([]uint32, count)
	for i := 0; i < count; i++ {
		if len(rest) < 4 {
			return &invalidMessageFormatErr{messageType: "ParameterDescription"}
		}
		oids[i] = binary.BigEndian.Uint32(rest)
		rest = rest[4:]
	}
	p.ParameterOIDs = oids
	return nil
}
