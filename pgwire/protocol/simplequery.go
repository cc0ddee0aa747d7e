package protocol

import (
	"encoding/binary"
)

// Query issues a simple-protocol query; results come back in text format
// as zero or more {RowDescription, DataRow*, CommandComplete} groups
// (spec.md §4.1 query_simple).
type Query struct {
	Text string
}

func (q *Query) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindQuery)
	fw.WriteCString(q.Text)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// FieldDescription describes one result column (spec.md §3.1).
type FieldDescription struct {
	Name                 string
	TableOID             uint32
	TableAttributeNumber uint16
	DataTypeOID          uint32
	DataTypeSize         int16
	TypeModifier         int32
	Format               int16
}

// RowDescription precedes a run of DataRow messages.
type RowDescription struct {
	Fields []FieldDescription
}

func (r *RowDescription) Decode(src []byte) error {
	if len(src) < 2 {
		return &invalidMessageFormatErr{messageType: "RowDescription"}
	}
	count := int(binary.BigEndian.Uint16(src))
	rest := src[2:]
	fields := make([]FieldDescription, count)
	for i := 0; i < count; i++ {
		name, n, err := cstring(rest)
		if err != nil {
			return err
		}
		rest = rest[n:]
		if len(rest) < 18 {
			return &invalidMessageFormatErr{messageType: "RowDescription"}
		}
		fields[i] = FieldDescription{
			Name:                 name,
			TableOID:             binary.BigEndian.Uint32(rest[0:4]),
			TableAttributeNumber: binary.BigEndian.Uint16(rest[4:6]),
			DataTypeOID:          binary.BigEndian.Uint32(rest[6:10]),
			DataTypeSize:         int16(binary.BigEndian.Uint16(rest[10:12])),
			TypeModifier:         int32(binary.BigEndian.Uint32(rest[12:16])),
			Format:               int16(binary.BigEndian.Uint16(rest[16:18])),
		}
		rest = rest[18:]
	}
	r.Fields = fields
	return nil
}

// DataRow carries one result row. Values[i] is nil for SQL NULL,
// otherwise the raw text- or binary-format bytes (spec.md §3.1).
type DataRow struct {
	Values [][]byte
}

func (d *DataRow) Decode(src []byte) error {
	if len(src) < 2 {
		return &invalidMessageFormatErr{messageType: "DataRow"}
	}
	count := int(binary.BigEndian.Uint16(src))
	rest := src[2:]
	values := make([][]byte, count)
	for i := 0; i < count; i++ {
		if len(rest) < 4 {
			return &invalidMessageFormatErr{messageType: "DataRow"}
		}
		n := int(int32(binary.BigEndian.Uint32(rest)))
		rest = rest[4:]
		if n == -1 {
			values[i] = nil
			continue
		}
		if len(rest) < n {
			return &invalidMessageFormatErr{messageType: "DataRow"}
		}
		values[i] = rest[:n]
		rest = rest[n:]
	}
	d.Values = values
	return nil
}

// CommandComplete reports the tag of a completed command, e.g.
// "INSERT 0 1" or "COPY 1000".
type CommandComplete struct {
	CommandTag string
}

func (c *CommandComplete) Decode(src []byte) error {
	s, _, err := cstring(append(src, 0))
	if err != nil {
		return err
	}
	c.CommandTag = s
	return nil
}

// EmptyQueryResponse is sent instead of CommandComplete when the query
// text was empty.
type EmptyQueryResponse struct{}

func (e *EmptyQueryResponse) Decode(src []byte) error { return nil }
