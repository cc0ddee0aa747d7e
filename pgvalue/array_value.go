package pgvalue

// elementCodecFunc adapts a plain constructor func to the ElementCodec
// interface array.go declares but, before this file, never had an
// implementer wired into NewScanTarget.
type elementCodecFunc func() FromSqlBinary

func (f elementCodecFunc) NewElement() FromSqlBinary { return f() }

// arrayElementCodecs maps each array OID elefant recognizes to the
// ElementCodec for its element type. It covers bool, int2, int4, int8,
// float4, float8, text, json, jsonb, and point elements; arrays of any
// other element type (numeric, uuid, timestamp, inet, bytea, ...) have
// no entry and get no ArrayValue.
var arrayElementCodecs = map[OID]struct {
	elem ElementCodec
	oid  OID
}{
	OIDBoolArray:   {elementCodecFunc(func() FromSqlBinary { return &Bool{} }), OIDBool},
	OIDInt2Array:   {elementCodecFunc(func() FromSqlBinary { return &Int2{} }), OIDInt2},
	OIDInt4Array:   {elementCodecFunc(func() FromSqlBinary { return &Int4{} }), OIDInt4},
	OIDInt8Array:   {elementCodecFunc(func() FromSqlBinary { return &Int8{} }), OIDInt8},
	OIDFloat4Array: {elementCodecFunc(func() FromSqlBinary { return &Float4{} }), OIDFloat4},
	OIDFloat8Array: {elementCodecFunc(func() FromSqlBinary { return &Float8{} }), OIDFloat8},
	OIDTextArray:   {elementCodecFunc(func() FromSqlBinary { return &Text{} }), OIDText},
	OIDJSONArray:   {elementCodecFunc(func() FromSqlBinary { return &JSON{} }), OIDJSON},
	OIDJSONBArray:  {elementCodecFunc(func() FromSqlBinary { return &JSONB{} }), OIDJSONB},
	OIDPointArray:  {elementCodecFunc(func() FromSqlBinary { return &Point{} }), OIDPoint},
}

// ArrayValue is the concrete FromSqlBinary/FromSqlText/ToSql scan
// target NewScanTarget hands back for a recognized array OID. It
// embeds Array (whose ScanBinary/ScanText/EncodeBinary/EncodeText take
// an explicit element constructor/encoder, since Array itself is
// element-type-agnostic) and supplies that element plumbing from the
// ElementCodec its OID resolved to.
type ArrayValue struct {
	Array
	elem ElementCodec
}

// NewArrayScanTarget returns a fresh ArrayValue for oid, or nil if oid
// is not a recognized array OID.
func NewArrayScanTarget(oid OID) *ArrayValue {
	entry, ok := arrayElementCodecs[oid]
	if !ok {
		return nil
	}
	return &ArrayValue{Array: Array{ElementOID: entry.oid}, elem: entry.elem}
}

func (v *ArrayValue) ScanBinary(src []byte) error {
	return v.Array.ScanBinary(src, v.elem.NewElement)
}

func (v *ArrayValue) ScanText(src []byte) error {
	return v.Array.ScanText(src, v.elem.NewElement)
}

func (v ArrayValue) EncodeBinary(buf []byte) ([]byte, error) {
	return v.Array.EncodeBinary(buf, encodeArrayElementBinary, isNullArrayElement)
}

func (v ArrayValue) EncodeText(buf []byte) ([]byte, error) {
	return v.Array.EncodeText(buf, encodeArrayElementText, isNullArrayElement)
}

func (ArrayValue) PreferredFormat() int16 { return BinaryFormat }

func encodeArrayElementBinary(el FromSqlBinary, buf []byte) ([]byte, error) {
	enc, ok := el.(ToSql)
	if !ok {
		return buf, errUnsupported("array element has no binary encoder")
	}
	return enc.EncodeBinary(buf)
}

func encodeArrayElementText(el FromSqlBinary) (string, error) {
	enc, ok := el.(ToSql)
	if !ok {
		return "", errUnsupported("array element has no text encoder")
	}
	text, err := enc.EncodeText(nil)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func isNullArrayElement(el FromSqlBinary) bool {
	enc, ok := el.(ToSql)
	if !ok {
		return false
	}
	return enc.IsNull()
}
