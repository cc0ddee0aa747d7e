package pgvalue

// Text backs text, varchar, name, bpchar, and any unrecognized OID
// elefant falls back to treating as opaque text — binary and text wire
// representations are identical for this family (pgtype.Text).
type Text struct {
	String string
	Valid  bool
}

func (v *Text) SetNull() { *v = Text{} }

func (v *Text) ScanBinary(src []byte) error {
	v.String = string(src)
	v.Valid = true
	return nil
}

func (v *Text) ScanText(src []byte) error {
	return v.ScanBinary(src)
}

func (v Text) IsNull() bool { return !v.Valid }

func (v Text) EncodeBinary(buf []byte) ([]byte, error) {
	return append(buf, v.String...), nil
}

func (v Text) EncodeText(buf []byte) ([]byte, error) {
	return append(buf, v.String...), nil
}

func (Text) PreferredFormat() int16 { return BinaryFormat }

// Bytea backs the bytea type. Binary format is the raw byte payload;
// text format uses PostgreSQL's `\x`-hex-prefixed escape, the only
// output format modern servers emit for bytea in text mode.
type Bytea struct {
	Bytes []byte
	Valid bool
}

func (v *Bytea) SetNull() { *v = Bytea{} }

func (v *Bytea) ScanBinary(src []byte) error {
	v.Bytes = append([]byte(nil), src...)
	v.Valid = true
	return nil
}

func (v *Bytea) ScanText(src []byte) error {
	if len(src) < 2 || src[0] != '\\' || src[1] != 'x' {
		return errUnsupported("bytea text format other than hex escape")
	}
	hexPart := src[2:]
	out := make([]byte, len(hexPart)/2)
	for i := range out {
		hi := fromHexDigit(hexPart[2*i])
		lo := fromHexDigit(hexPart[2*i+1])
		out[i] = hi<<4 | lo
	}
	v.Bytes = out
	v.Valid = true
	return nil
}

func fromHexDigit(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	default:
		return 0
	}
}

func (v Bytea) IsNull() bool { return !v.Valid }

func (v Bytea) EncodeBinary(buf []byte) ([]byte, error) {
	return append(buf, v.Bytes...), nil
}

const hexDigits = "0123456789abcdef"

func (v Bytea) EncodeText(buf []byte) ([]byte, error) {
	buf = append(buf, '\\', 'x')
	for _, b := range v.Bytes {
		buf = append(buf, hexDigits[b>>4], hexDigits[b&0xf])
	}
	return buf, nil
}

func (Bytea) PreferredFormat() int16 { return BinaryFormat }
