package pgvalue

// jsonbVersion is the single version byte JSONB's binary wire format is
// currently defined to carry (PostgreSQL has never shipped a second
// version), per pgtype.JSONB's wire layout.
const jsonbVersion = 1

// JSON is a nullable json/json[] scan target/Bind value. json has no
// binary-specific wrapper; binary and text format are the same raw
// bytes.
type JSON struct {
	Bytes []byte
	Valid bool
}

func (v *JSON) SetNull() { *v = JSON{} }

func (v *JSON) ScanBinary(src []byte) error {
	v.Bytes = append([]byte(nil), src...)
	v.Valid = true
	return nil
}

func (v *JSON) ScanText(src []byte) error {
	return v.ScanBinary(src)
}

func (v JSON) IsNull() bool { return !v.Valid }

func (v JSON) EncodeBinary(buf []byte) ([]byte, error) {
	return append(buf, v.Bytes...), nil
}

func (v JSON) EncodeText(buf []byte) ([]byte, error) {
	return append(buf, v.Bytes...), nil
}

func (JSON) PreferredFormat() int16 { return BinaryFormat }

// JSONB is a nullable jsonb scan target/Bind value. Binary format
// prefixes the JSON text with a single version byte.
type JSONB struct {
	Bytes []byte
	Valid bool
}

func (v *JSONB) SetNull() { *v = JSONB{} }

func (v *JSONB) ScanBinary(src []byte) error {
	if len(src) < 1 {
		return errWrongLength("jsonb", ">=1", len(src))
	}
	if src[0] != jsonbVersion {
		return errUnsupported("jsonb wire version other than 1")
	}
	v.Bytes = append([]byte(nil), src[1:]...)
	v.Valid = true
	return nil
}

func (v *JSONB) ScanText(src []byte) error {
	v.Bytes = append([]byte(nil), src...)
	v.Valid = true
	return nil
}

func (v JSONB) IsNull() bool { return !v.Valid }

func (v JSONB) EncodeBinary(buf []byte) ([]byte, error) {
	buf = append(buf, jsonbVersion)
	return append(buf, v.Bytes...), nil
}

func (v JSONB) EncodeText(buf []byte) ([]byte, error) {
	return append(buf, v.Bytes...), nil
}

func (JSONB) PreferredFormat() int16 { return BinaryFormat }
