package pgvalue

// Bool is a nullable boolean scan target and Bind value, grounded on
// pgtype.Bool's Valid-bool pattern.
type Bool struct {
	Bool  bool
	Valid bool
}

func (b *Bool) SetNull() { *b = Bool{} }

func (b *Bool) ScanBinary(src []byte) error {
	if len(src) != 1 {
		return errWrongLength("bool", "1", len(src))
	}
	b.Bool = src[0] != 0
	b.Valid = true
	return nil
}

func (b *Bool) ScanText(src []byte) error {
	if len(src) != 1 {
		return errWrongLength("bool", "1", len(src))
	}
	b.Bool = src[0] == 't'
	b.Valid = true
	return nil
}

func (b Bool) IsNull() bool { return !b.Valid }

func (b Bool) EncodeBinary(buf []byte) ([]byte, error) {
	if b.Bool {
		return append(buf, 1), nil
	}
	return append(buf, 0), nil
}

func (b Bool) EncodeText(buf []byte) ([]byte, error) {
	if b.Bool {
		return append(buf, 't'), nil
	}
	return append(buf, 'f'), nil
}

func (Bool) PreferredFormat() int16 { return BinaryFormat }
