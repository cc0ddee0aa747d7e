package pgvalue

import "github.com/gofrs/uuid"

// UUID is a nullable UUID scan target/Bind value. Binary format is the
// raw 16 bytes; text format is gofrs/uuid's canonical hyphenated
// rendering.
type UUID struct {
	UUID  uuid.UUID
	Valid bool
}

func (v *UUID) SetNull() { *v = UUID{} }

func (v *UUID) ScanBinary(src []byte) error {
	if len(src) != 16 {
		return errWrongLength("uuid", "16", len(src))
	}
	copy(v.UUID[:], src)
	v.Valid = true
	return nil
}

func (v *UUID) ScanText(src []byte) error {
	u, err := uuid.FromString(string(src))
	if err != nil {
		return err
	}
	v.UUID = u
	v.Valid = true
	return nil
}

func (v UUID) IsNull() bool { return !v.Valid }

func (v UUID) EncodeBinary(buf []byte) ([]byte, error) {
	return append(buf, v.UUID[:]...), nil
}

func (v UUID) EncodeText(buf []byte) ([]byte, error) {
	return append(buf, v.UUID.String()...), nil
}

func (UUID) PreferredFormat() int16 { return BinaryFormat }
