package pgvalue

import (
	"encoding/binary"
	"strconv"
)

// Int2, Int4, Int8 are nullable fixed-width integer scan targets and
// Bind values, grounded on pgtype.Int2Codec/Int4Codec/Int8Codec's
// binary/text dual encode path (see pgtype/int2_codec.go).

type Int2 struct {
	Int   int16
	Valid bool
}

func (v *Int2) SetNull() { *v = Int2{} }

func (v *Int2) ScanBinary(src []byte) error {
	if len(src) != 2 {
		return errWrongLength("int2", "2", len(src))
	}
	v.Int = int16(binary.BigEndian.Uint16(src))
	v.Valid = true
	return nil
}

func (v *Int2) ScanText(src []byte) error {
	n, err := strconv.ParseInt(string(src), 10, 16)
	if err != nil {
		return err
	}
	v.Int = int16(n)
	v.Valid = true
	return nil
}

func (v Int2) IsNull() bool { return !v.Valid }

func (v Int2) EncodeBinary(buf []byte) ([]byte, error) {
	return append(buf, byte(v.Int>>8), byte(v.Int)), nil
}

func (v Int2) EncodeText(buf []byte) ([]byte, error) {
	return strconv.AppendInt(buf, int64(v.Int), 10), nil
}

func (Int2) PreferredFormat() int16 { return BinaryFormat }

type Int4 struct {
	Int   int32
	Valid bool
}

func (v *Int4) SetNull() { *v = Int4{} }

func (v *Int4) ScanBinary(src []byte) error {
	if len(src) != 4 {
		return errWrongLength("int4", "4", len(src))
	}
	v.Int = int32(binary.BigEndian.Uint32(src))
	v.Valid = true
	return nil
}

func (v *Int4) ScanText(src []byte) error {
	n, err := strconv.ParseInt(string(src), 10, 32)
	if err != nil {
		return err
	}
	v.Int = int32(n)
	v.Valid = true
	return nil
}

func (v Int4) IsNull() bool { return !v.Valid }

func (v Int4) EncodeBinary(buf []byte) ([]byte, error) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v.Int))
	return append(buf, tmp[:]...), nil
}

func (v Int4) EncodeText(buf []byte) ([]byte, error) {
	return strconv.AppendInt(buf, int64(v.Int), 10), nil
}

func (Int4) PreferredFormat() int16 { return BinaryFormat }

type Int8 struct {
	Int   int64
	Valid bool
}

func (v *Int8) SetNull() { *v = Int8{} }

func (v *Int8) ScanBinary(src []byte) error {
	if len(src) != 8 {
		return errWrongLength("int8", "8", len(src))
	}
	v.Int = int64(binary.BigEndian.Uint64(src))
	v.Valid = true
	return nil
}

func (v *Int8) ScanText(src []byte) error {
	n, err := strconv.ParseInt(string(src), 10, 64)
	if err != nil {
		return err
	}
	v.Int = n
	v.Valid = true
	return nil
}

func (v Int8) IsNull() bool { return !v.Valid }

func (v Int8) EncodeBinary(buf []byte) ([]byte, error) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v.Int))
	return append(buf, tmp[:]...), nil
}

func (v Int8) EncodeText(buf []byte) ([]byte, error) {
	return strconv.AppendInt(buf, v.Int, 10), nil
}

func (Int8) PreferredFormat() int16 { return BinaryFormat }
