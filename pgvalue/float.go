package pgvalue

import (
	"encoding/binary"
	"math"
	"strconv"
)

type Float4 struct {
	Float float32
	Valid bool
}

func (v *Float4) SetNull() { *v = Float4{} }

func (v *Float4) ScanBinary(src []byte) error {
	if len(src) != 4 {
		return errWrongLength("float4", "4", len(src))
	}
	v.Float = math.Float32frombits(binary.BigEndian.Uint32(src))
	v.Valid = true
	return nil
}

func (v *Float4) ScanText(src []byte) error {
	f, err := strconv.ParseFloat(string(src), 32)
	if err != nil {
		return err
	}
	v.Float = float32(f)
	v.Valid = true
	return nil
}

func (v Float4) IsNull() bool { return !v.Valid }

func (v Float4) EncodeBinary(buf []byte) ([]byte, error) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], math.Float32bits(v.Float))
	return append(buf, tmp[:]...), nil
}

func (v Float4) EncodeText(buf []byte) ([]byte, error) {
	return strconv.AppendFloat(buf, float64(v.Float), 'g', -1, 32), nil
}

func (Float4) PreferredFormat() int16 { return BinaryFormat }

type Float8 struct {
	Float float64
	Valid bool
}

func (v *Float8) SetNull() { *v = Float8{} }

func (v *Float8) ScanBinary(src []byte) error {
	if len(src) != 8 {
		return errWrongLength("float8", "8", len(src))
	}
	v.Float = math.Float64frombits(binary.BigEndian.Uint64(src))
	v.Valid = true
	return nil
}

func (v *Float8) ScanText(src []byte) error {
	f, err := strconv.ParseFloat(string(src), 64)
	if err != nil {
		return err
	}
	v.Float = f
	v.Valid = true
	return nil
}

func (v Float8) IsNull() bool { return !v.Valid }

func (v Float8) EncodeBinary(buf []byte) ([]byte, error) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v.Float))
	return append(buf, tmp[:]...), nil
}

func (v Float8) EncodeText(buf []byte) ([]byte, error) {
	return strconv.AppendFloat(buf, v.Float, 'g', -1, 64), nil
}

func (Float8) PreferredFormat() int16 { return BinaryFormat }
