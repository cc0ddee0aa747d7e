package pgvalue

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

// Point backs PostgreSQL's POINT geometric type (spec.md §4.1's type
// list), grounded on pgtype.Point's two-float8 wire layout.
type Point struct {
	X, Y  float64
	Valid bool
}

func (v *Point) SetNull() { *v = Point{} }

func (v *Point) ScanBinary(src []byte) error {
	if len(src) != 16 {
		return errWrongLength("point", "16", len(src))
	}
	v.X = math.Float64frombits(binary.BigEndian.Uint64(src[0:8]))
	v.Y = math.Float64frombits(binary.BigEndian.Uint64(src[8:16]))
	v.Valid = true
	return nil
}

// ScanText parses PostgreSQL's "(x,y)" point literal. Used both for the
// simple query protocol and as the per-element decoder the quote-aware
// array text parser (array_text.go) calls for a POINT[] column, where
// the point's own embedded comma is why that parser must be
// "-quote aware in the first place (spec.md §4.1).
func (v *Point) ScanText(src []byte) error {
	s := strings.TrimSpace(string(src))
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return errUnsupported("point text format")
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return err
	}
	v.X, v.Y = x, y
	v.Valid = true
	return nil
}

func (v Point) IsNull() bool { return !v.Valid }

func (v Point) EncodeBinary(buf []byte) ([]byte, error) {
	var tmp [16]byte
	binary.BigEndian.PutUint64(tmp[0:8], math.Float64bits(v.X))
	binary.BigEndian.PutUint64(tmp[8:16], math.Float64bits(v.Y))
	return append(buf, tmp[:]...), nil
}

func (v Point) EncodeText(buf []byte) ([]byte, error) {
	buf = append(buf, '(')
	buf = strconv.AppendFloat(buf, v.X, 'g', -1, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, v.Y, 'g', -1, 64)
	return append(buf, ')'), nil
}

func (Point) PreferredFormat() int16 { return BinaryFormat }
