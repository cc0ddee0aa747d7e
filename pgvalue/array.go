package pgvalue

import "encoding/binary"

// ElementCodec is the per-element factory an Array needs: one fresh
// scan-target per element (so each element can independently be NULL).
// Encoding goes through each element's own ToSql methods.
type ElementCodec interface {
	NewElement() FromSqlBinary
}

// Array decodes/encodes PostgreSQL's binary array wire format, but only
// for the single-dimension case (spec.md §9 Open Question 3). A
// dimension count other than 0 (empty array) or 1 is reported as
// elefanterrors.UnsupportedFeature rather than silently flattened or
// truncated, following pgtype.ArrayHeader's dimension/bound bookkeeping
// in array.go generalized to reject anything beyond what elefant's
// single-dimensional Elements slice can represent.
type Array struct {
	Elements   []FromSqlBinary
	ElementOID OID
	Valid      bool
}

func (v *Array) SetNull() { *v = Array{} }

func (v *Array) IsNull() bool { return !v.Valid }

// ScanBinary decodes into v.Elements, calling newElement() once per
// array element to obtain a fresh scan target.
func (v *Array) ScanBinary(src []byte, newElement func() FromSqlBinary) error {
	if len(src) < 12 {
		return errWrongLength("array header", ">=12", len(src))
	}
	ndims := int32(binary.BigEndian.Uint32(src[0:4]))
	containsNull := binary.BigEndian.Uint32(src[4:8]) == 1
	elemOID := OID(binary.BigEndian.Uint32(src[8:12]))
	_ = containsNull

	if ndims == 0 {
		v.Elements = nil
		v.ElementOID = elemOID
		v.Valid = true
		return nil
	}
	if ndims != 1 {
		return errUnsupported("multi-dimensional array")
	}

	rp := 12
	if len(src[rp:]) < 8 {
		return errWrongLength("array dimension", ">=8", len(src[rp:]))
	}
	length := int32(binary.BigEndian.Uint32(src[rp : rp+4]))
	rp += 8 // length + lower bound

	elements := make([]FromSqlBinary, 0, length)
	for i := int32(0); i < length; i++ {
		if len(src[rp:]) < 4 {
			return errWrongLength("array element length prefix", ">=4", len(src[rp:]))
		}
		elemLen := int32(binary.BigEndian.Uint32(src[rp : rp+4]))
		rp += 4

		el := newElement()
		if elemLen < 0 {
			el.SetNull()
		} else {
			if len(src[rp:]) < int(elemLen) {
				return errWrongLength("array element payload", "elemLen bytes", len(src[rp:]))
			}
			if err := el.ScanBinary(src[rp : rp+int(elemLen)]); err != nil {
				return err
			}
			rp += int(elemLen)
		}
		elements = append(elements, el)
	}

	v.Elements = elements
	v.ElementOID = elemOID
	v.Valid = true
	return nil
}

// EncodeBinary writes v back to PostgreSQL's binary array format.
// encodeElement encodes one element (already known non-nil) to its
// binary form.
func (v Array) EncodeBinary(buf []byte, encodeElement func(el FromSqlBinary, buf []byte) ([]byte, error), isNullElement func(el FromSqlBinary) bool) ([]byte, error) {
	var tmp [4]byte

	if len(v.Elements) == 0 {
		binary.BigEndian.PutUint32(tmp[:], 0)
		buf = append(buf, tmp[:]...)
		binary.BigEndian.PutUint32(tmp[:], 0)
		buf = append(buf, tmp[:]...)
		binary.BigEndian.PutUint32(tmp[:], uint32(v.ElementOID))
		return append(buf, tmp[:]...), nil
	}

	binary.BigEndian.PutUint32(tmp[:], 1)
	buf = append(buf, tmp[:]...)

	containsNull := uint32(0)
	for _, el := range v.Elements {
		if isNullElement(el) {
			containsNull = 1
			break
		}
	}
	binary.BigEndian.PutUint32(tmp[:], containsNull)
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], uint32(v.ElementOID))
	buf = append(buf, tmp[:]...)

	binary.BigEndian.PutUint32(tmp[:], uint32(len(v.Elements)))
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], 1) // lower bound
	buf = append(buf, tmp[:]...)

	for _, el := range v.Elements {
		if isNullElement(el) {
			binary.BigEndian.PutUint32(tmp[:], 0xFFFFFFFF)
			buf = append(buf, tmp[:]...)
			continue
		}
		lenOffset := len(buf)
		buf = append(buf, tmp[:]...)
		before := len(buf)
		var err error
		buf, err = encodeElement(el, buf)
		if err != nil {
			return nil, err
		}
		elemLen := len(buf) - before
		binary.BigEndian.PutUint32(buf[lenOffset:lenOffset+4], uint32(elemLen))
	}

	return buf, nil
}
