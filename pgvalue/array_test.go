package pgvalue_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elefant-sync/elefant/elefanterrors"
	"github.com/elefant-sync/elefant/pgvalue"
)

func int4ArrayWire(ndims int32, elems []int32) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint32(buf[0:4], uint32(ndims))
	binary.BigEndian.PutUint32(buf[4:8], 0)
	binary.BigEndian.PutUint32(buf[8:12], uint32(pgvalue.OIDInt4))
	if ndims == 0 {
		return buf
	}
	dim := make([]byte, 8)
	binary.BigEndian.PutUint32(dim[0:4], uint32(len(elems)))
	binary.BigEndian.PutUint32(dim[4:8], 1)
	buf = append(buf, dim...)
	for _, e := range elems {
		lenPrefix := make([]byte, 4)
		binary.BigEndian.PutUint32(lenPrefix, 4)
		buf = append(buf, lenPrefix...)
		val := make([]byte, 4)
		binary.BigEndian.PutUint32(val, uint32(e))
		buf = append(buf, val...)
	}
	return buf
}

func TestArrayScanBinaryRejectsMultiDimensional(t *testing.T) {
	wire := int4ArrayWire(2, []int32{1, 2})

	var arr pgvalue.Array
	err := arr.ScanBinary(wire, func() pgvalue.FromSqlBinary { return &pgvalue.Int4{} })
	require.Error(t, err)

	var elefErr *elefanterrors.Error
	require.ErrorAs(t, err, &elefErr)
	require.Equal(t, elefanterrors.UnsupportedFeature, elefErr.Kind)
}

func TestArrayScanBinaryOneDimensional(t *testing.T) {
	wire := int4ArrayWire(1, []int32{7, -3, 0})

	var arr pgvalue.Array
	err := arr.ScanBinary(wire, func() pgvalue.FromSqlBinary { return &pgvalue.Int4{} })
	require.NoError(t, err)
	require.True(t, arr.Valid)
	require.Len(t, arr.Elements, 3)
	require.Equal(t, int32(7), arr.Elements[0].(*pgvalue.Int4).Int)
	require.Equal(t, int32(-3), arr.Elements[1].(*pgvalue.Int4).Int)
}

func TestArrayScanBinaryEmpty(t *testing.T) {
	wire := int4ArrayWire(0, nil)

	var arr pgvalue.Array
	err := arr.ScanBinary(wire, func() pgvalue.FromSqlBinary { return &pgvalue.Int4{} })
	require.NoError(t, err)
	require.True(t, arr.Valid)
	require.Empty(t, arr.Elements)
}
