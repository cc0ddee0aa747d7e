package pgvalue_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elefant-sync/elefant/elefanterrors"
	"github.com/elefant-sync/elefant/pgvalue"
)

func numericHeader(ndigits, weight, sign, dscale int16, digits []int16) []byte {
	buf := make([]byte, 8+2*len(digits))
	binary.BigEndian.PutUint16(buf[0:2], uint16(ndigits))
	binary.BigEndian.PutUint16(buf[2:4], uint16(weight))
	binary.BigEndian.PutUint16(buf[4:6], uint16(sign))
	binary.BigEndian.PutUint16(buf[6:8], uint16(dscale))
	for i, d := range digits {
		binary.BigEndian.PutUint16(buf[8+2*i:10+2*i], uint16(d))
	}
	return buf
}

func TestNumericScanBinaryRejectsUnreasonableGroupCount(t *testing.T) {
	var n pgvalue.Numeric
	oversized := numericHeader(1001, 0, 0, 0, make([]int16, 0))

	err := n.ScanBinary(oversized)
	require.Error(t, err)

	var elefErr *elefanterrors.Error
	require.ErrorAs(t, err, &elefErr)
	require.Equal(t, elefanterrors.PrecisionOverflow, elefErr.Kind)
}

func TestNumericScanBinaryRejectsOver28SignificantDigits(t *testing.T) {
	// 8 groups of 9999 at weight 7 (an integer, no fractional groups):
	// 32 significant decimal digits, over elefant's 28-digit ceiling.
	digits := []int16{9999, 9999, 9999, 9999, 9999, 9999, 9999, 9999}
	wire := numericHeader(8, 7, 0, 0, digits)

	var n pgvalue.Numeric
	err := n.ScanBinary(wire)
	require.Error(t, err)

	var elefErr *elefanterrors.Error
	require.ErrorAs(t, err, &elefErr)
	require.Equal(t, elefanterrors.PrecisionOverflow, elefErr.Kind)
}

func TestNumericScanBinaryZeroDigits(t *testing.T) {
	var n pgvalue.Numeric
	require.NoError(t, n.ScanBinary(numericHeader(0, 0, 0, 0, nil)))
	require.True(t, n.Valid)
	require.Equal(t, "0", n.Decimal.Text('f'))
}

func TestNumericRoundTripNegativeFraction(t *testing.T) {
	// -123.45 = sign 16384, weight 0, ndigits 2, digits [123, 4500]
	wire := numericHeader(2, 0, 16384, 2, []int16{123, 4500})

	var n pgvalue.Numeric
	require.NoError(t, n.ScanBinary(wire))
	require.True(t, n.Valid)

	out, err := n.EncodeBinary(nil)
	require.NoError(t, err)

	var roundTripped pgvalue.Numeric
	require.NoError(t, roundTripped.ScanBinary(out))
	require.Equal(t, n.Decimal.Text('f'), roundTripped.Decimal.Text('f'))
}
