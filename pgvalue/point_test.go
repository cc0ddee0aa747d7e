package pgvalue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elefant-sync/elefant/pgvalue"
)

func TestPointRoundTripBinary(t *testing.T) {
	var p pgvalue.Point
	p.X, p.Y, p.Valid = -1.5, 2.25, true

	out, err := p.EncodeBinary(nil)
	require.NoError(t, err)
	require.Len(t, out, 16)

	var decoded pgvalue.Point
	require.NoError(t, decoded.ScanBinary(out))
	require.Equal(t, p.X, decoded.X)
	require.Equal(t, p.Y, decoded.Y)
}

func TestPointScanTextParsesCoordinates(t *testing.T) {
	var p pgvalue.Point
	require.NoError(t, p.ScanText([]byte("(1,1)")))
	require.Equal(t, 1.0, p.X)
	require.Equal(t, 1.0, p.Y)
	require.True(t, p.Valid)
}

func TestPointScanTextNegativeCoordinates(t *testing.T) {
	var p pgvalue.Point
	require.NoError(t, p.ScanText([]byte("(-1,-1)")))
	require.Equal(t, -1.0, p.X)
	require.Equal(t, -1.0, p.Y)
}

func TestPointEncodeTextMatchesPostgresForm(t *testing.T) {
	p := pgvalue.Point{X: 0, Y: 0, Valid: true}
	out, err := p.EncodeText(nil)
	require.NoError(t, err)
	require.Equal(t, "(0,0)", string(out))
}
