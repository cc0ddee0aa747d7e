package pgvalue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elefant-sync/elefant/pgvalue"
)

// TestArrayScanTextPointDoesNotSplitOnEmbeddedComma exercises spec.md
// §8 scenario 4 verbatim: a POINT[] column holding
// ARRAY[point(0,0), point(1,1), point(-1,-1)] must not have its
// elements split on POINT's own embedded comma.
func TestArrayScanTextPointDoesNotSplitOnEmbeddedComma(t *testing.T) {
	wire := []byte(`{"(0,0)","(1,1)","(-1,-1)"}`)

	var arr pgvalue.Array
	err := arr.ScanText(wire, func() pgvalue.FromSqlBinary { return &pgvalue.Point{} })
	require.NoError(t, err)
	require.True(t, arr.Valid)
	require.Len(t, arr.Elements, 3)

	want := [][2]float64{{0, 0}, {1, 1}, {-1, -1}}
	for i, w := range want {
		p := arr.Elements[i].(*pgvalue.Point)
		require.Equal(t, w[0], p.X)
		require.Equal(t, w[1], p.Y)
	}
}

func TestArrayScanTextPlainIntegers(t *testing.T) {
	var arr pgvalue.Array
	err := arr.ScanText([]byte("{1,2,3}"), func() pgvalue.FromSqlBinary { return &pgvalue.Int4{} })
	require.NoError(t, err)
	require.Len(t, arr.Elements, 3)
	require.Equal(t, int32(2), arr.Elements[1].(*pgvalue.Int4).Int)
}

func TestArrayScanTextBareNullIsSQLNull(t *testing.T) {
	var arr pgvalue.Array
	err := arr.ScanText([]byte("{1,NULL,3}"), func() pgvalue.FromSqlBinary { return &pgvalue.Int4{} })
	require.NoError(t, err)
	require.True(t, arr.Elements[1].(*pgvalue.Int4).IsNull())
}

func TestArrayScanTextQuotedNullStringIsNotSQLNull(t *testing.T) {
	var arr pgvalue.Array
	err := arr.ScanText([]byte(`{"NULL"}`), func() pgvalue.FromSqlBinary { return &pgvalue.Text{} })
	require.NoError(t, err)
	require.False(t, arr.Elements[0].(*pgvalue.Text).IsNull())
	require.Equal(t, "NULL", arr.Elements[0].(*pgvalue.Text).String)
}

// TestArrayValuePointRoundTripBinary round-trips a POINT[] value
// through NewScanTarget's OIDPointArray binary codec, the path
// sqlfile's InsertStatements writer actually calls.
func TestArrayValuePointRoundTripBinary(t *testing.T) {
	target := pgvalue.NewScanTarget(pgvalue.OIDPointArray)
	require.NotNil(t, target)
	av := target.(*pgvalue.ArrayValue)
	av.Elements = []pgvalue.FromSqlBinary{
		&pgvalue.Point{X: 0, Y: 0, Valid: true},
		&pgvalue.Point{X: 1, Y: 1, Valid: true},
		&pgvalue.Point{X: -1, Y: -1, Valid: true},
	}
	av.Valid = true

	enc, ok := target.(pgvalue.ToSql)
	require.True(t, ok)
	wire, err := enc.EncodeBinary(nil)
	require.NoError(t, err)

	roundTripped := pgvalue.NewScanTarget(pgvalue.OIDPointArray)
	require.NoError(t, roundTripped.ScanBinary(wire))
	rt := roundTripped.(*pgvalue.ArrayValue)
	require.Len(t, rt.Elements, 3)
	require.Equal(t, 1.0, rt.Elements[1].(*pgvalue.Point).X)

	text, err := enc.EncodeText(nil)
	require.NoError(t, err)
	require.Equal(t, `{"(0,0)","(1,1)","(-1,-1)"}`, string(text))
}
