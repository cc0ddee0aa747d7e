// Package pgvalue encodes and decodes Go values to and from PostgreSQL's
// wire formats (spec.md §4.1's "typed scalar/array/range/domain codec"
// component). Where the teacher expresses this as one FormatSupported/
// Encode/PlanScan Codec interface per OID (see
// pgtype.Int2Codec in the reference pack), elefant splits it into
// narrower per-capability interfaces, since a non-traited language
// naturally wants this as separate interface objects per format rather
// than one object switching on a format argument (spec.md §9).
package pgvalue

import (
	"strconv"

	"github.com/elefant-sync/elefant/elefanterrors"
)

// OID is a PostgreSQL type OID. elefant only hardcodes the builtin OIDs
// it needs to dispatch a codec; user-defined types (enums, domains,
// composites) have no codec in this package; NewScanTarget returns nil
// for their OIDs.
type OID uint32

// Well-known builtin OIDs elefant's codecs dispatch on.
const (
	OIDBool        OID = 16
	OIDBytea       OID = 17
	OIDChar        OID = 18
	OIDName        OID = 19
	OIDInt8        OID = 20
	OIDInt2        OID = 21
	OIDInt4        OID = 23
	OIDText        OID = 25
	OIDOID         OID = 26
	OIDJSON        OID = 114
	OIDJSONArray   OID = 199
	OIDPoint       OID = 600
	OIDFloat4      OID = 700
	OIDFloat8      OID = 701
	OIDUnknown     OID = 705
	OIDInet        OID = 869
	OIDBoolArray   OID = 1000
	OIDInt2Array   OID = 1005
	OIDInt4Array   OID = 1007
	OIDTextArray   OID = 1009
	OIDInt8Array   OID = 1016
	OIDFloat4Array OID = 1021
	OIDFloat8Array OID = 1022
	OIDVarchar     OID = 1043
	OIDDate        OID = 1082
	OIDTime        OID = 1083
	OIDTimestamp   OID = 1114
	OIDTimestampTz OID = 1184
	OIDNumeric     OID = 1700
	OIDUUID        OID = 2950
	OIDJSONB       OID = 3802
	OIDJSONBArray  OID = 3807
	OIDCIDR        OID = 650
	OIDPointArray  OID = 1017
)

const (
	TextFormat   int16 = 0
	BinaryFormat int16 = 1
)

// FromSqlBase is implemented by every Go type elefant scans PostgreSQL
// values into. SetNull lets a single scan-target type represent SQL NULL
// without reflection (the teacher's pgtype.Int2 "Valid bool" field
// pattern, generalized).
type FromSqlBase interface {
	SetNull()
}

// FromSqlBinary decodes a single binary-format column value, as produced
// by a DataRow under a ResultFormatCode of BinaryFormat.
type FromSqlBinary interface {
	FromSqlBase
	ScanBinary(src []byte) error
}

// FromSqlText decodes a single text-format column value, as produced by
// the simple query protocol or an explicit text ResultFormatCode.
type FromSqlText interface {
	FromSqlBase
	ScanText(src []byte) error
}

// ToSql encodes a single Go value to the wire for use as a Bind
// parameter or (via sqlfile) a literal.
type ToSql interface {
	// IsNull reports whether this value should be encoded as SQL NULL
	// (format -1 length, no payload).
	IsNull() bool
	// EncodeBinary appends this value's binary wire representation to
	// buf and returns the extended slice.
	EncodeBinary(buf []byte) ([]byte, error)
	// EncodeText appends this value's text wire representation to buf,
	// used by sqlfile's INSERT-statement writer.
	EncodeText(buf []byte) ([]byte, error)
	// PreferredFormat reports whether EncodeBinary (BinaryFormat) or
	// EncodeText (TextFormat) should be used for Bind parameters.
	PreferredFormat() int16
}

func errPrecisionOverflow(typeName string) error {
	return elefanterrors.New(elefanterrors.PrecisionOverflow, typeName, "decode", nil)
}

func errUnsupported(feature string) error {
	return elefanterrors.New(elefanterrors.UnsupportedFeature, feature, "decode", nil)
}

func errWrongLength(typeName string, want string, got int) error {
	return elefanterrors.New(elefanterrors.Encoding, typeName, "decode",
		errLenMismatch(want, got))
}

type lenMismatchError struct {
	want string
	got  int
}

func (e *lenMismatchError) Error() string {
	return "pgvalue: invalid wire length: want " + e.want + ", got length " + strconv.Itoa(e.got)
}

func errLenMismatch(want string, got int) error {
	return &lenMismatchError{want: want, got: got}
}
