package pgvalue

// NewScanTarget returns a fresh, zero-valued scan target for oid, or nil
// if elefant has no codec for it. sqlfile's InsertStatements writer, its
// caller, writes the raw value bytes as a quoted text literal for any OID
// this returns nil for.
func NewScanTarget(oid OID) FromSqlBinary {
	switch oid {
	case OIDBool:
		return &Bool{}
	case OIDInt2:
		return &Int2{}
	case OIDInt4, OIDOID:
		return &Int4{}
	case OIDInt8:
		return &Int8{}
	case OIDFloat4:
		return &Float4{}
	case OIDFloat8:
		return &Float8{}
	case OIDText, OIDVarchar, OIDName, OIDChar, OIDUnknown:
		return &Text{}
	case OIDBytea:
		return &Bytea{}
	case OIDDate:
		return &Date{}
	case OIDTimestamp:
		return &Timestamp{}
	case OIDTimestampTz:
		return &TimestampTz{}
	case OIDNumeric:
		return &Numeric{}
	case OIDUUID:
		return &UUID{}
	case OIDJSON:
		return &JSON{}
	case OIDJSONB:
		return &JSONB{}
	case OIDInet, OIDCIDR:
		return &Inet{}
	case OIDPoint:
		return &Point{}
	case OIDBoolArray, OIDInt2Array, OIDInt4Array, OIDInt8Array, OIDFloat4Array,
		OIDFloat8Array, OIDTextArray, OIDJSONArray, OIDJSONBArray, OIDPointArray:
		return NewArrayScanTarget(oid)
	default:
		return nil
	}
}
