package pgvalue

import (
	"encoding/binary"
	"time"
)

// pgEpoch is 2000-01-01 00:00:00 UTC, the epoch PostgreSQL's binary
// timestamp wire format counts microseconds from.
var pgEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	pgInfinityMicros    = int64(9223372036854775807)
	pgNegInfinityMicros = int64(-9223372036854775808)
)

// Date is a nullable DATE scan target/Bind value: days since 2000-01-01.
type Date struct {
	Time  time.Time
	Valid bool
}

func (v *Date) SetNull() { *v = Date{} }

func (v *Date) ScanBinary(src []byte) error {
	if len(src) != 4 {
		return errWrongLength("date", "4", len(src))
	}
	days := int32(binary.BigEndian.Uint32(src))
	v.Time = pgEpoch.AddDate(0, 0, int(days))
	v.Valid = true
	return nil
}

func (v *Date) ScanText(src []byte) error {
	t, err := time.Parse("2006-01-02", string(src))
	if err != nil {
		return err
	}
	v.Time = t
	v.Valid = true
	return nil
}

func (v Date) IsNull() bool { return !v.Valid }

func (v Date) EncodeBinary(buf []byte) ([]byte, error) {
	days := int32(v.Time.Sub(pgEpoch).Hours() / 24)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(days))
	return append(buf, tmp[:]...), nil
}

func (v Date) EncodeText(buf []byte) ([]byte, error) {
	return append(buf, v.Time.Format("2006-01-02")...), nil
}

func (Date) PreferredFormat() int16 { return BinaryFormat }

// Timestamp is a nullable TIMESTAMP (no time zone) scan target/Bind
// value: microseconds since 2000-01-01, interpreted as naive wall-clock
// time (time.Time in UTC, per pgtype.Timestamp's convention).
type Timestamp struct {
	Time     time.Time
	Infinity Infinity
	Valid    bool
}

// Infinity distinguishes a finite timestamp from PostgreSQL's special
// 'infinity'/'-infinity' values, which don't fit in a time.Time.
type Infinity int8

const (
	Finite Infinity = iota
	PosInfinity
	NegInfinity
)

func (v *Timestamp) SetNull() { *v = Timestamp{} }

func (v *Timestamp) ScanBinary(src []byte) error {
	if len(src) != 8 {
		return errWrongLength("timestamp", "8", len(src))
	}
	micros := int64(binary.BigEndian.Uint64(src))
	switch micros {
	case pgInfinityMicros:
		v.Infinity = PosInfinity
	case pgNegInfinityMicros:
		v.Infinity = NegInfinity
	default:
		v.Time = pgEpoch.Add(time.Duration(micros) * time.Microsecond)
	}
	v.Valid = true
	return nil
}

func (v *Timestamp) ScanText(src []byte) error {
	s := string(src)
	switch s {
	case "infinity":
		v.Infinity = PosInfinity
	case "-infinity":
		v.Infinity = NegInfinity
	default:
		t, err := time.Parse("2006-01-02 15:04:05.999999", s)
		if err != nil {
			return err
		}
		v.Time = t
	}
	v.Valid = true
	return nil
}

func (v Timestamp) IsNull() bool { return !v.Valid }

func (v Timestamp) EncodeBinary(buf []byte) ([]byte, error) {
	micros := pgInfinityMicros
	switch v.Infinity {
	case NegInfinity:
		micros = pgNegInfinityMicros
	case Finite:
		micros = int64(v.Time.Sub(pgEpoch) / time.Microsecond)
	}
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(micros))
	return append(buf, tmp[:]...), nil
}

func (v Timestamp) EncodeText(buf []byte) ([]byte, error) {
	switch v.Infinity {
	case PosInfinity:
		return append(buf, "infinity"...), nil
	case NegInfinity:
		return append(buf, "-infinity"...), nil
	default:
		return append(buf, v.Time.Format("2006-01-02 15:04:05.999999")...), nil
	}
}

func (Timestamp) PreferredFormat() int16 { return BinaryFormat }

// TimestampTz is TIMESTAMPTZ: identical wire encoding to Timestamp, but
// the decoded time.Time carries UTC and is re-zoned by the caller
// against the session's configured time zone, matching PostgreSQL's own
// wire-level indifference to time zone (it always sends UTC instants).
type TimestampTz struct {
	Time     time.Time
	Infinity Infinity
	Valid    bool
}

func (v *TimestampTz) SetNull() { *v = TimestampTz{} }

func (v *TimestampTz) ScanBinary(src []byte) error {
	inner := Timestamp{}
	if err := inner.ScanBinary(src); err != nil {
		return err
	}
	v.Time, v.Infinity, v.Valid = inner.Time.UTC(), inner.Infinity, inner.Valid
	return nil
}

func (v *TimestampTz) ScanText(src []byte) error {
	s := string(src)
	switch s {
	case "infinity":
		v.Infinity, v.Valid = PosInfinity, true
		return nil
	case "-infinity":
		v.Infinity, v.Valid = NegInfinity, true
		return nil
	}
	t, err := time.Parse("2006-01-02 15:04:05.999999Z07:00", s)
	if err != nil {
		return err
	}
	v.Time, v.Valid = t.UTC(), true
	return nil
}

func (v TimestampTz) IsNull() bool { return !v.Valid }

func (v TimestampTz) EncodeBinary(buf []byte) ([]byte, error) {
	inner := Timestamp{Time: v.Time, Infinity: v.Infinity, Valid: v.Valid}
	return inner.EncodeBinary(buf)
}

func (v TimestampTz) EncodeText(buf []byte) ([]byte, error) {
	switch v.Infinity {
	case PosInfinity:
		return append(buf, "infinity"...), nil
	case NegInfinity:
		return append(buf, "-infinity"...), nil
	default:
		return append(buf, v.Time.UTC().Format("2006-01-02 15:04:05.999999Z07:00")...), nil
	}
}

func (TimestampTz) PreferredFormat() int16 { return BinaryFormat }
