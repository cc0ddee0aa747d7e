package pgvalue

import (
	"encoding/binary"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd"
)

// numericMaxPrecision is the maximum number of significant decimal
// digits elefant will accept when decoding NUMERIC: values exceeding it
// raise elefanterrors.PrecisionOverflow rather than silently truncating,
// since a lossy copy of financial data is worse than a failed one.
const numericMaxPrecision = 28

// numericMaxNBaseDigits bounds the base-10000 digit group count before
// even attempting to accumulate a value, so a corrupt or malicious
// ndigits field can't force an unbounded allocation.
const numericMaxNBaseDigits = 1000

const nbase = 10000

var (
	big0       = big.NewInt(0)
	big10      = big.NewInt(10)
	bigNBase   = big.NewInt(nbase)
	bigNBaseX2 = big.NewInt(nbase * nbase)
	bigNBaseX3 = big.NewInt(nbase * nbase * nbase)
	bigNBaseX4 = big.NewInt(nbase * nbase * nbase * nbase)
)

// Numeric is a nullable arbitrary-precision decimal scan target and
// Bind value. Decoding follows pgtype.Numeric's base-10000 digit
// unpacking (see pgtype/numeric.go DecodeBinary), but the decoded value
// is an apd.Decimal rather than a bespoke Int/Exp pair, so elefant's
// numeric arithmetic (used only for row-count bookkeeping, never for
// re-deriving values) goes through a maintained decimal library.
type Numeric struct {
	Decimal apd.Decimal
	Valid   bool
}

func (v *Numeric) SetNull() { *v = Numeric{} }

func (v *Numeric) ScanBinary(src []byte) error {
	if len(src) < 8 {
		return errWrongLength("numeric", ">=8", len(src))
	}

	rp := 0
	ndigits := int16(binary.BigEndian.Uint16(src[rp:]))
	rp += 2

	if ndigits == 0 {
		v.Decimal = apd.Decimal{}
		v.Valid = true
		return nil
	}
	if int(ndigits) > numericMaxNBaseDigits {
		return errPrecisionOverflow("numeric")
	}

	weight := int16(binary.BigEndian.Uint16(src[rp:]))
	rp += 2
	sign := int16(binary.BigEndian.Uint16(src[rp:]))
	rp += 2
	dscale := int16(binary.BigEndian.Uint16(src[rp:]))
	rp += 2

	if len(src[rp:]) < int(ndigits)*2 {
		return errWrongLength("numeric", "ndigits*2 trailing bytes", len(src[rp:]))
	}

	accum := &big.Int{}
	for i := 0; i < int(ndigits+3)/4; i++ {
		chunk, bytesRead, digitsRead := nbaseDigitsToInt64(src[rp:])
		rp += bytesRead
		if i > 0 {
			var mul *big.Int
			switch digitsRead {
			case 1:
				mul = bigNBase
			case 2:
				mul = bigNBaseX2
			case 3:
				mul = bigNBaseX3
			case 4:
				mul = bigNBaseX4
			default:
				return errUnsupported("numeric digit group width")
			}
			accum.Mul(accum, mul)
		}
		accum.Add(accum, big.NewInt(chunk))
	}

	exp := (int32(weight) - int32(ndigits) + 1) * 4

	if dscale > 0 {
		fracNBaseDigits := ndigits - weight - 1
		fracDecimalDigits := fracNBaseDigits * 4
		if dscale > fracDecimalDigits {
			for i := int32(0); i < int32(dscale-fracDecimalDigits); i++ {
				accum.Mul(accum, big10)
				exp--
			}
		} else if dscale < fracDecimalDigits {
			for i := int32(0); i < int32(fracDecimalDigits-dscale); i++ {
				accum.Div(accum, big10)
				exp++
			}
		}
	}

	if decimalDigitCount(accum) > numericMaxPrecision {
		return errPrecisionOverflow("numeric")
	}

	if sign != 0 {
		accum.Neg(accum)
	}

	v.Decimal = apd.Decimal{Coeff: *accum, Exponent: exp}
	v.Valid = true
	return nil
}

// decimalDigitCount returns the number of significant decimal digits in
// n's absolute value (0 has 1 digit, matching PostgreSQL's own
// precision accounting).
func decimalDigitCount(n *big.Int) int {
	if n.Sign() == 0 {
		return 1
	}
	abs := new(big.Int).Abs(n)
	return len(abs.Text(10))
}

func nbaseDigitsToInt64(src []byte) (accum int64, bytesRead, digitsRead int) {
	digits := len(src) / 2
	if digits > 4 {
		digits = 4
	}
	rp := 0
	for i := 0; i < digits; i++ {
		if i > 0 {
			accum *= nbase
		}
		accum += int64(binary.BigEndian.Uint16(src[rp:]))
		rp += 2
	}
	return accum, rp, digits
}

func (v *Numeric) ScanText(src []byte) error {
	_, _, err := v.Decimal.SetString(string(src))
	if err != nil {
		return err
	}
	v.Valid = true
	return nil
}

func (v Numeric) IsNull() bool { return !v.Valid }

// EncodeBinary packs the decimal back into PostgreSQL's base-10000
// digit array. It does not check the coefficient against
// numericMaxPrecision; only ScanBinary enforces that limit.
func (v Numeric) EncodeBinary(buf []byte) ([]byte, error) {
	coeff := new(big.Int).Abs(&v.Decimal.Coeff)

	// Lower the exponent to a multiple of 4 so the base-10000 digit
	// groups line up with the decimal point.
	exp := v.Decimal.Exponent
	for exp%4 != 0 {
		coeff.Mul(coeff, big10)
		exp--
	}

	var digits []int16
	tmp := new(big.Int).Set(coeff)
	mod := new(big.Int)
	for tmp.Sign() != 0 {
		tmp.DivMod(tmp, bigNBase, mod)
		digits = append(digits, int16(mod.Int64()))
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	dscale := int16(0)
	if v.Decimal.Exponent < 0 {
		dscale = int16(-v.Decimal.Exponent)
	}

	weight := int16(len(digits)) - 1 + int16(exp/4)
	if len(digits) == 0 {
		weight = 0
	}

	sign := int16(0)
	if v.Decimal.Negative || v.Decimal.Coeff.Sign() < 0 {
		sign = 16384
	}

	out := buf
	out = append(out, byte(len(digits)>>8), byte(len(digits)))
	out = append(out, byte(weight>>8), byte(weight))
	out = append(out, byte(sign>>8), byte(sign))
	out = append(out, byte(dscale>>8), byte(dscale))
	for _, d := range digits {
		out = append(out, byte(d>>8), byte(d))
	}
	return out, nil
}

func (v Numeric) EncodeText(buf []byte) ([]byte, error) {
	s := normalizeNumericString(v.Decimal.Text('f'))
	return append(buf, s...), nil
}

func (Numeric) PreferredFormat() int16 { return BinaryFormat }

// normalizeNumericString strips a leading '+' apd sometimes leaves in
// its %f rendering so sqlfile's literal output matches psql's.
func normalizeNumericString(s string) string {
	return strings.TrimPrefix(s, "+")
}
