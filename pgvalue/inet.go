package pgvalue

import "net"

const (
	afInet  = 2
	afInet6 = 3
)

// Inet represents both the inet and cidr PostgreSQL types, which share a
// wire format and differ only in the OID they're bound under (see
// pgtype/inet.go). IsCIDR controls which of the two EncodeBinary writes
// as the is_cidr byte; PostgreSQL ignores the byte on input (spec.md §9
// Open Question 1), so elefant writes 0 for INET and 1 for CIDR purely
// for wire-format completeness.
type Inet struct {
	IPNet  *net.IPNet
	IsCIDR bool
	Valid  bool
}

func (v *Inet) SetNull() { *v = Inet{} }

func (v *Inet) ScanBinary(src []byte) error {
	if len(src) != 8 && len(src) != 20 {
		return errWrongLength("inet", "8 or 20", len(src))
	}
	bits := src[1]
	isCIDR := src[2] != 0
	addrLen := src[3]

	ip := make(net.IP, int(addrLen))
	copy(ip, src[4:])
	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}

	v.IPNet = &net.IPNet{IP: ip, Mask: net.CIDRMask(int(bits), len(ip)*8)}
	v.IsCIDR = isCIDR
	v.Valid = true
	return nil
}

func (v *Inet) ScanText(src []byte) error {
	s := string(src)
	if ip := net.ParseIP(s); ip != nil {
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		v.IPNet = &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
	} else {
		_, ipnet, err := net.ParseCIDR(s)
		if err != nil {
			return err
		}
		v.IPNet = ipnet
	}
	v.Valid = true
	return nil
}

func (v Inet) IsNull() bool { return !v.Valid }

func (v Inet) EncodeBinary(buf []byte) ([]byte, error) {
	var family byte = afInet
	if len(v.IPNet.IP) == net.IPv6len && v.IPNet.IP.To4() == nil {
		family = afInet6
	}
	ones, _ := v.IPNet.Mask.Size()

	buf = append(buf, family, byte(ones))
	if v.IsCIDR {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, byte(len(v.IPNet.IP)))
	return append(buf, v.IPNet.IP...), nil
}

func (v Inet) EncodeText(buf []byte) ([]byte, error) {
	return append(buf, v.IPNet.String()...), nil
}

func (Inet) PreferredFormat() int16 { return BinaryFormat }
