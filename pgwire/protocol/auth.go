package protocol

import (
	"encoding/binary"
	"fmt"
)

// Authentication backend sub-message types (spec.md §6.2).
const (
	AuthTypeOk                = 0
	AuthTypeCleartextPassword = 3
	AuthTypeMD5Password       = 5
	AuthTypeSASL              = 10
	AuthTypeSASLContinue      = 11
	AuthTypeSASLFinal         = 12
)

// Authentication is the backend's AuthenticationXXX message family,
// distinguished by Type.
type Authentication struct {
	Type uint32

	Salt [4]byte // AuthTypeMD5Password

	SASLMechanisms []string // AuthTypeSASL
	SASLData       []byte   // AuthTypeSASLContinue, AuthTypeSASLFinal
}

func (a *Authentication) Decode(src []byte) error {
	if len(src) < 4 {
		return &invalidMessageFormatErr{messageType: "Authentication"}
	}
	*a = Authentication{Type: binary.BigEndian.Uint32(src[:4])}
	rest := src[4:]

	switch a.Type {
	case AuthTypeOk, AuthTypeCleartextPassword:
	case AuthTypeMD5Password:
		if len(rest) < 4 {
			return &invalidMessageFormatErr{messageType: "Authentication", details: "short MD5 salt"}
		}
		copy(a.Salt[:], rest[:4])
	case AuthTypeSASL:
		for len(rest) > 1 {
			s, n, err := cstring(rest)
			if err != nil {
				return err
			}
			rest = rest[n:]
			if s == "" {
				break
			}
			a.SASLMechanisms = append(a.SASLMechanisms, s)
		}
	case AuthTypeSASLContinue, AuthTypeSASLFinal:
		a.SASLData = append([]byte(nil), rest...)
	default:
		return fmt.Errorf("pgwire: unknown authentication type %d", a.Type)
	}
	return nil
}

// PasswordMessage carries a cleartext or MD5-hashed password response.
type PasswordMessage struct {
	Password string
}

func (p *PasswordMessage) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindPassword)
	fw.WriteCString(p.Password)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// SASLInitialResponse is the frontend's first SASL message, naming the
// chosen mechanism (spec.md §6.2: SASLInitialResponse).
type SASLInitialResponse struct {
	AuthMechanism string
	Data          []byte
}

func (s *SASLInitialResponse) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindPassword)
	fw.WriteCString(s.AuthMechanism)
	if s.Data == nil {
		fw.WriteInt32(-1)
	} else {
		fw.WriteInt32(int32(len(s.Data)))
		fw.WriteBytes(s.Data)
	}
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// SASLResponse carries a subsequent SASL exchange message.
type SASLResponse struct {
	Data []byte
}

func (s *SASLResponse) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(kindPassword)
	fw.WriteBytes(s.Data)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}
