package protocol

import (
	"encoding/binary"
	"fmt"
)

// protocolVersionNumber is PostgreSQL protocol version 3.0.
const protocolVersionNumber = 196608 // 3 << 16

const sslRequestCode = 80877103
const cancelRequestCode = 80877102

// StartupMessage is the first frontend message on a new connection. It has
// no kind byte (spec.md §3.1).
type StartupMessage struct {
	ProtocolVersion uint32
	Parameters      map[string]string
}

func (s *StartupMessage) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(0)
	fw.WriteInt32(int32(protocolVersionNumber))
	for k, v := range s.Parameters {
		fw.WriteCString(k)
		fw.WriteCString(v)
	}
	fw.WriteCString("") // terminator: empty key signals end of parameter list
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// SSLRequest asks the server whether it will accept an SSL connection.
type SSLRequest struct{}

func (s *SSLRequest) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(0)
	fw.WriteInt32(sslRequestCode)
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// CancelRequest asks the server to cancel the query running on the
// connection identified by PID/SecretKey (spec.md §5, §6.2).
type CancelRequest struct {
	ProcessID uint32
	SecretKey uint32
}

func (c *CancelRequest) Encode(dst []byte) ([]byte, error) {
	var fw FrameWriter
	off := fw.BeginFrame(0)
	fw.WriteInt32(cancelRequestCode)
	fw.WriteInt32(int32(c.ProcessID))
	fw.WriteInt32(int32(c.SecretKey))
	fw.EndFrame(off)
	return append(dst, fw.Bytes()...), nil
}

// DecodeStartupParameters is used only by test doubles that need to play
// the server side of the handshake; it is not needed by the client but is
// kept alongside StartupMessage for symmetry with the encode path.
func DecodeStartupParameters(payload []byte) (map[string]string, error) {
	if len(payload) < 4 {
		return nil, &invalidMessageFormatErr{messageType: "StartupMessage"}
	}
	version := binary.BigEndian.Uint32(payload[:4])
	if version != protocolVersionNumber {
		return nil, fmt.Errorf("pgwire: unsupported protocol version %d", version)
	}
	rest := payload[4:]
	params := map[string]string{}
	for len(rest) > 1 {
		k, n1, err := cstring(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n1:]
		if k == "" {
			break
		}
		v, n2, err := cstring(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n2:]
		params[k] = v
	}
	return params, nil
}

func cstring(src []byte) (string, int, error) {
	for i, b := range src {
		if b == 0 {
			return string(src[:i]), i + 1, nil
		}
	}
	return "", 0, &invalidMessageFormatErr{messageType: "cstring", details: "missing NUL terminator"}
}
