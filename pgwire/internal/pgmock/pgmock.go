// Package pgmock plays the server half of a scripted PostgreSQL v3
// handshake, grounded on the teacher's internal/pgmock (Script/Step,
// AcceptUnauthenticatedConnRequestSteps) but built on elefant's own frame
// primitives instead of pgproto3. pgproto3.Backend can both encode and
// decode every message because pgproto3 keeps message types bidirectional;
// elefant/pgwire/protocol deliberately splits FrontendMessage (Encode
// only, spec.md §9) from BackendMessage (Decode only), so a server double
// needs its own minimal frontend decoding and backend encoding, which is
// what this package supplies — only for the handful of messages a connect
// handshake exchanges.
package pgmock

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/elefant-sync/elefant/pgwire/auth"
	"github.com/elefant-sync/elefant/pgwire/protocol"
)

// Backend is the server side of one scripted connection.
type Backend struct {
	conn net.Conn
	fr   *protocol.FrameReader
}

// NewBackend wraps conn, one side of a net.Pipe or an accepted
// net.Listener connection.
func NewBackend(conn net.Conn) *Backend {
	return &Backend{conn: conn, fr: protocol.NewFrameReader(conn)}
}

func (b *Backend) send(kind byte, payload []byte) error {
	var fw protocol.FrameWriter
	off := fw.BeginFrame(kind)
	fw.WriteBytes(payload)
	fw.EndFrame(off)
	_, err := b.conn.Write(fw.Bytes())
	return err
}

// Step is one scripted action against a Backend, mirroring the teacher's
// pgmock.Step.
type Step interface {
	Step(*Backend) error
}

type stepFunc func(*Backend) error

func (f stepFunc) Step(b *Backend) error { return f(b) }

// Script is a Step that runs a sequence of Steps in order, itself
// satisfying Step so scripts can nest.
type Script struct {
	Steps []Step
}

func (s *Script) Run(b *Backend) error {
	for i, step := range s.Steps {
		if err := step.Step(b); err != nil {
			return fmt.Errorf("pgmock: step %d: %w", i, err)
		}
	}
	return nil
}

func (s *Script) Step(b *Backend) error { return s.Run(b) }

// Frontend message kind bytes a handshake can send. These are part of the
// wire protocol itself, not an elefant invention, so restating the
// literals here does not duplicate protocol's (unexported) constants of
// the same value.
const (
	frontendKindPassword  = 'p'
	frontendKindTerminate = 'X'
)

// ExpectStartup reads the kind-less startup frame and fails unless every
// key in want is present with a matching value. A nil want only checks
// that a well-formed startup frame arrived.
func ExpectStartup(want map[string]string) Step {
	return stepFunc(func(b *Backend) error {
		f, err := b.fr.Next(false)
		if err != nil {
			return err
		}
		got, err := protocol.DecodeStartupParameters(f.Payload)
		if err != nil {
			return err
		}
		for k, v := range want {
			if got[k] != v {
				return fmt.Errorf("startup parameter %q = %q, want %q", k, got[k], v)
			}
		}
		return nil
	})
}

// ExpectPasswordMessage reads one kind-'p' frame and requires its
// NUL-terminated payload to equal want (cleartext password or MD5 digest).
func ExpectPasswordMessage(want string) Step {
	return stepFunc(func(b *Backend) error {
		f, err := b.fr.Next(true)
		if err != nil {
			return err
		}
		if f.Kind != frontendKindPassword {
			return fmt.Errorf("got frame kind %q, want PasswordMessage", f.Kind)
		}
		got, _, err := cstring(f.Payload)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("password message = %q, want %q", got, want)
		}
		return nil
	})
}

func encodeUint32(n uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, n)
	return buf
}

func cstring(src []byte) (string, int, error) {
	for i, c := range src {
		if c == 0 {
			return string(src[:i]), i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("pgmock: missing NUL terminator")
}

// SendAuthenticationOk sends AuthenticationOk.
func SendAuthenticationOk() Step {
	return stepFunc(func(b *Backend) error { return b.send('R', encodeUint32(0)) })
}

// SendAuthenticationCleartextPassword requests a cleartext password.
func SendAuthenticationCleartextPassword() Step {
	return stepFunc(func(b *Backend) error { return b.send('R', encodeUint32(3)) })
}

// SendAuthenticationMD5Password requests an MD5-hashed password salted
// with salt.
func SendAuthenticationMD5Password(salt [4]byte) Step {
	return stepFunc(func(b *Backend) error {
		payload := append(encodeUint32(5), salt[:]...)
		return b.send('R', payload)
	})
}

// SendAuthenticationSASL offers mechanisms for SASL authentication.
func SendAuthenticationSASL(mechanisms ...string) Step {
	return stepFunc(func(b *Backend) error {
		payload := encodeUint32(10)
		for _, m := range mechanisms {
			payload = append(payload, []byte(m)...)
			payload = append(payload, 0)
		}
		payload = append(payload, 0)
		return b.send('R', payload)
	})
}

// SendBackendKeyData sends the cancellation identity pair.
func SendBackendKeyData(pid, secret uint32) Step {
	return stepFunc(func(b *Backend) error {
		return b.send('K', append(encodeUint32(pid), encodeUint32(secret)...))
	})
}

// SendParameterStatus reports one runtime parameter.
func SendParameterStatus(name, value string) Step {
	return stepFunc(func(b *Backend) error {
		payload := append([]byte(name), 0)
		payload = append(payload, []byte(value)...)
		payload = append(payload, 0)
		return b.send('S', payload)
	})
}

// SendReadyForQuery sends ReadyForQuery with the given transaction status.
func SendReadyForQuery(txStatus byte) Step {
	return stepFunc(func(b *Backend) error { return b.send('Z', []byte{txStatus}) })
}

// SendErrorResponse sends an ErrorResponse built from fielded tags (e.g.
// 'S': "FATAL", 'C': "28P01", 'M': "password authentication failed").
func SendErrorResponse(fields map[byte]string) Step {
	return stepFunc(func(b *Backend) error {
		var payload []byte
		for tag, val := range fields {
			payload = append(payload, tag)
			payload = append(payload, val...)
			payload = append(payload, 0)
		}
		payload = append(payload, 0)
		return b.send('E', payload)
	})
}

// WaitForClose reads frontend frames until Terminate or EOF, mirroring the
// teacher's WaitForClose.
func WaitForClose() Step {
	return stepFunc(func(b *Backend) error {
		for {
			f, err := b.fr.Next(true)
			if err != nil {
				return nil
			}
			if f.Kind == frontendKindTerminate {
				return nil
			}
		}
	})
}

func readyScriptTail() []Step {
	return []Step{
		SendBackendKeyData(1, 1),
		SendParameterStatus("server_version", "16.0"),
		SendReadyForQuery('I'),
	}
}

// AcceptTrustConnRequestSteps accepts a connection with no authentication
// required at all, mirroring the teacher's
// AcceptUnauthenticatedConnRequestSteps.
func AcceptTrustConnRequestSteps() []Step {
	steps := []Step{ExpectStartup(nil), SendAuthenticationOk()}
	return append(steps, readyScriptTail()...)
}

// AcceptCleartextConnRequestSteps accepts a connection that authenticates
// with a cleartext password equal to password.
func AcceptCleartextConnRequestSteps(password string) []Step {
	steps := []Step{
		ExpectStartup(nil),
		SendAuthenticationCleartextPassword(),
		ExpectPasswordMessage(password),
		SendAuthenticationOk(),
	}
	return append(steps, readyScriptTail()...)
}

// AcceptMD5ConnRequestSteps accepts a connection that authenticates with
// an MD5 digest of user/password/salt.
func AcceptMD5ConnRequestSteps(user, password string, salt [4]byte) []Step {
	want := auth.EncodeMD5Password(user, password, salt)
	steps := []Step{
		ExpectStartup(nil),
		SendAuthenticationMD5Password(salt),
		ExpectPasswordMessage(want),
		SendAuthenticationOk(),
	}
	return append(steps, readyScriptTail()...)
}

// AcceptSCRAMConnRequestSteps accepts a connection that authenticates via
// a full SCRAM-SHA-256 exchange against password, playing the server role
// of RFC 5802 the same way auth.ScramClient plays the client role: it
// derives SaltedPassword/StoredKey/ServerKey from its own freshly
// generated salt and verifies the client's proof before computing and
// sending the ServerSignature.
func AcceptSCRAMConnRequestSteps(password string) []Step {
	srv := &scramServer{password: password}
	steps := []Step{
		ExpectStartup(nil),
		SendAuthenticationSASL(auth.Mechanism),
		stepFunc(srv.receiveInitialResponse),
		stepFunc(srv.sendServerFirst),
		stepFunc(srv.receiveClientFinal),
		stepFunc(srv.sendServerFinal),
		SendAuthenticationOk(),
	}
	return append(steps, readyScriptTail()...)
}

type scramServer struct {
	password string

	salt       []byte
	iterations int

	clientNonce string
	serverNonce string

	clientFirstBare string
	serverFirst     string
	saltedPassword  []byte
	authMessage     string
}

func (s *scramServer) receiveInitialResponse(b *Backend) error {
	f, err := b.fr.Next(true)
	if err != nil {
		return err
	}
	if f.Kind != frontendKindPassword {
		return fmt.Errorf("got frame kind %q, want SASLInitialResponse", f.Kind)
	}

	mech, n, err := cstring(f.Payload)
	if err != nil {
		return err
	}
	if mech != auth.Mechanism {
		return fmt.Errorf("client requested mechanism %q, want %q", mech, auth.Mechanism)
	}

	rest := f.Payload[n:]
	if len(rest) < 4 {
		return fmt.Errorf("short SASLInitialResponse")
	}
	dataLen := int(int32(binary.BigEndian.Uint32(rest[:4])))
	rest = rest[4:]
	if dataLen < 0 || dataLen > len(rest) {
		return fmt.Errorf("invalid SASLInitialResponse data length %d", dataLen)
	}
	clientFirst := string(rest[:dataLen])

	s.clientFirstBare = strings.TrimPrefix(clientFirst, "n,,")
	for _, p := range strings.Split(s.clientFirstBare, ",") {
		if strings.HasPrefix(p, "r=") {
			s.clientNonce = p[2:]
		}
	}
	if s.clientNonce == "" {
		return fmt.Errorf("client-first-message missing nonce: %q", clientFirst)
	}

	s.salt = make([]byte, 16)
	if _, err := rand.Read(s.salt); err != nil {
		return err
	}
	s.iterations = 4096

	suffix := make([]byte, 18)
	if _, err := rand.Read(suffix); err != nil {
		return err
	}
	s.serverNonce = s.clientNonce + base64.StdEncoding.EncodeToString(suffix)
	s.saltedPassword = pbkdf2.Key([]byte(s.password), s.salt, s.iterations, sha256.Size, sha256.New)
	return nil
}

func (s *scramServer) sendServerFirst(b *Backend) error {
	s.serverFirst = fmt.Sprintf("r=%s,s=%s,i=%d", s.serverNonce, base64.StdEncoding.EncodeToString(s.salt), s.iterations)
	return b.send('R', append(encodeUint32(11), []byte(s.serverFirst)...))
}

func (s *scramServer) receiveClientFinal(b *Backend) error {
	f, err := b.fr.Next(true)
	if err != nil {
		return err
	}
	if f.Kind != frontendKindPassword {
		return fmt.Errorf("got frame kind %q, want SASLResponse", f.Kind)
	}

	clientFinal := string(f.Payload)
	idx := strings.LastIndex(clientFinal, ",p=")
	if idx < 0 {
		return fmt.Errorf("malformed client-final-message: %q", clientFinal)
	}
	clientFinalWithoutProof := clientFinal[:idx]
	proof, err := base64.StdEncoding.DecodeString(clientFinal[idx+len(",p="):])
	if err != nil {
		return fmt.Errorf("malformed client proof: %w", err)
	}

	s.authMessage = s.clientFirstBare + "," + s.serverFirst + "," + clientFinalWithoutProof
	clientKey := hmacSHA256(s.saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	clientSignature := hmacSHA256(storedKey[:], []byte(s.authMessage))

	if len(proof) != len(clientSignature) {
		return fmt.Errorf("client proof has wrong length %d", len(proof))
	}
	gotClientKey := make([]byte, len(proof))
	for i := range proof {
		gotClientKey[i] = proof[i] ^ clientSignature[i]
	}
	gotStoredKey := sha256.Sum256(gotClientKey)
	if subtle.ConstantTimeCompare(gotStoredKey[:], storedKey[:]) != 1 {
		return fmt.Errorf("client proof does not match stored key")
	}
	return nil
}

func (s *scramServer) sendServerFinal(b *Backend) error {
	serverKey := hmacSHA256(s.saltedPassword, []byte("Server Key"))
	sig := hmacSHA256(serverKey, []byte(s.authMessage))
	msg := "v=" + base64.StdEncoding.EncodeToString(sig)
	return b.send('R', append(encodeUint32(12), []byte(msg)...))
}

func hmacSHA256(key, msg []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(msg)
	return h.Sum(nil)
}
