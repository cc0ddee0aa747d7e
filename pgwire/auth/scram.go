package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/secure/precis"
)

// Mechanism is the only SASL mechanism elefant offers, per spec.md §4.1.
const Mechanism = "SCRAM-SHA-256"

// ScramClient drives one SCRAM-SHA-256 exchange (RFC 5802) across the
// three AuthenticationSASL*/SASL* frames of spec.md §6.2. Use it as:
//
//	c := NewScramClient(password)
//	initial := c.InitialResponse()                 // -> SASLInitialResponse.Data
//	final, err := c.ContinueResponse(serverFirst)    // -> SASLResponse.Data
//	err = c.Finish(serverFinal)                      // verify server signature
type ScramClient struct {
	password string
	nonce    string

	clientFirstBare string
	serverFirst     string
	saltedPassword  []byte
	authMessage     string
}

// NewScramClient prepares a client for a new exchange. password is
// SASLprep-normalized per RFC 4013 before use (spec.md §9 makes no
// mention of this, but PostgreSQL requires it for non-ASCII passwords).
func NewScramClient(password string) (*ScramClient, error) {
	normalized, err := precis.OpaqueString.String(password)
	if err != nil {
		normalized = password // fall back to the raw password, per RFC 5802 §5.1
	}
	return &ScramClient{password: normalized, nonce: randomNonce()}, nil
}

func randomNonce() string {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		panic("pgwire/auth: crypto/rand unavailable: " + err.Error())
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// InitialResponse returns the client-first-message for
// SASLInitialResponse.Data.
func (c *ScramClient) InitialResponse() []byte {
	c.clientFirstBare = "n=,r=" + c.nonce
	return []byte("n,," + c.clientFirstBare)
}

// ContinueResponse parses the server-first-message and returns the
// client-final-message for SASLResponse.Data.
func (c *ScramClient) ContinueResponse(serverFirstMessage []byte) ([]byte, error) {
	c.serverFirst = string(serverFirstMessage)

	serverNonce, salt, iterations, err := parseServerFirst(c.serverFirst)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(serverNonce, c.nonce) {
		return nil, fmt.Errorf("pgwire/auth: server nonce does not extend client nonce")
	}

	c.saltedPassword = pbkdf2.Key([]byte(c.password), salt, iterations, sha256.Size, sha256.New)

	channelBinding := base64.StdEncoding.EncodeToString([]byte("n,,"))
	clientFinalWithoutProof := "c=" + channelBinding + ",r=" + serverNonce

	c.authMessage = c.clientFirstBare + "," + c.serverFirst + "," + clientFinalWithoutProof

	clientKey := hmacSHA256(c.saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	clientSignature := hmacSHA256(storedKey[:], []byte(c.authMessage))

	clientProof := make([]byte, len(clientKey))
	for i := range clientKey {
		clientProof[i] = clientKey[i] ^ clientSignature[i]
	}

	final := clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)
	return []byte(final), nil
}

// Finish verifies the server's final signature, proving the server also
// knows the password (mutual authentication per RFC 5802 §3).
func (c *ScramClient) Finish(serverFinalMessage []byte) error {
	s := string(serverFinalMessage)
	if strings.HasPrefix(s, "e=") {
		return fmt.Errorf("pgwire/auth: SCRAM server error: %s", s[2:])
	}
	if !strings.HasPrefix(s, "v=") {
		return fmt.Errorf("pgwire/auth: malformed server-final-message")
	}
	gotSig, err := base64.StdEncoding.DecodeString(s[2:])
	if err != nil {
		return fmt.Errorf("pgwire/auth: malformed server signature: %w", err)
	}

	serverKey := hmacSHA256(c.saltedPassword, []byte("Server Key"))
	wantSig := hmacSHA256(serverKey, []byte(c.authMessage))

	if subtle.ConstantTimeCompare(gotSig, wantSig) != 1 {
		return fmt.Errorf("pgwire/auth: server signature mismatch")
	}
	return nil
}

func hmacSHA256(key, msg []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(msg)
	return h.Sum(nil)
}

func parseServerFirst(msg string) (nonce string, salt []byte, iterations int, err error) {
	parts := strings.Split(msg, ",")
	if len(parts) < 3 {
		return "", nil, 0, fmt.Errorf("pgwire/auth: malformed server-first-message")
	}
	for _, p := range parts {
		switch {
		case strings.HasPrefix(p, "r="):
			nonce = p[2:]
		case strings.HasPrefix(p, "s="):
			salt, err = base64.StdEncoding.DecodeString(p[2:])
			if err != nil {
				return "", nil, 0, fmt.Errorf("pgwire/auth: malformed salt: %w", err)
			}
		case strings.HasPrefix(p, "i="):
			iterations, err = strconv.Atoi(p[2:])
			if err != nil {
				return "", nil, 0, fmt.Errorf("pgwire/auth: malformed iteration count: %w", err)
			}
		}
	}
	if nonce == "" || salt == nil || iterations == 0 {
		return "", nil, 0, fmt.Errorf("pgwire/auth: incomplete server-first-message")
	}
	return nonce, salt, iterations, nil
}
