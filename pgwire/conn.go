// Package pgwire is elefant's frame-level PostgreSQL v3 protocol client
// (spec.md §4.1, the component labeled "A" in spec.md §2). It is not a
// general-purpose driver: it exposes exactly the operations the copy
// pipeline needs — simple query, prepare/execute, and COPY IN/OUT — and
// nothing else (no transactions helpers, no connection pooling; those
// live in orchestrator and datapipe).
package pgwire

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/elefant-sync/elefant/elefanterrors"
	"github.com/elefant-sync/elefant/pgwire/auth"
	"github.com/elefant-sync/elefant/pgwire/protocol"
)

// Credentials authenticates a connection.
type Credentials struct {
	User     string
	Password string
}

// Endpoint names a server and database to connect to.
type Endpoint struct {
	Host     string
	Port     uint16
	Database string
}

// Options controls connection behavior.
type Options struct {
	// TLSConfig, if non-nil, requests SSL negotiation (spec.md §4.1
	// connect). A nil config means a plaintext connection.
	TLSConfig *tls.Config
	// ConnectTimeout bounds the TCP dial + handshake. Zero means no
	// timeout beyond ctx.
	ConnectTimeout time.Duration
	// RuntimeParams are sent as additional startup parameters
	// (e.g. application_name).
	RuntimeParams map[string]string
	Logger        zerolog.Logger
}

// Conn is a single, non-pooled PostgreSQL connection. It is not safe for
// concurrent use by multiple goroutines (spec.md §5: "A connection is
// strictly sequential").
type Conn struct {
	netConn net.Conn
	fr      *protocol.FrameReader

	state    connState
	txStatus TxStatus

	pid       uint32
	secretKey uint32

	parameterStatuses map[string]string

	stmtCache map[string]*PreparedStatement
	stmtSeq   int

	endpoint Endpoint
	logger   zerolog.Logger
}

// Connect performs TCP dial, optional SSL negotiation, the startup
// handshake, authentication, and consumes ParameterStatus/BackendKeyData
// until ReadyForQuery (spec.md §4.1 connect).
func Connect(ctx context.Context, endpoint Endpoint, creds Credentials, opts Options) (*Conn, error) {
	dialCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	var d net.Dialer
	addr := fmt.Sprintf("%s:%d", endpoint.Host, endpoint.Port)
	netConn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, networkErr("connect", err)
	}

	if opts.TLSConfig != nil {
		netConn, err = negotiateTLS(netConn, opts.TLSConfig)
		if err != nil {
			netConn.Close()
			return nil, elefanterrors.New(elefanterrors.Tls, "", "connect", err)
		}
	}

	c := &Conn{
		netConn:           netConn,
		fr:                protocol.NewFrameReader(netConn),
		state:             stateUnauthenticated,
		parameterStatuses: map[string]string{},
		stmtCache:         map[string]*PreparedStatement{},
		endpoint:          endpoint,
		logger:            opts.Logger,
	}

	params := map[string]string{}
	for k, v := range opts.RuntimeParams {
		params[k] = v
	}
	params["user"] = creds.User
	if endpoint.Database != "" {
		params["database"] = endpoint.Database
	}

	startup := &protocol.StartupMessage{Parameters: params}
	if err := c.sendFrontendNoKind(startup); err != nil {
		netConn.Close()
		return nil, networkErr("connect", err)
	}

	if err := c.transition(stateAuthenticating); err != nil {
		netConn.Close()
		return nil, err
	}

	for {
		msg, err := c.recvBackend()
		if err != nil {
			netConn.Close()
			return nil, err
		}

		switch m := msg.(type) {
		case *protocol.Authentication:
			if err := c.handleAuth(m, creds); err != nil {
				netConn.Close()
				return nil, err
			}
		case *protocol.BackendKeyData:
			c.pid, c.secretKey = m.ProcessID, m.SecretKey
		case *protocol.ParameterStatus:
			c.parameterStatuses[m.Name] = m.Value
		case *protocol.NoticeResponse:
			// ignored at connect time beyond logging
			c.logger.Debug().Str("message", m.Message).Msg("notice during connect")
		case *protocol.ReadyForQuery:
			c.txStatus = TxStatus(m.TxStatus)
			if err := c.transition(stateReady); err != nil {
				netConn.Close()
				return nil, err
			}
			return c, nil
		case *protocol.ErrorResponse:
			netConn.Close()
			return nil, serverErr(m.PgError, "connect")
		default:
			netConn.Close()
			return nil, protocolViolation("unexpected message %T during connect", msg)
		}
	}
}

func negotiateTLS(conn net.Conn, cfg *tls.Config) (net.Conn, error) {
	req := &protocol.SSLRequest{}
	buf, _ := req.Encode(nil)
	if _, err := conn.Write(buf); err != nil {
		return nil, err
	}
	resp := make([]byte, 1)
	if _, err := conn.Read(resp); err != nil {
		return nil, err
	}
	if resp[0] != 'S' {
		return nil, fmt.Errorf("pgwire: server refused SSL negotiation")
	}
	return tls.Client(conn, cfg), nil
}

func (c *Conn) handleAuth(m *protocol.Authentication, creds Credentials) error {
	switch m.Type {
	case protocol.AuthTypeOk:
		return nil
	case protocol.AuthTypeCleartextPassword:
		return c.sendFrontend(&protocol.PasswordMessage{Password: creds.Password})
	case protocol.AuthTypeMD5Password:
		digest := auth.EncodeMD5Password(creds.User, creds.Password, m.Salt)
		return c.sendFrontend(&protocol.PasswordMessage{Password: digest})
	case protocol.AuthTypeSASL:
		return c.runSCRAM(creds.Password, m.SASLMechanisms)
	case protocol.AuthTypeSASLContinue, protocol.AuthTypeSASLFinal:
		return protocolViolation("unexpected SASL frame outside runSCRAM")
	default:
		return authFailed("connect", fmt.Errorf("unsupported authentication type %d", m.Type))
	}
}

func (c *Conn) runSCRAM(password string, mechanisms []string) error {
	supported := false
	for _, m := range mechanisms {
		if m == auth.Mechanism {
			supported = true
			break
		}
	}
	if !supported {
		return authFailed("connect", fmt.Errorf("server does not offer %s", auth.Mechanism))
	}

	client, err := auth.NewScramClient(password)
	if err != nil {
		return authFailed("connect", err)
	}

	if err := c.sendFrontend(&protocol.SASLInitialResponse{AuthMechanism: auth.Mechanism, Data: client.InitialResponse()}); err != nil {
		return err
	}

	msg, err := c.recvBackend()
	if err != nil {
		return err
	}
	cont, ok := msg.(*protocol.Authentication)
	if !ok || cont.Type != protocol.AuthTypeSASLContinue {
		return protocolViolation("expected AuthenticationSASLContinue, got %T", msg)
	}

	final, err := client.ContinueResponse(cont.SASLData)
	if err != nil {
		return authFailed("connect", err)
	}
	if err := c.sendFrontend(&protocol.SASLResponse{Data: final}); err != nil {
		return err
	}

	msg, err = c.recvBackend()
	if err != nil {
		return err
	}
	fin, ok := msg.(*protocol.Authentication)
	if !ok || fin.Type != protocol.AuthTypeSASLFinal {
		return protocolViolation("expected AuthenticationSASLFinal, got %T", msg)
	}
	if err := client.Finish(fin.SASLData); err != nil {
		return authFailed("connect", err)
	}

	msg, err = c.recvBackend()
	if err != nil {
		return err
	}
	ok2, isAuth := msg.(*protocol.Authentication)
	if !isAuth || ok2.Type != protocol.AuthTypeOk {
		return protocolViolation("expected AuthenticationOk after SCRAM, got %T", msg)
	}
	return nil
}

// ParameterStatus returns a server-reported runtime parameter (e.g.
// "server_version"), and whether it was ever reported.
func (c *Conn) ParameterStatus(name string) (string, bool) {
	v, ok := c.parameterStatuses[name]
	return v, ok
}

// PID and SecretKey together identify this backend for CancelRequest
// (spec.md §5).
func (c *Conn) PID() uint32       { return c.pid }
func (c *Conn) SecretKey() uint32 { return c.secretKey }
func (c *Conn) TxStatus() TxStatus { return c.txStatus }

// Close sends Terminate and closes the socket.
func (c *Conn) Close() error {
	if c.state == stateClosed {
		return nil
	}
	term := &protocol.Terminate{}
	buf, _ := term.Encode(nil)
	c.netConn.Write(buf) //nolint:errcheck
	c.state = stateClosed
	return c.netConn.Close()
}

// Cancel opens a fresh connection to endpoint and sends a CancelRequest
// carrying pid/secretKey captured from a prior Connect (spec.md §5).
func Cancel(ctx context.Context, endpoint Endpoint, pid, secretKey uint32) error {
	var d net.Dialer
	addr := fmt.Sprintf("%s:%d", endpoint.Host, endpoint.Port)
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return networkErr("cancel", err)
	}
	defer conn.Close()

	req := &protocol.CancelRequest{ProcessID: pid, SecretKey: secretKey}
	buf, _ := req.Encode(nil)
	if _, err := conn.Write(buf); err != nil {
		return networkErr("cancel", err)
	}
	return nil
}

func (c *Conn) sendFrontend(m protocol.FrontendMessage) error {
	buf, err := m.Encode(nil)
	if err != nil {
		return protocolViolation("encode %T: %v", m, err)
	}
	if _, err := c.netConn.Write(buf); err != nil {
		return networkErr("send", err)
	}
	return nil
}

// sendFrontendNoKind is identical to sendFrontend but named separately
// for the handful of kindless messages (StartupMessage, SSLRequest,
// CancelRequest) to keep call sites self-documenting.
func (c *Conn) sendFrontendNoKind(m protocol.FrontendMessage) error {
	return c.sendFrontend(m)
}

func (c *Conn) recvBackend() (protocol.BackendMessage, error) {
	hasKind := c.state != stateUnauthenticated || true // every frame after dial has a kind byte
	f, err := c.fr.Next(hasKind)
	if err != nil {
		return nil, networkErr("receive", err)
	}
	msg, err := protocol.DecodeBackend(f)
	if err != nil {
		return nil, protocolViolation("%v", err)
	}
	return msg, nil
}
