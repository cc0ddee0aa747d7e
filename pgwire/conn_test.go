package pgwire_test

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/pgwire/internal/pgmock"
)

// listen starts a scripted fake backend on 127.0.0.1 and returns the
// Endpoint to dial plus a channel that receives the script's error (nil on
// success) once a single connection has been served.
func listen(t *testing.T, steps []pgmock.Step) (pgwire.Endpoint, <-chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			result <- err
			return
		}
		defer conn.Close()
		script := &pgmock.Script{Steps: steps}
		result <- script.Run(pgmock.NewBackend(conn))
	}()

	return pgwire.Endpoint{Host: host, Port: uint16(port), Database: "elefant_test"}, result
}

func connectOpts() pgwire.Options {
	return pgwire.Options{ConnectTimeout: 5 * time.Second, Logger: zerolog.Nop()}
}

func TestConnectTrustAuthentication(t *testing.T) {
	endpoint, scriptErr := listen(t, pgmock.AcceptTrustConnRequestSteps())

	conn, err := pgwire.Connect(context.Background(), endpoint, pgwire.Credentials{User: "elefant"}, connectOpts())
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, pgwire.TxIdle, conn.TxStatus())
	v, ok := conn.ParameterStatus("server_version")
	require.True(t, ok)
	require.Equal(t, "16.0", v)

	require.NoError(t, conn.Close())
	require.NoError(t, <-scriptErr)
}

func TestConnectCleartextPassword(t *testing.T) {
	endpoint, scriptErr := listen(t, pgmock.AcceptCleartextConnRequestSteps("s3cret"))

	conn, err := pgwire.Connect(context.Background(), endpoint, pgwire.Credentials{User: "elefant", Password: "s3cret"}, connectOpts())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	require.NoError(t, <-scriptErr)
}

func TestConnectCleartextPasswordWrongPasswordFailsServerSide(t *testing.T) {
	endpoint, scriptErr := listen(t, pgmock.AcceptCleartextConnRequestSteps("s3cret"))

	_, err := pgwire.Connect(context.Background(), endpoint, pgwire.Credentials{User: "elefant", Password: "wrong"}, connectOpts())
	require.Error(t, err)
	require.Error(t, <-scriptErr)
}

func TestConnectMD5Password(t *testing.T) {
	salt := [4]byte{1, 2, 3, 4}
	endpoint, scriptErr := listen(t, pgmock.AcceptMD5ConnRequestSteps("elefant", "s3cret", salt))

	conn, err := pgwire.Connect(context.Background(), endpoint, pgwire.Credentials{User: "elefant", Password: "s3cret"}, connectOpts())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	require.NoError(t, <-scriptErr)
}

func TestConnectSCRAMAuthentication(t *testing.T) {
	endpoint, scriptErr := listen(t, pgmock.AcceptSCRAMConnRequestSteps("s3cret"))

	conn, err := pgwire.Connect(context.Background(), endpoint, pgwire.Credentials{User: "elefant", Password: "s3cret"}, connectOpts())
	require.NoError(t, err)

	require.Equal(t, uint32(1), conn.PID())
	require.Equal(t, uint32(1), conn.SecretKey())
	require.NoError(t, conn.Close())
	require.NoError(t, <-scriptErr)
}

func TestConnectSCRAMAuthenticationWrongPassword(t *testing.T) {
	endpoint, scriptErr := listen(t, pgmock.AcceptSCRAMConnRequestSteps("s3cret"))

	_, err := pgwire.Connect(context.Background(), endpoint, pgwire.Credentials{User: "elefant", Password: "wrong"}, connectOpts())
	require.Error(t, err)
	require.Error(t, <-scriptErr)
}

func TestConnectServerRejectsStartupWithError(t *testing.T) {
	endpoint, scriptErr := listen(t, []pgmock.Step{
		pgmock.ExpectStartup(nil),
		pgmock.SendErrorResponse(map[byte]string{
			'S': "FATAL",
			'C': "28000",
			'M': "no pg_hba.conf entry for host",
		}),
	})

	_, err := pgwire.Connect(context.Background(), endpoint, pgwire.Credentials{User: "elefant"}, connectOpts())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no pg_hba.conf entry")
	require.NoError(t, <-scriptErr)
}

func TestCancelSendsCancelRequestOnFreshConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	endpoint := pgwire.Endpoint{Host: host, Port: uint16(port)}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 16)
		conn.Read(buf) //nolint:errcheck
	}()

	err = pgwire.Cancel(context.Background(), endpoint, 42, 99)
	require.NoError(t, err)
	wg.Wait()
}
