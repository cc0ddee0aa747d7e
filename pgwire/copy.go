package pgwire

import (
	"context"
	"io"

	"github.com/elefant-sync/elefant/pgwire/protocol"
)

// CopyOut runs sql (expected to be a "COPY ... TO STDOUT" statement) and
// streams raw COPY data chunks to w until CopyDone, per spec.md §4.1
// copy_out. w is typically a datapipe.Sink's underlying writer.
func (c *Conn) CopyOut(ctx context.Context, sql string, w io.Writer) error {
	if err := c.transition(stateBusyQuery); err != nil {
		return err
	}
	if err := c.sendFrontend(&protocol.Query{Text: sql}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return networkErr("copy_out", ctx.Err())
		default:
		}

		msg, err := c.recvBackend()
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case *protocol.CopyOutResponse:
			if err := c.transition(stateBusyCopyOut); err != nil {
				return err
			}
		case *protocol.CopyData:
			if _, err := w.Write(m.Data); err != nil {
				return networkErr("copy_out", err)
			}
		case *protocol.CopyDone:
			// followed by CommandComplete + ReadyForQuery
		case *protocol.CommandComplete:
			if err := c.transition(stateReady); err != nil {
				return err
			}
		case *protocol.NoticeResponse:
			c.logger.Debug().Str("message", m.Message).Msg("notice during copy_out")
		case *protocol.ReadyForQuery:
			c.txStatus = TxStatus(m.TxStatus)
			return c.transition(stateReady)
		case *protocol.ErrorResponse:
			if err := c.drainUntilReady(); err != nil {
				return err
			}
			return serverErr(m.PgError, "copy_out")
		default:
			return protocolViolation("unexpected message %T during copy_out", msg)
		}
	}
}

// CopyIn runs sql (expected to be a "COPY ... FROM STDIN" statement),
// reading raw COPY data chunks from r until EOF, then sends CopyDone and
// waits for CommandComplete, per spec.md §4.1 copy_in. chunkSize bounds
// how much is read per CopyData frame.
//
// If r.Read (or the caller via ctx) fails mid-stream, CopyIn sends
// CopyFail so the server aborts the COPY and rolls back any partial
// insert, rather than leaving a truncated table.
func (c *Conn) CopyIn(ctx context.Context, sql string, r io.Reader, chunkSize int) (string, error) {
	if err := c.transition(stateBusyQuery); err != nil {
		return "", err
	}
	if err := c.sendFrontend(&protocol.Query{Text: sql}); err != nil {
		return "", err
	}

	msg, err := c.recvBackend()
	if err != nil {
		return "", err
	}
	if _, ok := msg.(*protocol.CopyInResponse); !ok {
		if er, ok := msg.(*protocol.ErrorResponse); ok {
			c.drainUntilReady() //nolint:errcheck
			return "", serverErr(er.PgError, "copy_in")
		}
		return "", protocolViolation("expected CopyInResponse, got %T", msg)
	}
	if err := c.transition(stateBusyCopyIn); err != nil {
		return "", err
	}

	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	buf := make([]byte, chunkSize)

	streamErr := func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			n, err := r.Read(buf)
			if n > 0 {
				if sendErr := c.sendFrontend(&protocol.CopyData{Data: append([]byte(nil), buf[:n]...)}); sendErr != nil {
					return sendErr
				}
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}()

	if streamErr != nil {
		failMsg := streamErr.Error()
		if sendErr := c.sendFrontend(&protocol.CopyFail{Message: failMsg}); sendErr != nil {
			return "", sendErr
		}
	} else if err := c.sendFrontend(&protocol.CopyDone{}); err != nil {
		return "", err
	}

	var tag string
	for {
		msg, err := c.recvBackend()
		if err != nil {
			return "", err
		}
		switch m := msg.(type) {
		case *protocol.CommandComplete:
			tag = m.CommandTag
		case *protocol.NoticeResponse:
			c.logger.Debug().Str("message", m.Message).Msg("notice during copy_in")
		case *protocol.ReadyForQuery:
			c.txStatus = TxStatus(m.TxStatus)
			if err := c.transition(stateReady); err != nil {
				return "", err
			}
			if streamErr != nil {
				return "", networkErr("copy_in", streamErr)
			}
			return tag, nil
		case *protocol.ErrorResponse:
			if err := c.drainUntilReady(); err != nil {
				return "", err
			}
			return "", serverErr(m.PgError, "copy_in")
		default:
			return "", protocolViolation("unexpected message %T during copy_in", msg)
		}
	}
}
