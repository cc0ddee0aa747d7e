package pgwire

import (
	"context"

	"github.com/elefant-sync/elefant/pgwire/protocol"
)

// Row is one result row: text-format values from QuerySimple, or values
// in the requested result formats from Execute. Values[i] is nil for SQL
// NULL.
type Row struct {
	Values [][]byte
}

// SimpleResult holds one statement's worth of results from QuerySimple.
// The simple protocol can run several ;-separated statements per Query
// message; QuerySimple returns one SimpleResult per statement.
type SimpleResult struct {
	Fields     []protocol.FieldDescription
	Rows       []Row
	CommandTag string
}

// QuerySimple runs sql using the simple query protocol (spec.md §4.1
// query_simple), returning text-format rows. It is used for DDL and
// small administrative queries; bulk data moves through CopyOut/CopyIn
// instead.
func (c *Conn) QuerySimple(ctx context.Context, sql string) ([]SimpleResult, error) {
	if err := c.transition(stateBusyQuery); err != nil {
		return nil, err
	}

	if err := c.sendFrontend(&protocol.Query{Text: sql}); err != nil {
		return nil, err
	}

	var results []SimpleResult
	var cur SimpleResult
	var haveFields bool

	for {
		select {
		case <-ctx.Done():
			return nil, networkErr("query_simple", ctx.Err())
		default:
		}

		msg, err := c.recvBackend()
		if err != nil {
			return nil, err
		}

		switch m := msg.(type) {
		case *protocol.RowDescription:
			cur = SimpleResult{Fields: m.Fields}
			haveFields = true
		case *protocol.DataRow:
			cur.Rows = append(cur.Rows, Row{Values: m.Values})
		case *protocol.CommandComplete:
			cur.CommandTag = m.CommandTag
			results = append(results, cur)
			cur = SimpleResult{}
			haveFields = false
		case *protocol.EmptyQueryResponse:
			results = append(results, SimpleResult{})
		case *protocol.CopyInResponse:
			if err := c.transition(stateBusyCopyIn); err != nil {
				return nil, err
			}
			return nil, protocolViolation("QuerySimple issued a COPY FROM STDIN statement; use CopyIn instead")
		case *protocol.CopyOutResponse:
			if err := c.transition(stateBusyCopyOut); err != nil {
				return nil, err
			}
			return nil, protocolViolation("QuerySimple issued a COPY TO STDOUT statement; use CopyOut instead")
		case *protocol.NoticeResponse:
			c.logger.Debug().Str("message", m.Message).Msg("notice during query_simple")
		case *protocol.ReadyForQuery:
			c.txStatus = TxStatus(m.TxStatus)
			if err := c.transition(stateReady); err != nil {
				return nil, err
			}
			_ = haveFields
			return results, nil
		case *protocol.ErrorResponse:
			// Drain until ReadyForQuery before surfacing the error so the
			// connection is left usable for the caller's next statement.
			if err := c.drainUntilReady(); err != nil {
				return nil, err
			}
			return nil, serverErr(m.PgError, "query_simple")
		default:
			return nil, protocolViolation("unexpected message %T during query_simple", msg)
		}
	}
}

// drainUntilReady consumes messages until ReadyForQuery, used to resync
// the protocol after an ErrorResponse mid-statement.
func (c *Conn) drainUntilReady() error {
	for {
		msg, err := c.recvBackend()
		if err != nil {
			return err
		}
		if rfq, ok := msg.(*protocol.ReadyForQuery); ok {
			c.txStatus = TxStatus(rfq.TxStatus)
			return c.transition(stateReady)
		}
	}
}
