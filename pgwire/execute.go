package pgwire

import (
	"context"

	"github.com/elefant-sync/elefant/pgwire/protocol"
)

// ExecuteResult is the decoded outcome of binding and executing a
// PreparedStatement (spec.md §4.1 execute). Rows are in whatever format
// ResultFormats requested per column (binary by default, for the
// introspector and data pipeline's typed scanning).
type ExecuteResult struct {
	Rows       []Row
	CommandTag string
}

// Execute binds params (already wire-encoded per pgvalue) to ps and runs
// it to completion using the extended query protocol, requesting
// binary-format results for every column.
func (c *Conn) Execute(ctx context.Context, ps *PreparedStatement, params [][]byte, paramFormats []int16) (*ExecuteResult, error) {
	if err := c.transition(stateBusyQuery); err != nil {
		return nil, err
	}

	resultFormats := make([]int16, len(ps.resultFields))
	for i := range resultFormats {
		resultFormats[i] = protocol.BinaryFormatCode
	}

	bind := &protocol.Bind{
		PreparedStatement:    ps.name,
		ParameterFormatCodes: paramFormats,
		Parameters:           params,
		ResultFormatCodes:    resultFormats,
	}
	if err := c.sendFrontend(bind); err != nil {
		return nil, err
	}
	if err := c.sendFrontend(&protocol.Execute{}); err != nil {
		return nil, err
	}
	if err := c.sendFrontend(&protocol.Sync{}); err != nil {
		return nil, err
	}

	res := &ExecuteResult{}

	for {
		select {
		case <-ctx.Done():
			return nil, networkErr("execute", ctx.Err())
		default:
		}

		msg, err := c.recvBackend()
		if err != nil {
			return nil, err
		}

		switch m := msg.(type) {
		case *protocol.BindComplete:
			// no-op
		case *protocol.DataRow:
			res.Rows = append(res.Rows, Row{Values: m.Values})
		case *protocol.CommandComplete:
			res.CommandTag = m.CommandTag
		case *protocol.EmptyQueryResponse:
			// no-op
		case *protocol.NoticeResponse:
			c.logger.Debug().Str("message", m.Message).Msg("notice during execute")
		case *protocol.ReadyForQuery:
			c.txStatus = TxStatus(m.TxStatus)
			if err := c.transition(stateReady); err != nil {
				return nil, err
			}
			return res, nil
		case *protocol.ErrorResponse:
			if err := c.drainUntilReady(); err != nil {
				return nil, err
			}
			return nil, serverErr(m.PgError, "execute")
		default:
			return nil, protocolViolation("unexpected message %T during execute", msg)
		}
	}
}
