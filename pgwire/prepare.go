package pgwire

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/elefant-sync/elefant/pgwire/protocol"
)

// PreparedStatement is a named, Parse'd statement cached by Conn so that
// repeated Execute calls skip re-parsing (spec.md §4.1 prepare).
type PreparedStatement struct {
	name         string
	sql          string
	paramOIDs    []uint32
	resultFields []protocol.FieldDescription
}

// Prepare parses sql once and caches the result keyed by its text and
// paramOIDs, returning the cached statement on a repeat call with the
// same pair. paramOIDs may contain
// zeros to let the server infer parameter types.
func (c *Conn) Prepare(ctx context.Context, sql string, paramOIDs []uint32) (*PreparedStatement, error) {
	key := fingerprint(sql, paramOIDs)
	if ps, ok := c.stmtCache[key]; ok {
		return ps, nil
	}

	c.stmtSeq++
	name := "elefant_ps_" + hex.EncodeToString([]byte{byte(c.stmtSeq >> 8), byte(c.stmtSeq)})

	if err := c.transition(stateBusyQuery); err != nil {
		return nil, err
	}

	if err := c.sendFrontend(&protocol.Parse{StatementName: name, Query: sql, ParamOIDs: paramOIDs}); err != nil {
		return nil, err
	}
	if err := c.sendFrontend(&protocol.Describe{ObjectType: protocol.DescribeStatement, Name: name}); err != nil {
		return nil, err
	}
	if err := c.sendFrontend(&protocol.Sync{}); err != nil {
		return nil, err
	}

	ps := &PreparedStatement{name: name, sql: sql, paramOIDs: paramOIDs}

	for {
		select {
		case <-ctx.Done():
			return nil, networkErr("prepare", ctx.Err())
		default:
		}

		msg, err := c.recvBackend()
		if err != nil {
			return nil, err
		}

		switch m := msg.(type) {
		case *protocol.ParseComplete:
			// no-op, wait for describe results
		case *protocol.ParameterDescription:
			ps.paramOIDs = m.ParameterOIDs
		case *protocol.RowDescription:
			ps.resultFields = m.Fields
		case *protocol.NoData:
			// statement returns no rows (e.g. DDL)
		case *protocol.NoticeResponse:
			c.logger.Debug().Str("message", m.Message).Msg("notice during prepare")
		case *protocol.ReadyForQuery:
			c.txStatus = TxStatus(m.TxStatus)
			if err := c.transition(stateReady); err != nil {
				return nil, err
			}
			c.stmtCache[key] = ps
			return ps, nil
		case *protocol.ErrorResponse:
			if err := c.drainUntilReady(); err != nil {
				return nil, err
			}
			return nil, serverErr(m.PgError, "prepare")
		default:
			return nil, protocolViolation("unexpected message %T during prepare", msg)
		}
	}
}

func fingerprint(sql string, paramOIDs []uint32) string {
	h := sha256.New()
	h.Write([]byte(sql))
	for _, oid := range paramOIDs {
		h.Write([]byte{byte(oid >> 24), byte(oid >> 16), byte(oid >> 8), byte(oid)})
	}
	return hex.EncodeToString(h.Sum(nil))
}
