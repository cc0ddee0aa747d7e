package protocol

import (
	"encoding/binary"

	"github.com/elefant-sync/elefant/elefanterrors"
)

// ReadyForQuery reports the transaction status the connection settled
// into after completing a query (spec.md §3.1 connection state machine).
type ReadyForQuery struct {
	TxStatus byte // 'I' idle, 'T' in transaction, 'E' failed transaction
}

func (r *ReadyForQuery) Decode(src []byte) error {
	if len(src) < 1 {
		return &invalidMessageFormatErr{messageType: "ReadyForQuery"}
	}
	r.TxStatus = src[0]
	return nil
}

// BackendKeyData gives the client the PID/secret key needed to later
// issue a CancelRequest (spec.md §5).
type BackendKeyData struct {
	ProcessID uint32
	SecretKey uint32
}

func (b *BackendKeyData) Decode(src []byte) error {
	if len(src) < 8 {
		return &invalidMessageFormatErr{messageType: "BackendKeyData"}
	}
	b.ProcessID = binary.BigEndian.Uint32(src[0:4])
	b.SecretKey = binary.BigEndian.Uint32(src[4:8])
	return nil
}

// ParameterStatus reports a runtime server parameter, e.g. server_version.
type ParameterStatus struct {
	Name  string
	Value string
}

func (p *ParameterStatus) Decode(src []byte) error {
	name, n, err := cstring(src)
	if err != nil {
		return err
	}
	value, _, err := cstring(src[n:])
	if err != nil {
		return err
	}
	p.Name, p.Value = name, value
	return nil
}

// ErrorResponse/NoticeResponse share the field-tag encoding defined by
// https://www.postgresql.org/docs/current/protocol-error-fields.html.
type fieldedMessage struct {
	Fields map[byte]string
}

func decodeFieldedMessage(src []byte) (map[byte]string, error) {
	fields := map[byte]string{}
	for len(src) > 0 {
		tag := src[0]
		if tag == 0 {
			break
		}
		rest := src[1:]
		val, n, err := cstring(rest)
		if err != nil {
			return nil, err
		}
		fields[tag] = val
		src = rest[n:]
	}
	return fields, nil
}

func fieldedToPgError(fields map[byte]string) *elefanterrors.PgError {
	return &elefanterrors.PgError{
		Severity:       fields['S'],
		Code:           fields['C'],
		Message:        fields['M'],
		Detail:         fields['D'],
		Hint:           fields['H'],
		SchemaName:     fields['s'],
		TableName:      fields['t'],
		ColumnName:     fields['c'],
		DataTypeName:   fields['d'],
		ConstraintName: fields['n'],
		Where:          fields['W'],
		File:           fields['F'],
		Routine:        fields['R'],
	}
}

// ErrorResponse reports a fatal or statement-level server error.
type ErrorResponse struct {
	*elefanterrors.PgError
}

func (e *ErrorResponse) Decode(src []byte) error {
	fields, err := decodeFieldedMessage(src)
	if err != nil {
		return err
	}
	e.PgError = fieldedToPgError(fields)
	return nil
}

// NoticeResponse carries a non-fatal advisory from the server.
type NoticeResponse struct {
	*elefanterrors.PgError
}

func (n *NoticeResponse) Decode(src []byte) error {
	fields, err := decodeFieldedMessage(src)
	if err != nil {
		return err
	}
	n.PgError = fieldedToPgError(fields)
	return nil
}
