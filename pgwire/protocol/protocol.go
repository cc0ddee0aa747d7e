// Package protocol implements the PostgreSQL frontend/backend wire
// protocol v3.0 message codec (spec.md §3.1, §6.2): frame parsing and the
// FrontendMessage/BackendMessage tagged unions. It has no knowledge of
// connection state, authentication flow, or query semantics — those live
// in the parent pgwire package.
package protocol

// FrontendMessage is any message the client can send.
type FrontendMessage interface {
	// Encode appends the wire representation of the message to dst and
	// returns the extended slice.
	Encode(dst []byte) ([]byte, error)
}

// BackendMessage is any message the server can send.
type BackendMessage interface {
	// Decode parses the message body (excluding the kind byte and length
	// prefix already consumed by the frame reader) from src.
	Decode(src []byte) error
}

// Format codes used in FieldDescription.Format and Bind parameter/result
// format lists (spec.md §3.1 FieldDescription, §4.1 simple-vs-extended
// protocol rule).
const (
	TextFormatCode   int16 = 0
	BinaryFormatCode int16 = 1
)

// Backend message kind bytes.
const (
	kindAuthentication      = 'R'
	kindBackendKeyData      = 'K'
	kindBindComplete        = '2'
	kindCloseComplete       = '3'
	kindCommandComplete     = 'C'
	kindCopyData            = 'd'
	kindCopyDone            = 'c'
	kindCopyInResponse      = 'G'
	kindCopyOutResponse     = 'H'
	kindCopyBothResponse    = 'W'
	kindDataRow             = 'D'
	kindEmptyQueryResponse  = 'I'
	kindErrorResponse       = 'E'
	kindNoData              = 'n'
	kindNoticeResponse      = 'N'
	kindNotificationResp   = 'A'
	kindParameterDescription = 't'
	kindParameterStatus     = 'S'
	kindParseComplete       = '1'
	kindReadyForQuery       = 'Z'
	kindRowDescription      = 'T'
)

// Frontend message kind bytes. Startup, SSLRequest and CancelRequest
// have no kind byte (spec.md §3.1).
const (
	kindBind        = 'B'
	kindClose       = 'C'
	kindCopyFail    = 'f'
	kindDescribe    = 'D'
	kindExecute     = 'E'
	kindFlush       = 'H'
	kindParse       = 'P'
	kindPassword    = 'p'
	kindQuery       = 'Q'
	kindSync        = 'S'
	kindTerminate   = 'X'
)

// invalidMessageFormatErr is returned by Decode implementations when src
// does not contain enough bytes for the declared message shape.
type invalidMessageFormatErr struct {
	messageType string
	details     string
}

func (e *invalidMessageFormatErr) Error() string {
	if e.details == "" {
		return "invalid " + e.messageType + " message format"
	}
	return "invalid " + e.messageType + " message format: " + e.details
}
