package pgwire

// connState is the connection state machine of spec.md §3.1:
//
//	Unauthenticated -> Authenticating -> Ready{Idle|InTx|Failed} -> BusyQuery
//	  -> BusyCopyIn | BusyCopyOut | BusyCopyBoth -> Ready ...
//
// Terminal: Closed.
type connState int

const (
	stateUnauthenticated connState = iota
	stateAuthenticating
	stateReady
	stateBusyQuery
	stateBusyCopyIn
	stateBusyCopyOut
	stateBusyCopyBoth
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateAuthenticating:
		return "authenticating"
	case stateReady:
		return "ready"
	case stateBusyQuery:
		return "busy_query"
	case stateBusyCopyIn:
		return "busy_copy_in"
	case stateBusyCopyOut:
		return "busy_copy_out"
	case stateBusyCopyBoth:
		return "busy_copy_both"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TxStatus is the transaction status reported by the last ReadyForQuery.
type TxStatus byte

const (
	TxIdle   TxStatus = 'I'
	TxInTx   TxStatus = 'T'
	TxFailed TxStatus = 'E'
)

// legalTransitions enumerates which states may follow which, used only
// to turn a protocol bug into a ProtocolViolation instead of silent
// corruption.
var legalTransitions = map[connState]map[connState]bool{
	stateUnauthenticated: {stateAuthenticating: true},
	stateAuthenticating:  {stateAuthenticating: true, stateReady: true, stateClosed: true},
	stateReady: {
		stateBusyQuery: true, stateBusyCopyIn: true, stateBusyCopyOut: true,
		stateBusyCopyBoth: true, stateClosed: true, stateReady: true,
	},
	stateBusyQuery:    {stateReady: true, stateClosed: true, stateBusyCopyIn: true, stateBusyCopyOut: true, stateBusyCopyBoth: true},
	stateBusyCopyIn:   {stateReady: true, stateClosed: true},
	stateBusyCopyOut:  {stateReady: true, stateClosed: true},
	stateBusyCopyBoth: {stateReady: true, stateClosed: true},
	stateClosed:       {},
}

func (c *Conn) transition(to connState) error {
	if c.state == to {
		return nil
	}
	if !legalTransitions[c.state][to] {
		return protocolViolation("illegal connection state transition %s -> %s", c.state, to)
	}
	c.state = to
	return nil
}
