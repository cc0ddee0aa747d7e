package pgwire

import (
	"fmt"

	"github.com/elefant-sync/elefant/elefanterrors"
)

func protocolViolation(format string, args ...any) error {
	return elefanterrors.New(elefanterrors.ProtocolViolation, "", "connection", fmt.Errorf(format, args...))
}

func networkErr(phase string, cause error) error {
	return elefanterrors.New(elefanterrors.Network, "", phase, cause)
}

func authFailed(phase string, cause error) error {
	return elefanterrors.New(elefanterrors.AuthFailed, "", phase, cause)
}

func serverErr(pe *elefanterrors.PgError, phase string) error {
	return elefanterrors.New(elefanterrors.ServerError, "", phase, pe)
}
