package elefanterrors

// SQLSTATE codes the wire layer and orchestrator inspect directly to
// decide retry eligibility or to produce a better diagnostic. This is not
// the full PostgreSQL SQLSTATE catalog, only the codes this tool branches
// on.
const (
	SQLStateUniqueViolation       = "23505"
	SQLStateForeignKeyViolation   = "23503"
	SQLStateNotNullViolation      = "23502"
	SQLStateCheckViolation        = "23514"
	SQLStateUndefinedTable        = "42P01"
	SQLStateUndefinedColumn       = "42703"
	SQLStateDuplicateTable        = "42P07"
	SQLStateDuplicateObject       = "42710"
	SQLStateInsufficientPrivilege = "42501"
	SQLStateConnectionException   = "08000"
	SQLStateConnectionFailure     = "08006"
	SQLStateAdminShutdown         = "57P01"
	SQLStateCrashShutdown         = "57P02"
	SQLStateCannotConnectNow      = "57P03"
	SQLStateQueryCanceled         = "57014"
	SQLStateDeadlockDetected      = "40P01"
	SQLStateSerializationFailure  = "40001"
	SQLStateTooManyConnections    = "53300"
	SQLStateInvalidPassword       = "28P01"
	SQLStateInvalidAuthSpec       = "28000"
)

// PgError mirrors the fields PostgreSQL sends in an ErrorResponse (or
// NoticeResponse) message; see
// https://www.postgresql.org/docs/current/protocol-error-fields.html.
type PgError struct {
	Severity       string
	Code           string
	Message        string
	Detail         string
	Hint           string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string
	Where          string
	File           string
	Line           int32
	Routine        string
}

func (pe *PgError) Error() string {
	return pe.Severity + ": " + pe.Message + " (SQLSTATE " + pe.Code + ")"
}

// SQLState returns the error's SQLSTATE code.
func (pe *PgError) SQLState() string { return pe.Code }

// retryableSQLStates lists SQLSTATEs the orchestrator treats as transient
// even though they arrived as a ServerError rather than a network failure
// (spec.md §7: "Orchestrator classifies errors into transient vs fatal").
var retryableSQLStates = map[string]bool{
	SQLStateDeadlockDetected:     true,
	SQLStateSerializationFailure: true,
	SQLStateTooManyConnections:   true,
	SQLStateCannotConnectNow:     true,
	SQLStateAdminShutdown:        true,
	SQLStateCrashShutdown:        true,
}

// IsRetryableServerError reports whether a PgError's SQLSTATE should be
// retried by the orchestrator's chunk-retry policy.
func IsRetryableServerError(pe *PgError) bool {
	if pe == nil {
		return false
	}
	return retryableSQLStates[pe.Code]
}
