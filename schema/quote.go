package schema

import "strings"

// QuoteIdentifier double-quotes name per PostgreSQL's rules, doubling
// any embedded quote. It does not attempt to detect whether quoting is
// actually necessary (an unreserved, already-lowercase identifier would
// round-trip fine unquoted) — elefant always quotes, trading a few
// extra bytes of emitted DDL for one fewer class of bug (a table named
// "select" breaking an unquoted emitter).
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifyIdentifier builds a schema.name qualified, quoted identifier.
func QualifyIdentifier(schemaName, name string) QualifiedIdentifier {
	return QualifiedIdentifier(QuoteIdentifier(schemaName) + "." + QuoteIdentifier(name))
}

// QuoteLiteral single-quotes a SQL string literal, doubling embedded
// quotes. Used by sqlfile's InsertStatements writer, for the literal
// arguments of emitted DDL (enum labels, comments, versions), and in the
// catalog and sync-state queries; never used for identifiers. Column and
// domain defaults are emitted as raw SQL, not through it.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
