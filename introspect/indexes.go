package introspect

import (
	"context"
	"strings"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// introspectIndexes reads pg_index/pg_class/pg_am for every index not
// already implied by a PRIMARY KEY/UNIQUE constraint emitted from
// introspectConstraints, and appends standalone schema.Index objects to
// forest.Indexes.
func introspectIndexes(ctx context.Context, conn *pgwire.Conn, opts Options, forest *schema.Forest) error {
	sql := `
		SELECT ic.oid, n.nspname, ic.relname, t.oid, am.amname,
		       i.indisunique, i.indisprimary, pg_get_expr(i.indpred, i.indrelid),
		       pg_get_indexdef(i.indexrelid), ic.reloptions
		FROM pg_index i
		JOIN pg_class ic ON ic.oid = i.indexrelid
		JOIN pg_class t ON t.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = ic.relnamespace
		JOIN pg_am am ON am.oid = ic.relam
		WHERE i.indisprimary = false
		  AND NOT EXISTS (
		      SELECT 1 FROM pg_constraint c
		      WHERE c.conindid = i.indexrelid AND c.contype IN ('p', 'u')
		  )
		ORDER BY n.nspname, ic.relname;`

	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return err
	}

	byTableOID := make(map[uint32]*schema.Table)
	for _, t := range forest.Tables {
		byTableOID[t.SourceOID()] = t
	}

	for _, r := range resultRows(results) {
		schemaName := string(r.Values[1])
		name := string(r.Values[2])
		tableOID := uint32(mustAtoi(string(r.Values[3])))
		t, ok := byTableOID[tableOID]
		if !ok {
			continue // index on a table outside the schema filter
		}
		isUnique := string(r.Values[5]) == "t"
		predicate := valueOrEmpty(r.Values[7])
		indexDef := string(r.Values[8])

		idx := &schema.Index{
			SchemaName:    schemaName,
			Name:          name,
			Method:        string(r.Values[4]),
			Unique:        isUnique,
			Predicate:     predicate,
			Columns:       extractIndexColumns(indexDef),
			StorageParams: parseReloptions(valueOrEmpty(r.Values[9])),
		}
		idx.Table = t.Identifier()

		qid := schema.QualifyIdentifier(schemaName, name)
		idx.SetIdentity(qid, []schema.QualifiedIdentifier{idx.Table})
		idx.SetSourceOID(uint32(mustAtoi(string(r.Values[0]))))

		forest.Indexes = append(forest.Indexes, idx)
	}

	return nil
}

// extractIndexColumns pulls the parenthesized column/expression list out
// of a pg_get_indexdef rendering, e.g.
// "CREATE INDEX idx ON public.orders USING btree (customer_id, lower(email))".
// It does not attempt to distinguish ASC/DESC/NULLS FIRST markers beyond
// a literal substring check, consistent with the no-SQL-parser non-goal.
func extractIndexColumns(def string) []schema.IndexColumn {
	open := strings.IndexByte(def, '(')
	if open < 0 {
		return nil
	}
	// The list ends at the ')' matching open, not the last ')' in def:
	// INCLUDE (...) and WHERE (...) clauses may follow it.
	close := -1
	depth := 0
	for i := open; i < len(def); i++ {
		switch def[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			close = i
			break
		}
	}
	if close < 0 {
		return nil
	}
	inner := def[open+1 : close]

	var out []schema.IndexColumn
	for _, part := range splitTopLevelComma(inner) {
		part = strings.TrimSpace(part)
		col := schema.IndexColumn{}
		switch {
		case strings.HasSuffix(part, " DESC NULLS LAST"):
			col.Desc = true
			part = strings.TrimSuffix(part, " DESC NULLS LAST")
		case strings.HasSuffix(part, " DESC"):
			col.Desc = true
			part = strings.TrimSuffix(part, " DESC")
		case strings.HasSuffix(part, " NULLS FIRST"):
			col.NullsFirst = true
			part = strings.TrimSuffix(part, " NULLS FIRST")
		}
		part = strings.TrimSpace(part)
		if strings.ContainsAny(part, "( ") {
			col.Expression = part
		} else {
			col.Expression = part // plain column name; emit_sql quotes it either way
		}
		out = append(out, col)
	}
	return out
}

// splitTopLevelComma splits on commas that are not nested inside
// parentheses, so an expression index column like "lower(a, b)" isn't
// torn in two.
func splitTopLevelComma(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
