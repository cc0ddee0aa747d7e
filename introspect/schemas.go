package introspect

import (
	"context"
	"fmt"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

func introspectSchemas(ctx context.Context, conn *pgwire.Conn, opts Options) ([]*schema.Schema, error) {
	sql := fmt.Sprintf(`
		SELECT n.nspname
		FROM pg_namespace n
		WHERE %s
		ORDER BY n.nspname;`, schemaFilterSQL(opts))

	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return nil, err
	}

	var out []*schema.Schema
	for _, r := range resultRows(results) {
		name := string(r.Values[0])
		s := &schema.Schema{Name: name}
		s.SetIdentity(schema.QualifiedIdentifier(schema.QuoteIdentifier(name)), nil)
		out = append(out, s)
	}
	return out, nil
}

// resultRows flattens QuerySimple's per-statement grouping into a single
// row slice; elefant's catalog queries are always a single SELECT.
func resultRows(results []pgwire.SimpleResult) []pgwire.Row {
	if len(results) == 0 {
		return nil
	}
	return results[0].Rows
}
