package introspect

import (
	"context"
	"fmt"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// introspectViews reads pg_class/pg_get_viewdef for plain and
// materialized views. Continuous aggregates (TimescaleDB's materialized
// views backed by a hypertable) are introspected again in
// introspectHypertables, which wraps the underlying View in a
// ContinuousAggregate rather than duplicating it here.
func introspectViews(ctx context.Context, conn *pgwire.Conn, opts Options) ([]*schema.View, error) {
	sql := fmt.Sprintf(`
		SELECT n.nspname, c.relname, c.relkind, pg_get_viewdef(c.oid, true)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('v', 'm') AND %s
		ORDER BY n.nspname, c.relname;`, schemaFilterSQL(opts))

	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return nil, err
	}

	var out []*schema.View
	for _, r := range resultRows(results) {
		schemaName := string(r.Values[0])
		name := string(r.Values[1])
		relkind := string(r.Values[2])

		v := &schema.View{
			SchemaName:   schemaName,
			Name:         name,
			Definition:   string(r.Values[3]),
			Materialized: relkind == "m",
		}
		qid := schema.QualifyIdentifier(schemaName, name)
		v.SetIdentity(qid, nil)
		out = append(out, v)
	}
	return out, nil
}
