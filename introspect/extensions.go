package introspect

import (
	"context"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// introspectExtensions reads pg_extension directly (not schema-filtered:
// an extension's own schema may be pg_catalog or a system schema even
// though the objects it creates live elsewhere).
func introspectExtensions(ctx context.Context, conn *pgwire.Conn) ([]*schema.Extension, error) {
	sql := `
		SELECT e.extname, e.extversion, n.nspname
		FROM pg_extension e
		JOIN pg_namespace n ON n.oid = e.extnamespace
		ORDER BY e.extname;`

	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return nil, err
	}

	var out []*schema.Extension
	for _, r := range resultRows(results) {
		name := string(r.Values[0])
		e := &schema.Extension{
			Name:       name,
			Version:    string(r.Values[1]),
			SchemaName: string(r.Values[2]),
		}
		qid := schema.QualifiedIdentifier("extension:" + name)
		e.SetIdentity(qid, nil)
		out = append(out, e)
	}
	return out, nil
}
