package introspect

import (
	"context"
	"fmt"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// introspectSequences reads pg_sequence/pg_class for every standalone
// and owned sequence, capturing last_value so the orchestrator can
// recreate it at the same cursor position on the target (spec.md §3.2).
func introspectSequences(ctx context.Context, conn *pgwire.Conn, opts Options) ([]*schema.Sequence, error) {
	sql := fmt.Sprintf(`
		SELECT n.nspname, c.relname, s.seqstart, s.seqmin, s.seqmax,
		       s.seqincrement, s.seqcache, s.seqcycle,
		       pg_sequence_last_value(c.oid),
		       own.refobjid, own.refobjsubid
		FROM pg_sequence s
		JOIN pg_class c ON c.oid = s.seqrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_depend own ON own.objid = c.oid
		       AND own.deptype = 'a' AND own.classid = 'pg_class'::regclass
		WHERE %s
		ORDER BY n.nspname, c.relname;`, schemaFilterSQL(opts))

	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return nil, err
	}

	var out []*schema.Sequence
	for _, r := range resultRows(results) {
		schemaName := string(r.Values[0])
		name := string(r.Values[1])

		s := &schema.Sequence{
			SchemaName: schemaName,
			Name:       name,
			StartValue: mustAtoi(string(r.Values[2])),
			MinValue:   mustAtoi(string(r.Values[3])),
			MaxValue:   mustAtoi(string(r.Values[4])),
			Increment:  mustAtoi(string(r.Values[5])),
			CacheSize:  mustAtoi(string(r.Values[6])),
			Cycle:      string(r.Values[7]) == "t",
			LastValue:  mustAtoi(valueOrEmpty(r.Values[8])),
		}
		qid := schema.QualifyIdentifier(schemaName, name)
		s.SetIdentity(qid, nil)
		out = append(out, s)
	}
	return out, nil
}
