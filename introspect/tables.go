package introspect

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// introspectTables reads pg_class/pg_attribute for every ordinary table
// and partition, attaching columns in attnum order (spec.md §3.2's
// "column ordering within a table is preserved from source").
func introspectTables(ctx context.Context, conn *pgwire.Conn, opts Options, dialect Dialect) ([]*schema.Table, error) {
	tableSQL := fmt.Sprintf(`
		SELECT c.oid, n.nspname, c.relname, c.relkind,
		       c.reloptions, c.relpartbound, c.relispartition
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p') AND %s
		ORDER BY n.nspname, c.relname;`, schemaFilterSQL(opts))

	tableResults, err := conn.QuerySimple(ctx, tableSQL)
	if err != nil {
		return nil, err
	}

	var tables []*schema.Table
	byOID := make(map[string]*schema.Table)

	for _, r := range resultRows(tableResults) {
		oid := string(r.Values[0])
		schemaName := string(r.Values[1])
		name := string(r.Values[2])

		t := &schema.Table{
			SchemaName:    schemaName,
			Name:          name,
			StorageParams: parseReloptions(valueOrEmpty(r.Values[4])),
			Partitioning:  "", // populated by a TimescaleDB/declarative-partitioning pass when relevant
		}
		qid := schema.QualifyIdentifier(schemaName, name)
		t.SetIdentity(qid, nil)
		t.SetSourceOID(uint32(mustAtoi(oid)))

		tables = append(tables, t)
		byOID[oid] = t
	}

	if err := attachColumns(ctx, conn, opts, byOID, dialect); err != nil {
		return nil, err
	}

	return tables, nil
}

func attachColumns(ctx context.Context, conn *pgwire.Conn, opts Options, byOID map[string]*schema.Table, dialect Dialect) error {
	if len(byOID) == 0 {
		return nil
	}

	colSQL := `
		SELECT a.attrelid, a.attname, a.atttypid, a.atttypmod, a.attnum,
		       a.attnotnull, a.attidentity, a.attgenerated,
		       pg_get_expr(d.adbin, d.adrelid), a.attcollation,
		       format_type(a.atttypid, a.atttypmod)
		FROM pg_attribute a
		LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		WHERE a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attrelid, a.attnum;`

	results, err := conn.QuerySimple(ctx, colSQL)
	if err != nil {
		return err
	}

	for _, r := range resultRows(results) {
		relOID := string(r.Values[0])
		t, ok := byOID[relOID]
		if !ok {
			continue // column belongs to a table outside the schema filter
		}

		notNull := string(r.Values[5]) == "t"
		identity := string(r.Values[6])
		generated := string(r.Values[7])
		defaultExpr := valueOrEmpty(r.Values[8])
		typeName := string(r.Values[10])

		col := schema.Column{
			Name:    string(r.Values[1]),
			Type:    schema.TypeRef{OID: uint32(mustAtoi(string(r.Values[2]))), Name: typeName},
			NotNull: notNull,
			Default: defaultExpr,
		}
		if generated == "s" && dialect.SupportsGenerated {
			col.Generated = defaultExpr
			col.Default = ""
		}
		switch {
		case identity == "a" && dialect.SupportsIdentity:
			col.Identity = schema.IdentityAlways
		case identity == "d" && dialect.SupportsIdentity:
			col.Identity = schema.IdentityByDefault
		case strings.HasPrefix(defaultExpr, "nextval("):
			col.Identity = schema.SerialOwnedSequence
		}

		t.Columns = append(t.Columns, col)
	}
	return nil
}

func valueOrEmpty(v []byte) string {
	if v == nil {
		return ""
	}
	return string(v)
}

// parseReloptions parses pg_class.reloptions' text-array rendering,
// e.g. {fillfactor=70,autovacuum_enabled=false}, into a map. PostgreSQL
// never embeds a literal comma inside a reloption value, so a naive
// split is safe here (unlike general array text parsing, which must
// respect quoting).
func parseReloptions(raw string) map[string]string {
	raw = strings.TrimPrefix(raw, "{")
	raw = strings.TrimSuffix(raw, "}")
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, kv := range strings.Split(raw, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out
}

func mustAtoi(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
