package introspect

import (
	"context"
	"strings"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// introspectConstraints reads pg_constraint for primary keys, unique
// constraints, checks, and foreign keys (with their ON UPDATE/ON DELETE
// actions), and attaches each to its owning Table already present in
// forest.
func introspectConstraints(ctx context.Context, conn *pgwire.Conn, opts Options, forest *schema.Forest) error {
	sql := `
		SELECT con.conrelid, con.conname, con.contype,
		       pg_get_constraintdef(con.oid),
		       confrelid, confupdtype, confdeltype
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE con.contype IN ('p', 'u', 'c', 'f')
		ORDER BY con.conrelid, con.conname;`

	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return err
	}

	byOID := make(map[uint32]*schema.Table)
	for _, t := range forest.Tables {
		byOID[sourceOID(t)] = t
	}

	for _, r := range resultRows(results) {
		relOID := uint32(mustAtoi(string(r.Values[0])))
		t, ok := byOID[relOID]
		if !ok {
			continue
		}

		name := string(r.Values[1])
		contype := string(r.Values[2])
		def := string(r.Values[3])

		switch contype {
		case "p":
			t.PrimaryKey = extractColumnList(def)
		case "u":
			t.Uniques = append(t.Uniques, schema.UniqueConstraint{Name: name, Columns: extractColumnList(def)})
		case "c":
			t.Checks = append(t.Checks, schema.CheckConstraint{Name: name, Expression: extractCheckExpr(def)})
		case "f":
			refOID := uint32(mustAtoi(valueOrEmpty(r.Values[4])))
			refTable := byOID[refOID]
			var refQID schema.QualifiedIdentifier
			if refTable != nil {
				refQID = refTable.Identifier()
				t.AddDependency(refQID)
			}
			t.ForeignKeys = append(t.ForeignKeys, schema.ForeignKey{
				Name:       name,
				Columns:    extractColumnList(def),
				RefTable:   refQID,
				RefColumns: extractRefColumnList(def),
				OnUpdate:   actionFromChar(valueOrEmpty(r.Values[5])),
				OnDelete:   actionFromChar(valueOrEmpty(r.Values[6])),
			})
		}
	}

	return nil
}

func sourceOID(t *schema.Table) uint32 {
	// introspectTables stamps every table's pg_class OID via SetSourceOID,
	// so the constraint rows' conrelid values match it directly.
	return t.SourceOID()
}

func actionFromChar(c string) schema.ReferentialAction {
	switch c {
	case "a":
		return schema.ActionNoAction
	case "r":
		return schema.ActionRestrict
	case "c":
		return schema.ActionCascade
	case "n":
		return schema.ActionSetNull
	case "d":
		return schema.ActionSetDefault
	default:
		return schema.ActionNoAction
	}
}

// extractColumnList pulls the column list out of a pg_get_constraintdef
// rendering like "PRIMARY KEY (id, tenant_id)" or
// "UNIQUE (email)". It does not attempt full SQL parsing (spec.md's
// explicit non-goal); it only needs the parenthesized list immediately
// following the constraint keyword.
func extractColumnList(def string) []string {
	open := strings.IndexByte(def, '(')
	if open < 0 {
		return nil
	}
	close := strings.IndexByte(def[open:], ')')
	if close < 0 {
		return nil
	}
	inner := def[open+1 : open+close]
	var out []string
	for _, c := range strings.Split(inner, ",") {
		out = append(out, strings.TrimSpace(c))
	}
	return out
}

// extractRefColumnList pulls the referenced-table's column list out of
// "... REFERENCES other(col1, col2) ...".
func extractRefColumnList(def string) []string {
	idx := strings.Index(def, "REFERENCES")
	if idx < 0 {
		return nil
	}
	rest := def[idx:]
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return nil
	}
	close := strings.IndexByte(rest[open:], ')')
	if close < 0 {
		return nil
	}
	inner := rest[open+1 : open+close]
	var out []string
	for _, c := range strings.Split(inner, ",") {
		out = append(out, strings.TrimSpace(c))
	}
	return out
}

// extractCheckExpr strips the "CHECK (" prefix and trailing ")" from a
// pg_get_constraintdef rendering of a CHECK constraint.
func extractCheckExpr(def string) string {
	def = strings.TrimPrefix(def, "CHECK ")
	def = strings.TrimPrefix(def, "(")
	def = strings.TrimSuffix(def, ")")
	return def
}
