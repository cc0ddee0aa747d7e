package introspect

import (
	"context"
	"fmt"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// introspectEnumsAndDomains reads pg_type for CREATE TYPE ... AS ENUM and
// CREATE DOMAIN objects. Both live in pg_type (typtype 'e' and 'd'
// respectively); each kind is read by its own query into its own IR
// slice.
func introspectEnumsAndDomains(ctx context.Context, conn *pgwire.Conn, opts Options) ([]*schema.Enum, []*schema.Domain, error) {
	enums, err := introspectEnums(ctx, conn, opts)
	if err != nil {
		return nil, nil, err
	}
	domains, err := introspectDomains(ctx, conn, opts)
	if err != nil {
		return nil, nil, err
	}
	return enums, domains, nil
}

func introspectEnums(ctx context.Context, conn *pgwire.Conn, opts Options) ([]*schema.Enum, error) {
	sql := fmt.Sprintf(`
		SELECT n.nspname, t.typname, t.oid
		FROM pg_type t
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE t.typtype = 'e' AND %s
		ORDER BY n.nspname, t.typname;`, schemaFilterSQL(opts))

	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return nil, err
	}

	var out []*schema.Enum
	for _, r := range resultRows(results) {
		schemaName := string(r.Values[0])
		name := string(r.Values[1])
		typOID := mustAtoi(string(r.Values[2]))

		labels, err := enumLabels(ctx, conn, typOID)
		if err != nil {
			return nil, err
		}

		e := &schema.Enum{SchemaName: schemaName, Name: name, Labels: labels}
		qid := schema.QualifyIdentifier(schemaName, name)
		e.SetIdentity(qid, nil)
		e.SetSourceOID(uint32(typOID))
		out = append(out, e)
	}
	return out, nil
}

func enumLabels(ctx context.Context, conn *pgwire.Conn, typOID int64) ([]string, error) {
	sql := fmt.Sprintf(`
		SELECT enumlabel FROM pg_enum
		WHERE enumtypid = %d
		ORDER BY enumsortorder;`, typOID)
	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, r := range resultRows(results) {
		labels = append(labels, string(r.Values[0]))
	}
	return labels, nil
}

func introspectDomains(ctx context.Context, conn *pgwire.Conn, opts Options) ([]*schema.Domain, error) {
	sql := fmt.Sprintf(`
		SELECT n.nspname, t.typname, format_type(t.typbasetype, t.typtypmod),
		       t.typnotnull, coalesce(t.typdefault, ''), t.oid
		FROM pg_type t
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE t.typtype = 'd' AND %s
		ORDER BY n.nspname, t.typname;`, schemaFilterSQL(opts))

	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return nil, err
	}

	var out []*schema.Domain
	for _, r := range resultRows(results) {
		schemaName := string(r.Values[0])
		name := string(r.Values[1])
		typOID := mustAtoi(string(r.Values[5]))

		d := &schema.Domain{
			SchemaName: schemaName,
			Name:       name,
			BaseType:   schema.TypeRef{Name: string(r.Values[2])},
			NotNull:    string(r.Values[3]) == "t",
			Default:    string(r.Values[4]),
		}
		checks, err := domainChecks(ctx, conn, typOID)
		if err != nil {
			return nil, err
		}
		d.Checks = checks

		qid := schema.QualifyIdentifier(schemaName, name)
		d.SetIdentity(qid, nil)
		d.SetSourceOID(uint32(typOID))
		out = append(out, d)
	}
	return out, nil
}

func domainChecks(ctx context.Context, conn *pgwire.Conn, typOID int64) ([]schema.CheckConstraint, error) {
	sql := fmt.Sprintf(`
		SELECT conname, pg_get_constraintdef(oid)
		FROM pg_constraint
		WHERE contypid = %d AND contype = 'c'
		ORDER BY conname;`, typOID)
	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return nil, err
	}
	var out []schema.CheckConstraint
	for _, r := range resultRows(results) {
		out = append(out, schema.CheckConstraint{
			Name:       string(r.Values[0]),
			Expression: extractCheckExpr(string(r.Values[1])),
		})
	}
	return out, nil
}
