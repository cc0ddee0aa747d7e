package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// introspectFunctions reads pg_proc for plain functions, procedures, and
// aggregates. Argument and return types are captured by name only
// (format_type), never re-parsed from the body — spec.md's no-SQL-parser
// non-goal applies here as everywhere else.
func introspectFunctions(ctx context.Context, conn *pgwire.Conn, opts Options) ([]*schema.Function, error) {
	sql := fmt.Sprintf(`
		SELECT n.nspname, p.proname, p.prokind, l.lanname,
		       p.prosrc, p.provolatile, p.proisstrict,
		       pg_get_function_arguments(p.oid),
		       format_type(p.prorettype, NULL),
		       p.proargnames,
		       agg.aggfnoid IS NOT NULL, coalesce(agg.aggtransfn::text, ''),
		       format_type(agg.aggtranstype, NULL)
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		JOIN pg_language l ON l.oid = p.prolang
		LEFT JOIN pg_aggregate agg ON agg.aggfnoid = p.oid
		WHERE %s AND p.prokind IN ('f', 'p', 'a')
		ORDER BY n.nspname, p.proname;`, schemaFilterSQL(opts))

	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return nil, err
	}

	var out []*schema.Function
	for _, r := range resultRows(results) {
		schemaName := string(r.Values[0])
		name := string(r.Values[1])
		prokind := string(r.Values[2])

		f := &schema.Function{
			SchemaName:  schemaName,
			Name:        name,
			Language:    string(r.Values[3]),
			Body:        string(r.Values[4]),
			Volatility:  volatilityFromChar(string(r.Values[5])),
			Strict:      string(r.Values[6]) == "t",
			IsProcedure: prokind == "p",
		}
		f.ArgTypes, f.ArgNames = parseFunctionArguments(string(r.Values[7]))
		f.ReturnType = schema.TypeRef{Name: string(r.Values[8])}

		if prokind == "a" && string(r.Values[10]) == "t" {
			f.AggregateKind = "normal"
			f.AggregateSFunc = string(r.Values[11])
			f.AggregateStype = schema.TypeRef{Name: string(r.Values[12])}
		}

		qid := schema.QualifyIdentifier(schemaName, name+"/"+mustQuoteArgSignature(f.ArgTypes))
		f.SetIdentity(qid, nil)
		out = append(out, f)
	}
	return out, nil
}

func volatilityFromChar(c string) schema.Volatility {
	switch c {
	case "i":
		return schema.VolatilityImmutable
	case "s":
		return schema.VolatilityStable
	default:
		return schema.VolatilityVolatile
	}
}

// parseFunctionArguments splits pg_get_function_arguments' rendering,
// e.g. "a integer, b text DEFAULT 'x'", into parallel name/type slices.
// Default-value clauses are dropped; elefant re-creates signatures, not
// call sites.
func parseFunctionArguments(raw string) ([]schema.TypeRef, []string) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := splitTopLevelComma(raw)
	types := make([]schema.TypeRef, 0, len(parts))
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if idx := strings.Index(p, " DEFAULT "); idx >= 0 {
			p = p[:idx]
		}
		fields := strings.Fields(p)
		if len(fields) == 0 {
			continue
		}
		if len(fields) == 1 {
			types = append(types, schema.TypeRef{Name: fields[0]})
			names = append(names, "")
			continue
		}
		names = append(names, fields[0])
		types = append(types, schema.TypeRef{Name: strings.Join(fields[1:], " ")})
	}
	return types, names
}

// mustQuoteArgSignature renders a disambiguating suffix for overloaded
// functions so two functions sharing a name in the same schema get
// distinct qualified identifiers.
func mustQuoteArgSignature(args []schema.TypeRef) string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Name
	}
	return strings.Join(names, ",")
}
