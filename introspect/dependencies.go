package introspect

import (
	"context"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// introspectInheritance reads pg_inherits and fills in each Table's
// InheritsFrom, matching parents up by source catalog OID against the
// tables already built by introspectTables.
func introspectInheritance(ctx context.Context, conn *pgwire.Conn, forest *schema.Forest) error {
	sql := `SELECT inhrelid, inhparent FROM pg_inherits ORDER BY inhrelid, inhseqno;`
	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return err
	}

	byOID := make(map[uint32]*schema.Table, len(forest.Tables))
	for _, t := range forest.Tables {
		byOID[t.SourceOID()] = t
	}

	for _, r := range resultRows(results) {
		childOID := uint32(mustAtoi(string(r.Values[0])))
		parentOID := uint32(mustAtoi(string(r.Values[1])))

		child, ok := byOID[childOID]
		if !ok {
			continue
		}
		parent, ok := byOID[parentOID]
		if !ok {
			continue
		}
		child.InheritsFrom = append(child.InheritsFrom, parent.Identifier())
		child.AddDependency(parent.Identifier())
	}
	return nil
}

// finalizeDependencies adds the dependency edges that only become
// resolvable once every kind has been introspected: a table column typed
// as an enum or domain must be ordered after that type's CREATE TYPE/
// CREATE DOMAIN statement (spec.md §8 scenario 6: "enum before parent
// before child").
func finalizeDependencies(forest *schema.Forest) {
	byTypeOID := make(map[uint32]schema.QualifiedIdentifier, len(forest.Enums)+len(forest.Domains))
	for _, e := range forest.Enums {
		byTypeOID[e.SourceOID()] = e.Identifier()
	}
	for _, d := range forest.Domains {
		byTypeOID[d.SourceOID()] = d.Identifier()
	}
	if len(byTypeOID) == 0 {
		return
	}

	for _, t := range forest.Tables {
		for _, col := range t.Columns {
			if dep, ok := byTypeOID[col.Type.OID]; ok {
				t.AddDependency(dep)
			}
		}
	}
}
