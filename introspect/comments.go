package introspect

import (
	"context"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// attachComments reads pg_description, keyed by (classoid, objoid,
// objsubid) per spec.md §4.3, and sets Comment() on every table,
// sequence, enum, and domain it can match by source OID. Column-level
// comments (non-zero objsubid) are not modeled as a first-class IR field
// (spec.md §3.2 gives comment only at the object level) and are skipped.
func attachComments(ctx context.Context, conn *pgwire.Conn, forest *schema.Forest) error {
	sql := `
		SELECT d.classoid, d.objoid, d.description
		FROM pg_description d
		WHERE d.objsubid = 0;`

	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return err
	}

	// Catalog OIDs of pg_class (tables, sequences) and pg_type (enums,
	// domains), the two catalogs whose objects carry comments here.
	const pgClassOID, pgTypeOID = 1259, 1247
	type descKey struct{ classOID, objOID uint32 }

	byOID := make(map[descKey]string)
	for _, r := range resultRows(results) {
		key := descKey{uint32(mustAtoi(string(r.Values[0]))), uint32(mustAtoi(string(r.Values[1])))}
		byOID[key] = string(r.Values[2])
	}
	if len(byOID) == 0 {
		return nil
	}

	for _, t := range forest.Tables {
		if c, ok := byOID[descKey{pgClassOID, t.SourceOID()}]; ok {
			t.SetComment(c)
		}
	}
	for _, s := range forest.Sequences {
		if c, ok := byOID[descKey{pgClassOID, s.SourceOID()}]; ok {
			s.SetComment(c)
		}
	}
	for _, e := range forest.Enums {
		if c, ok := byOID[descKey{pgTypeOID, e.SourceOID()}]; ok {
			e.SetComment(c)
		}
	}
	for _, d := range forest.Domains {
		if c, ok := byOID[descKey{pgTypeOID, d.SourceOID()}]; ok {
			d.SetComment(c)
		}
	}
	return nil
}
