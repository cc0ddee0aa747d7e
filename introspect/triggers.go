package introspect

import (
	"context"
	"fmt"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// introspectTriggers reads pg_trigger for user-defined triggers,
// excluding the internal triggers PostgreSQL creates to back FK
// constraints (tgisinternal).
func introspectTriggers(ctx context.Context, conn *pgwire.Conn, opts Options) ([]*schema.Trigger, error) {
	sql := fmt.Sprintf(`
		SELECT n.nspname, t.tgname, tc.relname, tns.nspname, tfn.proname,
		       t.tgtype, pg_get_triggerdef(t.oid, true),
		       pg_get_expr(t.tgqual, t.tgrelid)
		FROM pg_trigger t
		JOIN pg_class tc ON tc.oid = t.tgrelid
		JOIN pg_namespace n ON n.oid = tc.relnamespace
		JOIN pg_proc tfn ON tfn.oid = t.tgfoid
		JOIN pg_namespace tns ON tns.oid = tfn.pronamespace
		WHERE NOT t.tgisinternal AND %s
		ORDER BY n.nspname, tc.relname, t.tgname;`, schemaFilterSQL(opts))

	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return nil, err
	}

	var out []*schema.Trigger
	for _, r := range resultRows(results) {
		schemaName := string(r.Values[0])
		name := string(r.Values[1])
		tableName := string(r.Values[2])
		fnSchema := string(r.Values[3])
		fnName := string(r.Values[4])
		tgtype := uint16(mustAtoi(string(r.Values[5])))

		tableQID := schema.QualifyIdentifier(schemaName, tableName)
		fnQID := schema.QualifyIdentifier(fnSchema, fnName)

		tr := &schema.Trigger{
			SchemaName: schemaName,
			Name:       name,
			Table:      tableQID,
			Function:   fnQID,
			Timing:     triggerTiming(tgtype),
			Events:     triggerEvents(tgtype),
			Condition:  valueOrEmpty(r.Values[7]),
		}
		qid := schema.QualifyIdentifier(schemaName, tableName+"."+name)
		tr.SetIdentity(qid, []schema.QualifiedIdentifier{tableQID, fnQID})
		out = append(out, tr)
	}
	return out, nil
}

// triggerTiming/triggerEvents decode pg_trigger.tgtype's bitmask, per
// PostgreSQL's trigger.h: bit 0 = ROW vs STATEMENT, bit 1 = BEFORE, bit 6
// = INSTEAD OF, bits 2-4 = INSERT/DELETE/UPDATE, bit 5 = TRUNCATE.
func triggerTiming(tgtype uint16) schema.TriggerTiming {
	switch {
	case tgtype&(1<<6) != 0:
		return schema.TimingInsteadOf
	case tgtype&(1<<1) != 0:
		return schema.TimingBefore
	default:
		return schema.TimingAfter
	}
}

func triggerEvents(tgtype uint16) []schema.TriggerEvent {
	var out []schema.TriggerEvent
	if tgtype&(1<<2) != 0 {
		out = append(out, schema.EventInsert)
	}
	if tgtype&(1<<3) != 0 {
		out = append(out, schema.EventDelete)
	}
	if tgtype&(1<<4) != 0 {
		out = append(out, schema.EventUpdate)
	}
	if tgtype&(1<<5) != 0 {
		out = append(out, schema.EventTruncate)
	}
	return out
}
