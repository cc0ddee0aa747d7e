package datapipe

import (
	"context"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// SyncStateTable is the target-side marker table spec.md §6.3 specifies
// for differential resume. EnsureSyncStateTable creates it when missing;
// the orchestrator calls that once at the start of a differential run.
const SyncStateTable = `public._elefant_sync_state`

const createSyncStateSQL = `
CREATE TABLE IF NOT EXISTS ` + SyncStateTable + ` (
	run_id uuid NOT NULL,
	object_kind text NOT NULL,
	object_identifier text NOT NULL,
	phase text NOT NULL,
	completed_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, object_kind, object_identifier)
);`

// EnsureSyncStateTable creates the marker table if it is missing.
func EnsureSyncStateTable(ctx context.Context, conn *pgwire.Conn) error {
	_, err := conn.QuerySimple(ctx, createSyncStateSQL)
	return err
}

// IsPhaseComplete reports whether any prior run recorded object as
// having completed phase. The lookup deliberately ignores run_id: a
// marker written by an earlier, interrupted run is exactly what
// differential resume is looking for (spec.md §4.5: "tables whose marker
// is present are skipped"), not just markers from the current run.
func IsPhaseComplete(ctx context.Context, conn *pgwire.Conn, kind schema.ObjectKind, identifier schema.QualifiedIdentifier, phase string) (bool, error) {
	sql := `SELECT EXISTS(SELECT 1 FROM ` + SyncStateTable + `
		WHERE object_kind = ` + schema.QuoteLiteral(string(kind)) + `
		  AND object_identifier = ` + schema.QuoteLiteral(string(identifier)) + `
		  AND phase = ` + schema.QuoteLiteral(phase) + `);`
	results, err := conn.QuerySimple(ctx, sql)
	if err != nil {
		return false, err
	}
	rows := resultRows(results)
	if len(rows) == 0 {
		return false, nil
	}
	return string(rows[0].Values[0]) == "t", nil
}

// MarkPhaseComplete upserts a completion marker for object as a single
// statement on conn. It runs in its own implicit transaction; it is not
// part of the transaction that loaded the object's data, which the
// orchestrator runs on a different (worker) connection.
func MarkPhaseComplete(ctx context.Context, conn *pgwire.Conn, runID string, kind schema.ObjectKind, identifier schema.QualifiedIdentifier, phase string) error {
	sql := `INSERT INTO ` + SyncStateTable + ` (run_id, object_kind, object_identifier, phase, completed_at)
		VALUES (` + schema.QuoteLiteral(runID) + `, ` +
		schema.QuoteLiteral(string(kind)) + `, ` +
		schema.QuoteLiteral(string(identifier)) + `, ` +
		schema.QuoteLiteral(phase) + `, now())
		ON CONFLICT (run_id, object_kind, object_identifier)
		DO UPDATE SET phase = excluded.phase, completed_at = excluded.completed_at;`
	_, err := conn.QuerySimple(ctx, sql)
	return err
}
