// Package introspect reads a live PostgreSQL database's catalog tables
// through pgwire and assembles a schema.Forest (spec.md §4.3), one query
// function per catalog concern, grounded on
// _examples/other_examples/8444d62e_skeema-skeema__internal-tengo-introspector.go.go's
// shape (a small coordinating entry point fanning out to one function
// per object kind, dialect-gated by server version).
package introspect

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/elefant-sync/elefant/elefanterrors"
	"github.com/elefant-sync/elefant/pgwire"
)

// Dialect captures the catalog differences elefant must account for
// across supported PostgreSQL major versions (identity columns arrived
// in 10, generated columns in 12, and so on).
type Dialect struct {
	ServerVersion       *semver.Version
	SupportsIdentity    bool // v10+
	SupportsGenerated   bool // v12+
	HasTimescaleDB      bool
	TimescaleDBVersion  *semver.Version
}

// DetectDialect runs `SHOW server_version` and checks pg_extension
// for timescaledb, per spec.md §4.3's "detect server major version and
// choose the catalog dialect."
func DetectDialect(ctx context.Context, conn *pgwire.Conn) (Dialect, error) {
	results, err := conn.QuerySimple(ctx, "SHOW server_version;")
	if err != nil {
		return Dialect{}, err
	}
	raw, err := scalarString(results, "server_version")
	if err != nil {
		return Dialect{}, err
	}

	v, err := parseServerVersion(raw)
	if err != nil {
		return Dialect{}, elefanterrors.New(elefanterrors.IntrospectionMissing, "server_version", "dialect", err)
	}

	d := Dialect{
		ServerVersion:     v,
		SupportsIdentity:  v.Major() >= 10,
		SupportsGenerated: v.Major() >= 12,
	}

	extResults, err := conn.QuerySimple(ctx, "SELECT extversion FROM pg_extension WHERE extname = 'timescaledb';")
	if err != nil {
		return Dialect{}, err
	}
	if len(extResults) > 0 && len(extResults[0].Rows) > 0 {
		d.HasTimescaleDB = true
		if ver, err := semver.NewVersion(string(extResults[0].Rows[0].Values[0])); err == nil {
			d.TimescaleDBVersion = ver
		}
	}

	return d, nil
}

func parseServerVersion(raw string) (*semver.Version, error) {
	// "14.9 (Debian 14.9-1.pgdg120+1)" -> "14.9"
	end := len(raw)
	for i, c := range raw {
		if c == ' ' {
			end = i
			break
		}
	}
	return semver.NewVersion(raw[:end])
}

func scalarString(results []pgwire.SimpleResult, column string) (string, error) {
	if len(results) == 0 || len(results[0].Rows) == 0 {
		return "", fmt.Errorf("introspect: %s: no rows returned", column)
	}
	v := results[0].Rows[0].Values[0]
	if v == nil {
		return "", fmt.Errorf("introspect: %s: NULL value", column)
	}
	return string(v), nil
}
