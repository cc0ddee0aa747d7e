package introspect

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// Options controls what Introspect discovers.
type Options struct {
	// IncludeSystemSchemas, if false (the default), skips pg_* and
	// information_schema per spec.md §4.3.
	IncludeSystemSchemas bool
	// OnlySchemas, if non-empty, restricts introspection to the named
	// schemas.
	OnlySchemas []string
	Logger      zerolog.Logger
}

// Introspect runs the full catalog sweep described in spec.md §4.3 and
// returns the assembled IR. Any catalog query failure aborts the run and
// is returned as that query's own error, not wrapped; only a server
// version string that cannot be parsed is reported as
// elefanterrors.IntrospectionMissing. A failure of the TimescaleDB
// queries is logged as a warning and the run continues without
// hypertables.
func Introspect(ctx context.Context, conn *pgwire.Conn, opts Options) (*schema.Forest, error) {
	dialect, err := DetectDialect(ctx, conn)
	if err != nil {
		return nil, err
	}

	forest := &schema.Forest{}

	schemas, err := introspectSchemas(ctx, conn, opts)
	if err != nil {
		return nil, err
	}
	forest.Schemas = schemas

	tables, err := introspectTables(ctx, conn, opts, dialect)
	if err != nil {
		return nil, err
	}
	forest.Tables = tables

	if err := introspectConstraints(ctx, conn, opts, forest); err != nil {
		return nil, err
	}
	if err := introspectIndexes(ctx, conn, opts, forest); err != nil {
		return nil, err
	}
	if err := introspectInheritance(ctx, conn, forest); err != nil {
		return nil, err
	}

	sequences, err := introspectSequences(ctx, conn, opts)
	if err != nil {
		return nil, err
	}
	forest.Sequences = sequences

	views, err := introspectViews(ctx, conn, opts)
	if err != nil {
		return nil, err
	}
	forest.Views = views

	functions, err := introspectFunctions(ctx, conn, opts)
	if err != nil {
		return nil, err
	}
	forest.Functions = functions

	triggers, err := introspectTriggers(ctx, conn, opts)
	if err != nil {
		return nil, err
	}
	forest.Triggers = triggers

	enums, domains, err := introspectEnumsAndDomains(ctx, conn, opts)
	if err != nil {
		return nil, err
	}
	forest.Enums = enums
	forest.Domains = domains
	finalizeDependencies(forest)

	extensions, err := introspectExtensions(ctx, conn)
	if err != nil {
		return nil, err
	}
	forest.Extensions = extensions

	if dialect.HasTimescaleDB {
		hypertables, err := introspectHypertables(ctx, conn, opts, dialect)
		if err != nil {
			opts.Logger.Warn().Err(err).Msg("timescaledb introspection failed, continuing without hypertables")
		} else {
			forest.Hypertables = hypertables
			for _, h := range hypertables {
				for _, agg := range h.ContinuousAggregates {
					opts.Logger.Warn().Str("view", string(agg.View)).Msg("continuous aggregate copied as-is; source rows purged from its hypertable are not detected")
				}
			}
		}
	}

	if err := attachComments(ctx, conn, forest); err != nil {
		return nil, err
	}

	return forest, nil
}

// isSystemSchema reports whether name is one elefant skips by default
// (spec.md §4.3: "skip system schemas unless explicitly requested").
func isSystemSchema(name string, opts Options) bool {
	if opts.IncludeSystemSchemas {
		return false
	}
	if name == "information_schema" {
		return true
	}
	return len(name) >= 3 && name[:3] == "pg_"
}

func schemaFilterSQL(opts Options) string {
	filter := "n.nspname NOT IN ('pg_catalog', 'pg_toast', 'information_schema') AND n.nspname NOT LIKE 'pg\\_%'"
	if opts.IncludeSystemSchemas {
		filter = "n.nspname NOT IN ('pg_catalog', 'pg_toast')"
	}
	if len(opts.OnlySchemas) > 0 {
		list := ""
		for i, s := range opts.OnlySchemas {
			if i > 0 {
				list += ", "
			}
			list += schema.QuoteLiteral(s)
		}
		filter += " AND n.nspname IN (" + list + ")"
	}
	return filter
}
