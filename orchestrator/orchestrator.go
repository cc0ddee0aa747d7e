// Package orchestrator implements the Copy Orchestrator (spec.md §4.5,
// component E): plan → pre-data → data → post-data, with a bounded
// worker pool over the data phase and differential-resume bookkeeping.
// Grounded on the phase state machine and zerolog phase-transition
// logging of
// _examples/other_examples/9f95e1fe_joaofoltran-pg-migrator__internal-pipeline-pipeline.go.go
// and the parallel table-copy worker pool of
// _examples/other_examples/5f827f1f_joaofoltran-pg-migrator__internal-migration-snapshot-snapshot.go.go,
// generalized from a WaitGroup-over-a-closed-channel pool to
// golang.org/x/sync/errgroup so a worker's error cancels its siblings.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/elefant-sync/elefant/datapipe"
	"github.com/elefant-sync/elefant/elefantconfig"
	"github.com/elefant-sync/elefant/elefanterrors"
	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/schema"
)

// SourceFactory and SinkFactory mint one Source/Sink per data-phase
// worker, each owning its own connection (spec.md §4.5: "each worker
// holds exactly one source connection and one sink connection").
type SourceFactory func(ctx context.Context) (datapipe.Source, error)
type SinkFactory func(ctx context.Context) (datapipe.Sink, error)

// Orchestrator runs the four-phase copy pipeline of spec.md §4.5 over a
// schema.Forest already built by introspect.Introspect.
type Orchestrator struct {
	RunID string

	Opts   elefantconfig.RunOptions
	Logger zerolog.Logger

	NewSource SourceFactory
	NewSink   SinkFactory

	// DDLSink is held exclusively by the orchestrator across pre-data and
	// post-data (spec.md §4.5: "the orchestrator owns the single sink
	// connection used for pre-data and post-data DDL").
	DDLSink datapipe.Sink

	// MarkerConn, when non-nil, is the live PostgreSQL connection the
	// orchestrator uses to read/write _elefant_sync_state (spec.md §6.3).
	// It is nil when the sink is a SQL file: differential resume has no
	// meaning without a queryable target, so Opts.Differential is ignored
	// in that configuration.
	MarkerConn *pgwire.Conn
}

// New constructs an Orchestrator with a fresh run ID (spec.md §9:
// "the run-id is generated at orchestrator construction").
func New(opts elefantconfig.RunOptions, logger zerolog.Logger, newSource SourceFactory, newSink SinkFactory, ddlSink datapipe.Sink, markerConn *pgwire.Conn) (*Orchestrator, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: generate run id: %w", err)
	}
	return &Orchestrator{
		RunID:      id.String(),
		Opts:       opts,
		Logger:     logger.With().Str("component", "orchestrator").Str("run_id", id.String()).Logger(),
		NewSource:  newSource,
		NewSink:    newSink,
		DDLSink:    ddlSink,
		MarkerConn: markerConn,
	}, nil
}

// Run executes plan, pre-data, data, and post-data as hard barriers
// (spec.md §5).
func (o *Orchestrator) Run(ctx context.Context, forest *schema.Forest) error {
	if o.Opts.Differential && o.MarkerConn != nil {
		if err := datapipe.EnsureSyncStateTable(ctx, o.MarkerConn); err != nil {
			return err
		}
	}

	plan, err := o.planPhase(ctx, forest)
	if err != nil {
		return err
	}
	o.Logger.Info().Int("tables", len(plan.tables)).Int("chunks", len(plan.items)).Msg("plan complete")

	if err := o.preDataPhase(ctx, forest); err != nil {
		return elefanterrors.New(elefanterrors.PlanError, "", "pre-data", err)
	}
	o.Logger.Info().Msg("pre-data DDL applied")

	if err := o.dataPhase(ctx, plan); err != nil {
		return err
	}
	o.Logger.Info().Msg("data phase complete")

	if err := o.postDataPhase(ctx, forest); err != nil {
		return err
	}
	o.Logger.Info().Msg("post-data DDL applied")

	return nil
}
