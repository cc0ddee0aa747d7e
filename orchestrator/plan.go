package orchestrator

import (
	"context"

	"github.com/elefant-sync/elefant/datapipe"
	"github.com/elefant-sync/elefant/schema"
)

// workItem is one (table, slice) pair the data phase must copy.
type workItem struct {
	table *schema.Table
	slice datapipe.TableSlice
}

// plan is the output of planPhase: the flattened chunk list the data
// phase drains, plus per-table chunk counts so completion of the last
// chunk for a table can trigger a differential-resume marker write.
type plan struct {
	tables   []*schema.Table
	items    []workItem
	remaining map[schema.QualifiedIdentifier]int
}

// planPhase lists every table's chunks up front (spec.md §4.5 phase 1:
// "plan enumerates every table's chunks before any worker starts
// copying"), skipping tables a prior interrupted run already finished
// when Opts.Differential is set.
func (o *Orchestrator) planPhase(ctx context.Context, forest *schema.Forest) (*plan, error) {
	p := &plan{remaining: make(map[schema.QualifiedIdentifier]int)}

	planner, err := o.NewSource(ctx)
	if err != nil {
		return nil, err
	}
	defer planner.Close()

	for _, t := range forest.Tables {
		qid := t.Identifier()
		if o.Opts.Differential && o.MarkerConn != nil {
			done, err := datapipe.IsPhaseComplete(ctx, o.MarkerConn, schema.KindTable, qid, "data")
			if err != nil {
				return nil, err
			}
			if done {
				o.Logger.Info().Str("table", string(qid)).Msg("skipping table already marked complete")
				continue
			}
		}

		slices, err := planner.ListChunks(ctx, t, o.Opts.MaxParallelism)
		if err != nil {
			return nil, err
		}
		p.tables = append(p.tables, t)
		p.remaining[qid] = len(slices)
		for _, s := range slices {
			p.items = append(p.items, workItem{table: t, slice: s})
		}
	}

	return p, nil
}
