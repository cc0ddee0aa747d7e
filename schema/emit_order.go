package schema

import (
	"sort"

	"github.com/elefant-sync/elefant/elefanterrors"
)

// EmitOrder topologically sorts f's objects by their DependsOn edges
// using Kahn's algorithm, grounded on the dependency-graph ordering in
// _examples/other_examples/ca1ef074_VardhanThigle-spanner-migration-tool
// (an explicit iterative queue rather than recursive DFS, so a cycle
// surfaces as "nodes stuck with nonzero in-degree" instead of a stack
// overflow). A dependency edge that doesn't resolve to any object in the
// forest is treated as already-satisfied (spec.md's invariant that every
// edge resolves is enforced by the introspector, not re-checked here).
//
// Ties are broken by identifier so output is deterministic across runs,
// which differential-resume's signature comparison depends on.
func EmitOrder(f *Forest) ([]Object, error) {
	objects := f.Objects()
	byID := make(map[QualifiedIdentifier]Object, len(objects))
	for _, o := range objects {
		byID[o.Identifier()] = o
	}

	inDegree := make(map[QualifiedIdentifier]int, len(objects))
	dependents := make(map[QualifiedIdentifier][]QualifiedIdentifier)

	for _, o := range objects {
		id := o.Identifier()
		if _, ok := inDegree[id]; !ok {
			inDegree[id] = 0
		}
		for _, dep := range o.DependsOn() {
			if _, exists := byID[dep]; !exists {
				continue
			}
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []QualifiedIdentifier
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	var order []Object
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		id := ready[0]
		ready = ready[1:]
		order = append(order, byID[id])

		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(objects) {
		var stuck []string
		for id, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, string(id))
			}
		}
		sort.Strings(stuck)
		return nil, elefanterrors.New(elefanterrors.PlanError, joinIdentifiers(stuck), "emit_order", nil)
	}

	return order, nil
}

func joinIdentifiers(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += id
	}
	return out
}
