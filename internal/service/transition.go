package service

import (
	"github.com/iliyamo/golf-ops/internal/apperr"
	"github.com/iliyamo/golf-ops/internal/statemachine"
)

// move describes one bulk status step over a set of entities.
type move[S ~string] struct {
	From S
	To   S
	// Done lists statuses that count as already advanced; ids found in
	// one of them are left alone (a co-caddy got there first).
	Done []S
	// Lenient leaves every id that is not in From untouched instead of
	// treating it as a concurrent modification.
	Lenient bool
}

// applyTransition checks the From -> To edge against table, resolves
// which of ids still need the step from their locked statuses, and runs
// the guarded update.  The update must touch exactly the ids that were
// in From when they were read, otherwise the transaction is aborted with
// a ConflictError.
func applyTransition[S ~string](
	table statemachine.Table[S],
	entity string,
	ids []uint64,
	current map[uint64]S,
	m move[S],
	update func(ids []uint64, from []S, to S) (int64, error),
) error {
	if len(ids) == 0 {
		return nil
	}
	var edgeID uint64
	if len(ids) == 1 {
		edgeID = ids[0]
	}
	if err := table.Check(edgeID, m.From, m.To); err != nil {
		return err
	}

	targets := make([]uint64, 0, len(ids))
	for _, id := range ids {
		st, ok := current[id]
		if !ok {
			return apperr.NotFound(entity, id)
		}
		switch {
		case st == m.From:
			targets = append(targets, id)
		case contains(m.Done, st), m.Lenient:
		default:
			// Left in the target set so the guarded update reports the
			// mismatch through its row count.
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	n, err := update(targets, []S{m.From}, m.To)
	if err != nil {
		return err
	}
	return apperr.CheckModified(entity+"s", len(targets), n)
}

func contains[S comparable](set []S, v S) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
