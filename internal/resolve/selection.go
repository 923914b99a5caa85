package resolve

import (
	"container/heap"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// requirement records one edge in the dependency graph: `from` requires
// `to` to satisfy `constraint`. "root" requirements have a zero From.
type requirement struct {
	From       uuid.UUID
	FromName   string
	To         uuid.UUID
	Constraint *semver.Constraints
	Text       string
}

// selection tracks, for each identifier, the set of requirements currently
// imposed on it and which version (if any) is presently chosen. Grounded
// on the teacher's selection type (selection.go): a slice of chosen atoms
// plus a map from identifier to the requirements selecting it.
type selection struct {
	chosen map[uuid.UUID]Solution
	order  []uuid.UUID // discovery order, for deterministic tie-breaks
	reqs   map[uuid.UUID][]requirement
}

func newSelection() *selection {
	return &selection{
		chosen: make(map[uuid.UUID]Solution),
		reqs:   make(map[uuid.UUID][]requirement),
	}
}

func (s *selection) addRequirement(r requirement) {
	if _, seen := s.reqs[r.To]; !seen {
		s.order = append(s.order, r.To)
	}
	s.reqs[r.To] = append(s.reqs[r.To], r)
}

func (s *selection) removeRequirementsFrom(from uuid.UUID) {
	for id, rs := range s.reqs {
		kept := rs[:0]
		for _, r := range rs {
			if r.From != from {
				kept = append(kept, r)
			}
		}
		s.reqs[id] = kept
	}
}

// constraintFor intersects every requirement currently imposed on id.
func (s *selection) constraintFor(id uuid.UUID) (*semver.Constraints, bool) {
	rs := s.reqs[id]
	if len(rs) == 0 {
		return nil, false
	}
	texts := make([]string, 0, len(rs))
	for _, r := range rs {
		texts = append(texts, r.Text)
	}
	combined := texts[0]
	for _, t := range texts[1:] {
		combined += ", " + t
	}
	c, err := semver.NewConstraint(combined)
	if err != nil {
		// Individually-valid constraints always compose into a valid
		// comma-joined Masterminds/semver expression.
		return nil, false
	}
	return c, true
}

func (s *selection) select_(id uuid.UUID, sol Solution) {
	s.chosen[id] = sol
}

func (s *selection) deselect(id uuid.UUID) {
	delete(s.chosen, id)
}

func (s *selection) isSelected(id uuid.UUID) (Solution, bool) {
	sol, ok := s.chosen[id]
	return sol, ok
}

// unselected is a priority queue of identifiers awaiting a version choice,
// ordered so popping always yields the identifier with the fewest
// remaining candidate versions first — packages with the tightest
// constraints fail fast, shrinking the search tree. Ties break on
// discovery order for determinism (spec.md P5).
type unselected struct {
	ids       []uuid.UUID
	discovery map[uuid.UUID]int
	remaining map[uuid.UUID]int
}

func newUnselected() *unselected {
	return &unselected{discovery: make(map[uuid.UUID]int), remaining: make(map[uuid.UUID]int)}
}

func (u *unselected) Len() int { return len(u.ids) }

func (u *unselected) Less(i, j int) bool {
	ri, rj := u.remaining[u.ids[i]], u.remaining[u.ids[j]]
	if ri != rj {
		return ri < rj
	}
	return u.discovery[u.ids[i]] < u.discovery[u.ids[j]]
}

func (u *unselected) Swap(i, j int) { u.ids[i], u.ids[j] = u.ids[j], u.ids[i] }

func (u *unselected) Push(x interface{}) { u.ids = append(u.ids, x.(uuid.UUID)) }

func (u *unselected) Pop() interface{} {
	old := u.ids
	n := len(old)
	v := old[n-1]
	u.ids = old[:n-1]
	return v
}

func (u *unselected) add(id uuid.UUID, remaining int) {
	if _, exists := u.discovery[id]; exists {
		u.remaining[id] = remaining
		if idx := u.indexOf(id); idx >= 0 {
			heap.Fix(u, idx)
			return
		}
		heap.Push(u, id)
		return
	}
	u.discovery[id] = len(u.discovery)
	u.remaining[id] = remaining
	heap.Push(u, id)
}

func (u *unselected) indexOf(id uuid.UUID) int {
	for i, v := range u.ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (u *unselected) remove(id uuid.UUID) {
	if i := u.indexOf(id); i >= 0 {
		heap.Remove(u, i)
	}
}

// sortedSolutions returns sols ordered by UUID string, so the solver's
// output order is deterministic (spec.md P5).
func sortedSolutions(sols map[uuid.UUID]Solution) []Solution {
	out := make([]Solution, 0, len(sols))
	for _, s := range sols {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID.String() < out[j].UUID.String() })
	return out
}
