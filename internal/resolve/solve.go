package resolve

import (
	"container/heap"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/depotpm/depot/internal/depoterr"
	"github.com/depotpm/depot/internal/semverx"
)

// frame is one entry on the backtracking stack: the identifier that was
// selected, the version queue it was drawn from, and the requirements that
// existed on other nodes before this selection's own dependencies were
// added (so a backtrack can precisely undo them).
type frame struct {
	id    uuid.UUID
	vq    *versionQueue
	added []uuid.UUID // identifiers first discovered while expanding this selection
}

// Solve runs the resolver: chronologically backtracking,
// highest-version-first search, grounded on the teacher's solver.go main
// loop (selection via priority queue, version queue per node, failure
// triggers a pop-and-retry rather than a full restart). There is no
// arc-consistency pre-pass: candidate versions are only pruned by the
// constraints and preservation filters applied in versionQueueFor.
func Solve(req Request, reg Registry) (*Result, *Conflict, error) {
	sel := newSelection()
	unsel := newUnselected()
	heap.Init(unsel)

	fixedByID := make(map[uuid.UUID]Fixed, len(req.Fixed))
	for _, f := range req.Fixed {
		fixedByID[f.UUID] = f
		sel.select_(f.UUID, Solution{UUID: f.UUID, Name: f.Name, TreeHash: f.TreeHash, Repo: f.Repo})
	}

	for name, id := range req.RootDeps {
		if _, fixed := fixedByID[id]; fixed {
			continue
		}
		text := "*"
		if c, ok := req.RootCompat[name]; ok {
			text = c.String()
		}
		constraint, err := semver.NewConstraint(text)
		if err != nil {
			return nil, nil, depoterr.Wrap(depoterr.KindUserInput, err, "invalid compat expression for "+name)
		}
		sel.addRequirement(requirement{FromName: "root", To: id, Constraint: constraint, Text: text})
		enqueue(reg, unsel, sel, id)
	}

	var stack []frame

	for unsel.Len() > 0 {
		id := heap.Pop(unsel).(uuid.UUID)
		if _, already := sel.isSelected(id); already {
			continue
		}

		vq, err := versionQueueFor(reg, id, sel, req)
		if err != nil {
			return nil, nil, err
		}

		ok, conflict, added, err := tryAdvance(reg, sel, unsel, id, vq)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			// Backtrack: unwind frames until one yields another candidate.
			for {
				if conflict == nil {
					conflict = buildConflict(sel, id, reg)
				}
				if len(stack) == 0 {
					return nil, conflict, nil
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				unwind(sel, unsel, top)

				ok2, conflict2, added2, err2 := tryAdvance(reg, sel, unsel, top.id, top.vq)
				if err2 != nil {
					return nil, nil, err2
				}
				if ok2 {
					stack = append(stack, frame{id: top.id, vq: top.vq, added: added2})
					unsel.add(id, 0) // retry the original id with the now-changed graph
					break
				}
				conflict = conflict2
			}
			continue
		}

		stack = append(stack, frame{id: id, vq: vq, added: added})
	}

	return &Result{Solutions: sortedSolutions(sel.chosen)}, nil, nil
}

// enqueue adds id to the frontier if it isn't already selected or queued.
func enqueue(reg Registry, unsel *unselected, sel *selection, id uuid.UUID) {
	if _, ok := sel.isSelected(id); ok {
		return
	}
	unsel.add(id, remainingEstimate(reg, id))
}

func remainingEstimate(reg Registry, id uuid.UUID) int {
	versions, err := reg.VersionsOf(id)
	if err != nil {
		return 1 << 30
	}
	return len(versions)
}

func versionQueueFor(reg Registry, id uuid.UUID, sel *selection, req Request) (*versionQueue, error) {
	all, err := reg.VersionsOf(id)
	if err != nil {
		return nil, depoterr.Wrap(depoterr.KindRegistry, err, "listing versions")
	}
	constraint, _ := sel.constraintFor(id)
	var filtered []*semver.Version
	for _, v := range all {
		if constraint != nil && !constraint.Check(v) {
			continue
		}
		admissible, err := admissibleUnderPreservation(reg, id, v, req)
		if err != nil {
			return nil, err
		}
		if !admissible {
			continue
		}
		filtered = append(filtered, v)
	}
	return newVersionQueue(id, filtered, preferredVersion(id, req)), nil
}

// admissibleUnderPreservation applies the hard constraints spec.md §4.C's
// stricter preservation tiers impose on candidate v for id, beyond ordinary
// compat-constraint checking:
//
//   - ALL_INSTALLED restricts every node (direct or not) to versions already
//     present in the content store.
//   - DIRECT pins a direct dependency to exactly its manifest-recorded
//     version; indirect dependencies are unconstrained.
//   - SEMVER restricts a direct dependency's movement to versions
//     semverx.CompatibleWithin its manifest-recorded version: the same
//     major at or above 1.0.0, the same minor below it (the bit-exact
//     pre-1.0 rule from §9).
//
// A node with no recorded installed version, or not in req.Direct for
// DIRECT/SEMVER, is unconstrained by these tiers; it's a fresh addition that
// ALL/TIERED-style soft preference (preferredVersion) already orders, not a
// preservation target.
func admissibleUnderPreservation(reg Registry, id uuid.UUID, v *semver.Version, req Request) (bool, error) {
	switch req.Level {
	case PreserveAllInstalled:
		if req.InStore == nil {
			return true, nil
		}
		name, err := reg.NameOf(id)
		if err != nil {
			return false, depoterr.Wrap(depoterr.KindRegistry, err, "looking up name")
		}
		treeHash, err := reg.TreeHashOf(id, v)
		if err != nil {
			return false, depoterr.Wrap(depoterr.KindRegistry, err, "looking up tree hash")
		}
		return req.InStore(id, name, treeHash), nil
	case PreserveDirect:
		installed, ok := req.Installed[id]
		if !ok || !req.Direct[id] {
			return true, nil
		}
		return v.Equal(installed), nil
	case PreserveSemver:
		installed, ok := req.Installed[id]
		if !ok || !req.Direct[id] {
			return true, nil
		}
		return semverx.CompatibleWithin(installed, v), nil
	default:
		return true, nil
	}
}

// preferredVersion returns the manifest-installed version for id when the
// active PreserveLevel says the solver should try it first (spec.md §4.C's
// six preservation tiers).
func preferredVersion(id uuid.UUID, req Request) *semver.Version {
	installed, ok := req.Installed[id]
	if !ok {
		return nil
	}
	switch req.Level {
	case PreserveNone, PreserveSemver:
		return nil
	case PreserveDirect:
		if req.Direct[id] {
			return installed
		}
		return nil
	case PreserveTiered, PreserveTieredInstalled:
		return installed
	default: // ALL_INSTALLED, ALL
		return installed
	}
}

// tryAdvance attempts each remaining candidate in vq, in order, expanding
// its declared dependencies and checking they don't conflict with anything
// already selected. On first admissible candidate it commits the
// selection and returns the newly discovered identifiers; on exhaustion it
// reports failure.
func tryAdvance(reg Registry, sel *selection, unsel *unselected, id uuid.UUID, vq *versionQueue) (bool, *Conflict, []uuid.UUID, error) {
	for !vq.isExhausted() {
		v := vq.current()

		name, err := reg.NameOf(id)
		if err != nil {
			return false, nil, nil, depoterr.Wrap(depoterr.KindRegistry, err, "looking up name")
		}
		treeHash, err := reg.TreeHashOf(id, v)
		if err != nil {
			return false, nil, nil, depoterr.Wrap(depoterr.KindRegistry, err, "looking up tree hash")
		}
		deps, err := reg.DepsOf(id, v)
		if err != nil {
			return false, nil, nil, depoterr.Wrap(depoterr.KindRegistry, err, "looking up deps")
		}
		compat, err := reg.CompatOf(id, v)
		if err != nil {
			return false, nil, nil, depoterr.Wrap(depoterr.KindRegistry, err, "looking up compat")
		}

		if conflicting := checkDepsAllowable(sel, id, deps, compat); conflicting != nil {
			vq.advance(conflicting)
			continue
		}

		sel.select_(id, Solution{UUID: id, Name: name, Version: v, TreeHash: treeHash, Deps: deps})

		var added []uuid.UUID
		for depName, depID := range deps {
			text := "*"
			if c, ok := compat[depName]; ok {
				text = c.String()
			}
			c, cerr := semver.NewConstraint(text)
			if cerr != nil {
				sel.deselect(id)
				return false, nil, nil, depoterr.Wrap(depoterr.KindRegistry, cerr, "invalid compat constraint from "+name)
			}
			if _, wasKnown := sel.reqs[depID]; !wasKnown {
				added = append(added, depID)
			}
			sel.addRequirement(requirement{From: id, FromName: name, To: depID, Constraint: c, Text: text})
			enqueue(reg, unsel, sel, depID)
		}

		return true, nil, added, nil
	}
	return false, nil, nil, nil
}

// checkDepsAllowable reports a non-nil error (the reason to advance past
// this candidate) if admitting it would contradict an already-selected
// dependency's required constraint. Grounded on the teacher's
// checkDepsConstraintsAllowable/checkDepsDisallowsSelected pair
// (satisfy.go), collapsed into one pass since this model's compat
// constraints are always Masterminds/semver ranges (no exact-match atoms).
func checkDepsAllowable(sel *selection, from uuid.UUID, deps map[string]uuid.UUID, compat map[string]*semver.Constraints) error {
	for depName, depID := range deps {
		existing, ok := sel.isSelected(depID)
		if !ok || existing.Version == nil {
			continue
		}
		if c, ok := compat[depName]; ok && !c.Check(existing.Version) {
			return fmt.Errorf("already-selected %s@%s does not satisfy %s's requirement %s", depName, existing.Version, from, c.String())
		}
	}
	return nil
}

// unwind undoes a frame's selection and every requirement/frontier entry
// it introduced, preparing for the frame's versionQueue to be advanced.
func unwind(sel *selection, unsel *unselected, f frame) {
	sel.deselect(f.id)
	sel.removeRequirementsFrom(f.id)
	for _, id := range f.added {
		unsel.remove(id)
		delete(sel.reqs, id)
	}
}

func buildConflict(sel *selection, id uuid.UUID, reg Registry) *Conflict {
	name, _ := reg.NameOf(id)
	c := &Conflict{Target: id, Name: name}
	for _, r := range sel.reqs[id] {
		from := r.FromName
		if from == "" {
			from = "root"
		}
		c.Requirers = append(c.Requirers, ConflictRequirer{From: from, Constraint: r.Text})
	}
	return c
}
