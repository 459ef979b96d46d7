package kill

import "fmt"

// UnkilledMap maps a mutation id to its failed-attempt counter (the round in
// which it is currently eligible).
type UnkilledMap map[int]int

// KilledMap maps a mutation id to the terminal status that killed it.
type KilledMap map[int]ExecutionStatus

// Maps bundles the killed/unkilled bookkeeping and enforces that the two
// stay disjoint and that only kill statuses transfer an id between them
// (spec §4.E step 2, §8 invariant 5, §9's codified semantics).
//
// The driver is single-threaded at the subprocess boundary (spec §5), so
// Maps does no locking of its own.
type Maps struct {
	Killed   KilledMap
	Unkilled UnkilledMap
}

// NewMaps seeds every mutation id in [0, numMutations) as unkilled at round 0.
func NewMaps(numMutations int) *Maps {
	unkilled := make(UnkilledMap, numMutations)
	for id := 0; id < numMutations; id++ {
		unkilled[id] = 0
	}

	return &Maps{
		Killed:   make(KilledMap),
		Unkilled: unkilled,
	}
}

// Commit moves id from Unkilled to Killed with the given status.
//
// It is a programming error to call Commit with a non-kill status, or for an
// id that is not currently unkilled; both panic rather than silently
// corrupting the bookkeeping, since spec §8 invariant 5 must never be
// violated.
func (m *Maps) Commit(id int, status ExecutionStatus) {
	if !status.IsKill() {
		panic(fmt.Sprintf("kill: Commit called with non-kill status %s for mutant %d", status, id))
	}

	if _, ok := m.Unkilled[id]; !ok {
		panic(fmt.Sprintf("kill: Commit called for mutant %d not present in UnkilledMap", id))
	}

	delete(m.Unkilled, id)
	m.Killed[id] = status
}

// IncrementRound records a failed attempt against id, advancing its round by one.
// It is a no-op if id has already been killed.
func (m *Maps) IncrementRound(id int) {
	if _, alreadyKilled := m.Killed[id]; alreadyKilled {
		return
	}

	m.Unkilled[id]++
}

// Total returns |Killed| + |Unkilled|, which must equal NumMutations at all times.
func (m *Maps) Total() int {
	return len(m.Killed) + len(m.Unkilled)
}

// IsKilled reports whether id has a committed kill.
func (m *Maps) IsKilled(id int) bool {
	_, ok := m.Killed[id]

	return ok
}

// IsUnkilled reports whether id is still tracked as unkilled.
func (m *Maps) IsUnkilled(id int) bool {
	_, ok := m.Unkilled[id]

	return ok
}
