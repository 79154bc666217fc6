package engine

// CandidateID is the small-integer identity assigned to a candidate once the
// registry closes at the start of round 1.
type CandidateID int

// CandidateStatus is a candidate's current continuation state.
type CandidateStatus int

const (
	// Continuing candidates are still eligible to receive votes.
	Continuing CandidateStatus = iota
	// Elected candidates have crossed threshold (or are the sole
	// remaining candidate under single-seat rules).
	Elected
	// Eliminated candidates were removed by the Round Engine.
	Eliminated
	// Excluded candidates were removed before round 1 by rule
	// configuration; they never accrue votes.
	Excluded
)

func (s CandidateStatus) String() string {
	switch s {
	case Continuing:
		return "continuing"
	case Elected:
		return "elected"
	case Eliminated:
		return "eliminated"
	case Excluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// CandidateState is the mutable per-candidate continuation record the Round
// Engine advances each round.
type CandidateState struct {
	ID             CandidateID
	Name           string
	Status         CandidateStatus
	ElectedRound   int // 0 if not elected
	EliminatedRound int // 0 if not eliminated
}

// Registry is the closed candidate list. It is built once, before round 1,
// and never regains new entries afterward - only CandidateState.Status
// changes during tabulation.
type Registry struct {
	order []CandidateID
	byID  map[CandidateID]*CandidateState
	byName map[string]CandidateID
}

// NewRegistry builds a closed candidate registry from the ordered
// candidateNames rule list, marking any name present in excludedCandidates
// as Excluded before round 1 begins (spec.md §3, CandidateState).
func NewRegistry(names []string, excluded []string) *Registry {
	excludedSet := make(map[string]bool, len(excluded))
	for _, n := range excluded {
		excludedSet[normalizeName(n)] = true
	}

	r := &Registry{
		byID:   make(map[CandidateID]*CandidateState, len(names)),
		byName: make(map[string]CandidateID, len(names)),
	}
	for i, name := range names {
		id := CandidateID(i)
		status := Continuing
		if excludedSet[normalizeName(name)] {
			status = Excluded
		}
		r.byID[id] = &CandidateState{ID: id, Name: name, Status: status}
		r.byName[normalizeName(name)] = id
		r.order = append(r.order, id)
	}
	return r
}

// Lookup resolves a candidate name to its id. name is NFC-normalized before
// comparison, matching how registration keys byName (spec.md §11 domain
// stack: golang.org/x/text/unicode/norm), so a ballot using a different
// Unicode composition of the same visible name still matches. The second
// return value is false if the name is not in the closed registry.
func (r *Registry) Lookup(name string) (CandidateID, bool) {
	id, ok := r.byName[normalizeName(name)]
	return id, ok
}

// State returns the mutable state record for a candidate id.
func (r *Registry) State(id CandidateID) *CandidateState {
	return r.byID[id]
}

// All returns candidate ids in registration order.
func (r *Registry) All() []CandidateID {
	return r.order
}

// Continuing returns the ids currently in Continuing status, in
// registration order.
func (r *Registry) Continuing() []CandidateID {
	out := make([]CandidateID, 0, len(r.order))
	for _, id := range r.order {
		if r.byID[id].Status == Continuing {
			out = append(out, id)
		}
	}
	return out
}

// Name returns the registered name for a candidate id.
func (r *Registry) Name(id CandidateID) string {
	return r.byID[id].Name
}

// Len returns the number of registered candidates (including excluded
// ones), used for the round-count safety bound (spec.md §4.3 step 6).
func (r *Registry) Len() int {
	return len(r.order)
}
