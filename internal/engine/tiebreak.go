package engine

import (
	"slices"

	"github.com/shopspring/decimal"
)

// TieBreakEvent records one invocation of the Tie-Break Arbiter, appended
// to the round record it occurred in (spec.md §4.4).
type TieBreakEvent struct {
	Round          int
	CandidatesInTie []CandidateID
	WinnerOfTiebreak CandidateID
	Method         string
}

// RoundHistory is the read-only view into prior rounds' tallies the
// previous_round_counts_then_random mode needs (spec.md §4.4). The Round
// Engine implements this over its own accumulated RoundRecords.
type RoundHistory interface {
	// TallyAt returns the tally a candidate was counted with in the given
	// round (1-based, before that round's transfers), and whether that
	// round exists yet.
	TallyAt(round int, id CandidateID) (decimal.Decimal, bool)
}

// arbiter is the pluggable Tie-Break Arbiter (spec.md §4.4). It is a single
// capability - resolve(tied) -> ordered - selected by rule configuration,
// matching spec.md §9's "single-method abstraction with several
// implementations" design note, and grounded on the teacher's method
// interface pattern (vote/methods.go).
type arbiter struct {
	mode        TiebreakMode
	permutation []CandidateID // position i = the candidate ranked i-th "safest from elimination"
	history     RoundHistory
}

// NewArbiter builds the Tie-Break Arbiter selected by rules.TiebreakMode.
// The permutation for random/generate_permutation modes is computed once
// here, at engine start, from rules.RandomSeed, and held for the whole
// tabulation (spec.md §4.4).
func NewArbiter(rules *Rules, registry *Registry, history RoundHistory) (*arbiter, error) {
	a := &arbiter{mode: rules.TiebreakMode, history: history}

	switch rules.TiebreakMode {
	case TiebreakRandom, TiebreakGeneratePermutation, TiebreakPreviousRoundCountsThenRandom:
		order := permutationFromSeed(rules.RandomSeed, registry.Len())
		a.permutation = make([]CandidateID, len(order))
		for i, idx := range order {
			a.permutation[i] = CandidateID(idx)
		}

	case TiebreakUsePermutation:
		a.permutation = make([]CandidateID, 0, len(rules.Permutation))
		for _, name := range rules.Permutation {
			id, ok := registry.Lookup(normalizeName(name))
			if !ok {
				return nil, newMessageError(ErrInconsistentRules, "permutation names unknown candidate %q", name)
			}
			a.permutation = append(a.permutation, id)
		}

	case TiebreakStopCountingAndAsk:
		// no precomputation needed; Break always fails.
	}

	return a, nil
}

// permutationRank returns the position of id within a's fixed permutation;
// lower means safer from elimination, so among tied candidates the one with
// the highest position is eliminated first. It is also the final
// deterministic fallback once round-history comparisons are exhausted.
func (a *arbiter) permutationRank(id CandidateID) int {
	return slices.Index(a.permutation, id)
}

// Break orders tied candidates from "eliminate first" (index 0) to
// "eliminate last" (end of slice) and records the TieBreakEvent describing
// how the order was decided. The winner of the tie-break (the candidate
// saved from elimination, i.e. the last element) is recorded as
// WinnerOfTiebreak.
func (a *arbiter) Break(round int, tied []CandidateID) ([]CandidateID, TieBreakEvent, error) {
	if len(tied) < 2 {
		panic("Break called with fewer than 2 tied candidates")
	}

	ordered := slices.Clone(tied)

	switch a.mode {
	case TiebreakStopCountingAndAsk:
		return nil, TieBreakEvent{}, TieError{Round: round, Candidates: slices.Clone(tied)}

	case TiebreakRandom, TiebreakGeneratePermutation, TiebreakUsePermutation:
		slices.SortFunc(ordered, func(x, y CandidateID) int {
			return a.permutationRank(y) - a.permutationRank(x)
		})
		event := TieBreakEvent{
			Round:            round,
			CandidatesInTie:  slices.Clone(tied),
			WinnerOfTiebreak: ordered[len(ordered)-1],
			Method:           methodName(a.mode),
		}
		return ordered, event, nil

	case TiebreakPreviousRoundCountsThenRandom:
		ordered = a.breakByHistory(round, ordered)
		event := TieBreakEvent{
			Round:            round,
			CandidatesInTie:  slices.Clone(tied),
			WinnerOfTiebreak: ordered[len(ordered)-1],
			Method:           methodName(a.mode),
		}
		return ordered, event, nil

	default:
		return nil, TieBreakEvent{}, InvariantViolationError{Detail: "unknown tiebreak mode"}
	}
}

// breakByHistory compares tied candidates by their tally at round-1, then
// round-2, ... down to round 1; any subgroup still tied after round 1 is
// broken by permutation position (spec.md §4.4: "ties remaining at round 0
// break by seeded pseudo-random draw" - the fixed permutation IS that
// seeded draw, computed once from rules.RandomSeed).
func (a *arbiter) breakByHistory(currentRound int, tied []CandidateID) []CandidateID {
	groups := [][]CandidateID{slices.Clone(tied)}

	for r := currentRound - 1; r >= 1; r-- {
		var next [][]CandidateID
		for _, group := range groups {
			if len(group) < 2 {
				next = append(next, group)
				continue
			}
			next = append(next, a.splitByTally(r, group)...)
		}
		groups = next
	}

	var ordered []CandidateID
	for _, group := range groups {
		if len(group) > 1 {
			slices.SortFunc(group, func(x, y CandidateID) int {
				return a.permutationRank(y) - a.permutationRank(x)
			})
		}
		ordered = append(ordered, group...)
	}
	return ordered
}

// splitByTally partitions group into ascending-tally subgroups at round r,
// preserving group's relative order within each subgroup.
func (a *arbiter) splitByTally(r int, group []CandidateID) [][]CandidateID {
	type scored struct {
		id    CandidateID
		tally decimal.Decimal
	}
	scoredGroup := make([]scored, len(group))
	for i, id := range group {
		tally, ok := a.history.TallyAt(r, id)
		if !ok {
			tally = decimal.Zero
		}
		scoredGroup[i] = scored{id: id, tally: tally}
	}
	slices.SortStableFunc(scoredGroup, func(x, y scored) int {
		return x.tally.Cmp(y.tally)
	})

	var out [][]CandidateID
	for i := 0; i < len(scoredGroup); {
		j := i + 1
		for j < len(scoredGroup) && scoredGroup[j].tally.Equal(scoredGroup[i].tally) {
			j++
		}
		sub := make([]CandidateID, 0, j-i)
		for _, s := range scoredGroup[i:j] {
			sub = append(sub, s.id)
		}
		out = append(out, sub)
		i = j
	}
	return out
}

func methodName(mode TiebreakMode) string {
	switch mode {
	case TiebreakRandom:
		return "random"
	case TiebreakGeneratePermutation:
		return "generate_permutation"
	case TiebreakUsePermutation:
		return "use_permutation"
	case TiebreakPreviousRoundCountsThenRandom:
		return "previous_round_counts_then_random"
	case TiebreakStopCountingAndAsk:
		return "stop_counting_and_ask"
	default:
		return "unknown"
	}
}
