package engine_test

import (
	"testing"

	"github.com/rcvtab/tabulator/internal/engine"
)

func candidateSlot(name string) engine.RawSlot {
	return engine.RawSlot{Kind: engine.SlotCandidate, Names: []string{name}}
}

func ballot(id string, names ...string) engine.RawBallot {
	slots := make([]engine.RawSlot, len(names))
	for i, n := range names {
		slots[i] = candidateSlot(n)
	}
	return engine.RawBallot{ID: id, Slots: slots}
}

func baseRules(candidates ...string) *engine.Rules {
	return &engine.Rules{
		CandidateNames:     candidates,
		WinnerElectionMode: engine.SingleWinnerMajority,
		NumberOfWinners:    1,
		OvervoteRule:       engine.OvervoteExhaustImmediately,
		TiebreakMode:       engine.TiebreakGeneratePermutation,
		RandomSeed:         42,
		MaxSkippedRanksAllowed: -1,
	}
}

func TestTabulateSingleWinnerMajority(t *testing.T) {
	rules := baseRules("Amy", "Bob", "Cara")
	raw := []engine.RawBallot{
		ballot("1", "Amy", "Bob"),
		ballot("2", "Amy", "Cara"),
		ballot("3", "Bob", "Amy"),
		ballot("4", "Cara", "Bob"),
		ballot("5", "Cara", "Amy"),
	}

	report, err := engine.Tabulate(rules, raw, nil)
	if err != nil {
		t.Fatalf("Tabulate: %v", err)
	}
	if len(report.Winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(report.Winners))
	}
	if len(report.Rounds) == 0 {
		t.Fatalf("expected at least one round")
	}

	// Conservation invariant (spec.md §8 property 1): every round's
	// per-candidate tally plus cumulative exhausted must equal total votes.
	total := len(raw)
	for _, rr := range report.Rounds {
		sum := 0
		for _, v := range rr.PerCandidateTally {
			sum += int(v.IntPart())
		}
		if sum+rr.ExhaustedCount != total {
			t.Errorf("round %d: tally(%d) + exhausted(%d) != total(%d)", rr.RoundNumber, sum, rr.ExhaustedCount, total)
		}
	}
}

func TestTabulateEliminatesLowestEachRound(t *testing.T) {
	rules := baseRules("Amy", "Bob", "Cara", "Dan")
	raw := []engine.RawBallot{
		ballot("1", "Amy"),
		ballot("2", "Amy"),
		ballot("3", "Bob"),
		ballot("4", "Cara", "Amy"),
		ballot("5", "Dan", "Bob"),
	}

	report, err := engine.Tabulate(rules, raw, nil)
	if err != nil {
		t.Fatalf("Tabulate: %v", err)
	}
	if len(report.Rounds) < 2 {
		t.Fatalf("expected multiple elimination rounds, got %d", len(report.Rounds))
	}
	first := report.Rounds[0]
	if len(first.EliminatedThisRound) == 0 {
		t.Errorf("expected round 1 to eliminate a candidate")
	}
}

func TestTabulateMultiSeatHareElectsAllWhenContinuingFitsSeats(t *testing.T) {
	rules := baseRules("Amy", "Bob", "Cara")
	rules.WinnerElectionMode = engine.MultiSeatHare
	rules.NumberOfWinners = 2

	raw := []engine.RawBallot{
		ballot("1", "Amy"),
		ballot("2", "Bob"),
		ballot("3", "Cara"),
	}

	report, err := engine.Tabulate(rules, raw, nil)
	if err != nil {
		t.Fatalf("Tabulate: %v", err)
	}
	if len(report.Winners) != 2 {
		t.Fatalf("expected 2 winners, got %d", len(report.Winners))
	}
}

func TestTabulateOvervoteExhaustsImmediately(t *testing.T) {
	rules := baseRules("Amy", "Bob")
	raw := []engine.RawBallot{
		{ID: "1", Slots: []engine.RawSlot{
			{Kind: engine.SlotOvervote, Names: []string{"Amy", "Bob"}},
		}},
		ballot("2", "Amy"),
		ballot("3", "Bob"),
	}

	report, err := engine.Tabulate(rules, raw, nil)
	if err != nil {
		t.Fatalf("Tabulate: %v", err)
	}
	if len(report.Rounds) == 0 {
		t.Fatalf("expected at least one round")
	}
	if report.Rounds[0].OvervoteCount != 1 {
		t.Errorf("expected 1 overvote exhaustion, got %d", report.Rounds[0].OvervoteCount)
	}
}

func TestTabulateInconsistentRulesRejected(t *testing.T) {
	rules := baseRules("Amy", "Bob")
	rules.NumberOfWinners = 2 // invalid: single-seat mode

	_, err := engine.Tabulate(rules, nil, nil)
	if err == nil {
		t.Fatalf("expected an error for numberOfWinners > 1 under a single-seat mode")
	}
}

func TestTabulateUnknownCandidateFatalByDefault(t *testing.T) {
	rules := baseRules("Amy", "Bob")
	raw := []engine.RawBallot{ballot("1", "Zara")}

	_, err := engine.Tabulate(rules, raw, nil)
	if err == nil {
		t.Fatalf("expected an error for a ballot naming an unregistered candidate")
	}
}

func TestTabulateSingleWinnerPluralityElectsTopTallyOutright(t *testing.T) {
	rules := baseRules("Amy", "Bob", "Cara")
	rules.WinnerElectionMode = engine.SingleWinnerPlurality
	raw := []engine.RawBallot{
		ballot("1", "Amy"),
		ballot("2", "Amy"),
		ballot("3", "Bob"),
		ballot("4", "Cara"),
	}

	report, err := engine.Tabulate(rules, raw, nil)
	if err != nil {
		t.Fatalf("Tabulate: %v", err)
	}
	if len(report.Rounds) != 1 {
		t.Fatalf("expected plurality to resolve in exactly one round, got %d", len(report.Rounds))
	}
	if len(report.Winners) != 1 || report.Rounds[0].PerCandidateTally[report.Winners[0]].IntPart() != 2 {
		t.Fatalf("expected Amy (2 votes, short of a majority of 4) to win outright under plurality, got %+v", report.Winners)
	}
	if len(report.Rounds[0].EliminatedThisRound) != 0 {
		t.Errorf("expected no eliminations under plurality, got %v", report.Rounds[0].EliminatedThisRound)
	}
}

func TestTabulateFirstRoundExhaustionsAreCountedByCause(t *testing.T) {
	rules := baseRules("Amy", "Bob")
	rules.MaxSkippedRanksAllowed = 0
	raw := []engine.RawBallot{
		{ID: "1", Slots: []engine.RawSlot{
			{Kind: engine.SlotOvervote, Names: []string{"Amy", "Bob"}},
		}},
		{ID: "2", Slots: []engine.RawSlot{
			{Kind: engine.SlotUndeclaredWriteIn},
		}},
		{ID: "3", Slots: []engine.RawSlot{
			{Kind: engine.SlotBlank},
			{Kind: engine.SlotBlank},
			candidateSlot("Amy"),
		}},
		ballot("4", "Amy"),
		ballot("5", "Bob"),
	}

	report, err := engine.Tabulate(rules, raw, nil)
	if err != nil {
		t.Fatalf("Tabulate: %v", err)
	}
	first := report.Rounds[0]
	if first.OvervoteCount != 1 {
		t.Errorf("expected 1 overvote exhaustion in round 1, got %d", first.OvervoteCount)
	}
	if first.UndeclaredCount != 1 {
		t.Errorf("expected 1 undeclared-write-in exhaustion in round 1, got %d", first.UndeclaredCount)
	}
	if first.SkippedCount != 1 {
		t.Errorf("expected 1 skipped-rank exhaustion in round 1 (two consecutive blanks, budget 0), got %d", first.SkippedCount)
	}

	total := len(raw)
	sum := 0
	for _, v := range first.PerCandidateTally {
		sum += int(v.IntPart())
	}
	if sum+first.ExhaustedCount != total {
		t.Errorf("round 1: tally(%d) + exhausted(%d) != total(%d)", sum, first.ExhaustedCount, total)
	}
}

func TestTabulateCancelledBetweenRounds(t *testing.T) {
	rules := baseRules("Amy", "Bob", "Cara")
	raw := []engine.RawBallot{
		ballot("1", "Amy"),
		ballot("2", "Bob"),
		ballot("3", "Cara", "Amy"),
	}

	calls := 0
	cancel := func() bool {
		calls++
		return calls > 1
	}

	_, err := engine.Tabulate(rules, raw, cancel)
	if err == nil {
		t.Fatalf("expected cancellation to surface as an error")
	}
}

func weightedBallot(id, name string, weight int) engine.RawBallot {
	return engine.RawBallot{ID: id, Multiplicity: weight, Slots: []engine.RawSlot{candidateSlot(name)}}
}

// TestTabulateBatchEliminationFallsBackToArbiterWhenGroupCouldCatchUp locks
// in spec.md §4.3 step 4: batch elimination may only widen the batch past
// the tied-at-minimum group when the group's cumulative tally stays
// strictly below the next tier. Here A, B, and C tie at 10 (sum 30), which
// is not strictly below the next tier E's 20, so sequentially eliminating
// them could let one absorb the other two's transfers and overtake E - the
// engine must fall back to the arbiter exactly as the non-batch path does,
// never batch-eliminate all three at once.
func TestTabulateBatchEliminationFallsBackToArbiterWhenGroupCouldCatchUp(t *testing.T) {
	rules := baseRules("Amy", "Bob", "Cara", "Dan", "Eve")
	rules.BatchElimination = true
	raw := []engine.RawBallot{
		weightedBallot("a", "Amy", 10),
		weightedBallot("b", "Bob", 10),
		weightedBallot("c", "Cara", 10),
		weightedBallot("d", "Dan", 25),
		weightedBallot("e", "Eve", 20),
	}

	report, err := engine.Tabulate(rules, raw, nil)
	if err != nil {
		t.Fatalf("Tabulate: %v", err)
	}

	first := report.Rounds[0]
	if len(first.EliminatedThisRound) != 1 {
		t.Fatalf("expected exactly one elimination (arbiter fallback), got %v", first.EliminatedThisRound)
	}
	if len(first.TieBreakEvents) != 1 {
		t.Fatalf("expected the arbiter to be invoked once, got %d tie-break events", len(first.TieBreakEvents))
	}
}

// TestTabulateBatchEliminationExtendsPastTieWhenSumCannotCatchUp is the
// contrasting case: A, B, and C tie at 3 (sum 9), strictly below the next
// tier D's 15, so all three are eliminated together with no arbiter call.
// D stays: A through D sum to 24, which is not below E's 20.
func TestTabulateBatchEliminationExtendsPastTieWhenSumCannotCatchUp(t *testing.T) {
	rules := baseRules("Amy", "Bob", "Cara", "Dan", "Eve")
	rules.BatchElimination = true
	raw := []engine.RawBallot{
		weightedBallot("a", "Amy", 3),
		weightedBallot("b", "Bob", 3),
		weightedBallot("c", "Cara", 3),
		weightedBallot("d", "Dan", 15),
		weightedBallot("e", "Eve", 20),
	}

	report, err := engine.Tabulate(rules, raw, nil)
	if err != nil {
		t.Fatalf("Tabulate: %v", err)
	}

	first := report.Rounds[0]
	if len(first.EliminatedThisRound) != 3 {
		t.Fatalf("expected batch elimination to remove Amy, Bob, and Cara but not Dan, got %v", first.EliminatedThisRound)
	}
	if len(first.TieBreakEvents) != 0 {
		t.Fatalf("expected no arbiter invocation when batch elimination resolves the tie, got %d events", len(first.TieBreakEvents))
	}
}
