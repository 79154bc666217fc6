package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeHistory map[int]map[CandidateID]decimal.Decimal

func (h fakeHistory) TallyAt(round int, id CandidateID) (decimal.Decimal, bool) {
	m, ok := h[round]
	if !ok {
		return decimal.Zero, false
	}
	v, ok := m[id]
	return v, ok
}

func TestArbiterStopCountingAndAsk(t *testing.T) {
	registry := NewRegistry([]string{"A", "B", "C"}, nil)
	rules := &Rules{TiebreakMode: TiebreakStopCountingAndAsk}
	a, err := NewArbiter(rules, registry, nil)
	if err != nil {
		t.Fatalf("NewArbiter: %v", err)
	}

	_, _, err = a.Break(1, []CandidateID{0, 1})
	var tieErr TieError
	if !errors.As(err, &tieErr) {
		t.Fatalf("expected a TieError, got %v", err)
	}
	if tieErr.Round != 1 {
		t.Errorf("expected round 1, got %d", tieErr.Round)
	}
}

func TestArbiterUsePermutation(t *testing.T) {
	registry := NewRegistry([]string{"A", "B", "C"}, nil)
	rules := &Rules{TiebreakMode: TiebreakUsePermutation, Permutation: []string{"C", "A", "B"}}
	a, err := NewArbiter(rules, registry, nil)
	if err != nil {
		t.Fatalf("NewArbiter: %v", err)
	}

	idA, _ := registry.Lookup("A")
	idB, _ := registry.Lookup("B")

	ordered, event, err := a.Break(1, []CandidateID{idA, idB})
	if err != nil {
		t.Fatalf("Break: %v", err)
	}
	// Permutation order is C, A, B: A is safer than B, so B eliminates first.
	if ordered[0] != idB || ordered[1] != idA {
		t.Errorf("expected [B, A] elimination order, got %v", ordered)
	}
	if event.WinnerOfTiebreak != idA {
		t.Errorf("expected A to survive the tiebreak, got %v", event.WinnerOfTiebreak)
	}
}

func TestArbiterUsePermutationUnknownName(t *testing.T) {
	registry := NewRegistry([]string{"A", "B"}, nil)
	rules := &Rules{TiebreakMode: TiebreakUsePermutation, Permutation: []string{"A", "Ghost"}}
	_, err := NewArbiter(rules, registry, nil)
	if err == nil {
		t.Fatalf("expected an error for a permutation naming an unregistered candidate")
	}
}

func TestArbiterPreviousRoundCountsThenRandom(t *testing.T) {
	registry := NewRegistry([]string{"A", "B", "C"}, nil)
	idA, _ := registry.Lookup("A")
	idB, _ := registry.Lookup("B")

	history := fakeHistory{
		2: {idA: decimal.NewFromInt(5), idB: decimal.NewFromInt(3)},
	}

	rules := &Rules{TiebreakMode: TiebreakPreviousRoundCountsThenRandom, RandomSeed: 7}
	a, err := NewArbiter(rules, registry, history)
	if err != nil {
		t.Fatalf("NewArbiter: %v", err)
	}

	ordered, _, err := a.Break(3, []CandidateID{idA, idB})
	if err != nil {
		t.Fatalf("Break: %v", err)
	}
	// B had fewer votes at round 2, so B is eliminated first.
	if ordered[0] != idB {
		t.Errorf("expected B to be eliminated first (lower round-2 tally), got %v", ordered)
	}
}

func TestArbiterRandomIsDeterministicForSameSeed(t *testing.T) {
	registry := NewRegistry([]string{"A", "B", "C", "D"}, nil)
	rules := &Rules{TiebreakMode: TiebreakRandom, RandomSeed: 99}

	a1, err := NewArbiter(rules, registry, nil)
	if err != nil {
		t.Fatalf("NewArbiter: %v", err)
	}
	a2, err := NewArbiter(rules, registry, nil)
	if err != nil {
		t.Fatalf("NewArbiter: %v", err)
	}

	tied := []CandidateID{0, 1, 2, 3}
	ordered1, _, _ := a1.Break(1, tied)
	ordered2, _, _ := a2.Break(1, tied)
	for i := range ordered1 {
		if ordered1[i] != ordered2[i] {
			t.Fatalf("same seed produced different orderings: %v vs %v", ordered1, ordered2)
		}
	}
}
