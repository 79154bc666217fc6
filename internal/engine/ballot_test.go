package engine

import "testing"

func TestNormalizeBallotsBasic(t *testing.T) {
	registry := NewRegistry([]string{"Amy", "Bob"}, nil)
	rules := &Rules{
		CandidateNames:         []string{"Amy", "Bob"},
		MaxSkippedRanksAllowed: -1,
		DuplicateCandidateMode: DuplicateSkip,
	}

	raw := []RawBallot{
		{ID: "1", Slots: []RawSlot{
			{Kind: SlotCandidate, Names: []string{"Amy"}},
			{Kind: SlotCandidate, Names: []string{"Bob"}},
		}},
	}

	normalized, discards, err := NormalizeBallots(registry, rules, raw)
	if err != nil {
		t.Fatalf("NormalizeBallots: %v", err)
	}
	if discards.UnknownCandidate != 0 {
		t.Errorf("unexpected discards: %+v", discards)
	}
	if len(normalized) != 1 || len(normalized[0].Choices) != 2 {
		t.Fatalf("unexpected normalized result: %+v", normalized)
	}
	if normalized[0].Choices[0].Kind != ChoiceCandidate {
		t.Errorf("expected first choice to be a candidate")
	}
}

func TestNormalizeBallotsUnknownCandidateSkip(t *testing.T) {
	registry := NewRegistry([]string{"Amy"}, nil)
	rules := &Rules{
		CandidateNames:        []string{"Amy"},
		AllowUnrecognizedSkip: true,
		MaxSkippedRanksAllowed: -1,
	}

	raw := []RawBallot{{ID: "1", Slots: []RawSlot{
		{Kind: SlotCandidate, Names: []string{"Ghost"}},
	}}}

	normalized, discards, err := NormalizeBallots(registry, rules, raw)
	if err != nil {
		t.Fatalf("NormalizeBallots: %v", err)
	}
	if discards.UnknownCandidate != 1 {
		t.Errorf("expected 1 discard, got %d", discards.UnknownCandidate)
	}
	if len(normalized) != 0 {
		t.Errorf("expected the ballot to be discarded, not normalized")
	}
}

func TestNormalizeBallotsUnknownCandidateFatal(t *testing.T) {
	registry := NewRegistry([]string{"Amy"}, nil)
	rules := &Rules{CandidateNames: []string{"Amy"}, MaxSkippedRanksAllowed: -1}

	raw := []RawBallot{{ID: "1", Slots: []RawSlot{
		{Kind: SlotCandidate, Names: []string{"Ghost"}},
	}}}

	_, _, err := NormalizeBallots(registry, rules, raw)
	if err == nil {
		t.Fatalf("expected an UnknownCandidateError")
	}
}

func TestNormalizeBallotsDuplicateModes(t *testing.T) {
	registry := NewRegistry([]string{"Amy", "Bob", "Cara"}, nil)

	makeRaw := func() []RawBallot {
		return []RawBallot{{ID: "1", Slots: []RawSlot{
			{Kind: SlotCandidate, Names: []string{"Amy"}},
			{Kind: SlotCandidate, Names: []string{"Amy"}},
			{Kind: SlotCandidate, Names: []string{"Bob"}},
		}}}
	}

	t.Run("skip", func(t *testing.T) {
		rules := &Rules{CandidateNames: []string{"Amy", "Bob", "Cara"}, DuplicateCandidateMode: DuplicateSkip, MaxSkippedRanksAllowed: -1}
		normalized, _, err := NormalizeBallots(registry, rules, makeRaw())
		if err != nil {
			t.Fatalf("NormalizeBallots: %v", err)
		}
		if len(normalized[0].Choices) != 3 {
			t.Fatalf("expected 3 choices (duplicate replaced with blank), got %d", len(normalized[0].Choices))
		}
		if normalized[0].Choices[1].Kind != ChoiceBlank {
			t.Errorf("expected duplicate slot to become blank")
		}
	})

	t.Run("exhaust_ballot", func(t *testing.T) {
		rules := &Rules{CandidateNames: []string{"Amy", "Bob", "Cara"}, DuplicateCandidateMode: DuplicateExhaustBallot, MaxSkippedRanksAllowed: -1}
		normalized, _, err := NormalizeBallots(registry, rules, makeRaw())
		if err != nil {
			t.Fatalf("NormalizeBallots: %v", err)
		}
		if len(normalized[0].Choices) != 1 {
			t.Fatalf("expected truncation at the duplicate, got %d choices", len(normalized[0].Choices))
		}
		if !normalized[0].Truncated {
			t.Errorf("expected Truncated to be set")
		}
	})

	t.Run("error", func(t *testing.T) {
		rules := &Rules{CandidateNames: []string{"Amy", "Bob", "Cara"}, DuplicateCandidateMode: DuplicateError, MaxSkippedRanksAllowed: -1}
		_, _, err := NormalizeBallots(registry, rules, makeRaw())
		if err == nil {
			t.Fatalf("expected a DuplicateCandidateError")
		}
	})
}

func TestNormalizeBallotsTrimsTrailingBlanksOnly(t *testing.T) {
	registry := NewRegistry([]string{"Amy", "Bob"}, nil)
	rules := &Rules{CandidateNames: []string{"Amy", "Bob"}, MaxSkippedRanksAllowed: -1}

	raw := []RawBallot{{ID: "1", Slots: []RawSlot{
		{Kind: SlotCandidate, Names: []string{"Amy"}},
		{Kind: SlotBlank},
		{Kind: SlotCandidate, Names: []string{"Bob"}},
		{Kind: SlotBlank},
	}}}

	normalized, _, err := NormalizeBallots(registry, rules, raw)
	if err != nil {
		t.Fatalf("NormalizeBallots: %v", err)
	}
	if len(normalized[0].Choices) != 3 {
		t.Fatalf("expected the trailing blank trimmed but the interior blank kept, got %d choices", len(normalized[0].Choices))
	}
}
