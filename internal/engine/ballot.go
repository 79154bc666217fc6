package engine

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SlotKind classifies one rank position of a raw ballot.
type SlotKind int

const (
	// SlotBlank is an empty/undervoted rank.
	SlotBlank SlotKind = iota
	// SlotCandidate names exactly one candidate.
	SlotCandidate
	// SlotOvervote names two or more candidates at the same rank.
	SlotOvervote
	// SlotUndeclaredWriteIn is an explicit write-in marker not tied to a
	// registered candidate name.
	SlotUndeclaredWriteIn
)

// RawSlot is one rank position on a RawBallot, before normalization.
type RawSlot struct {
	Kind  SlotKind
	Names []string // populated for SlotCandidate (len 1) and SlotOvervote (len >= 2)
}

// RawBallot is one voter's ranking exactly as decoded from an input format,
// before candidate-registry resolution (spec.md §3).
type RawBallot struct {
	ID           string
	Multiplicity int // defaults to 1 if zero
	Slots        []RawSlot
}

// multiplicity returns b.Multiplicity, defaulting to 1.
func (b RawBallot) multiplicity() int {
	if b.Multiplicity <= 0 {
		return 1
	}
	return b.Multiplicity
}

// ChoiceKind is the tagged-union discriminant for one normalized rank entry.
// Pattern-match exhaustively on this; it is a closed set (spec.md §9).
type ChoiceKind int

const (
	ChoiceCandidate ChoiceKind = iota
	ChoiceOvervote
	ChoiceBlank
	ChoiceUndeclaredWriteIn
)

// Choice is one entry of a NormalizedBallot.
type Choice struct {
	Kind      ChoiceKind
	Candidate CandidateID // valid only when Kind == ChoiceCandidate
}

// NormalizedBallot is the canonical, registry-resolved ranking the
// Aggregator and Round Engine operate on (spec.md §3). Its length is always
// <= rules.MaxRankingsAllowed; trailing blanks are trimmed, interior blanks
// are retained because their meaning depends on the skipped-rank rule.
type NormalizedBallot struct {
	ID       string
	Weight   int // carries RawBallot.Multiplicity forward
	Choices  []Choice
	Truncated bool // true if duplicateCandidateMode=exhaust_ballot cut this ballot short
}

// DiscardCounts tallies ballots the normalizer could not turn into a
// NormalizedBallot at all (distinct from in-round exhaustion, which is a
// Round Engine concept). These feed the report's round-0 diagnostics
// (spec.md §4.1 "Side effects").
type DiscardCounts struct {
	UnknownCandidate int
}

// normalizeName folds a candidate or write-in name to NFC so visually
// identical names using different Unicode compositions compare equal
// (spec.md §11 domain-stack: golang.org/x/text/unicode/norm).
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeBallots walks each RawBallot in rank order and produces its
// NormalizedBallot, applying the rules spec.md §4.1 assigns to the Ballot
// Normalizer. Skipped-rank policy is intentionally NOT applied here (it is
// a Round Engine concern, per spec.md §4.1).
func NormalizeBallots(registry *Registry, rules *Rules, raw []RawBallot) ([]NormalizedBallot, DiscardCounts, error) {
	var out []NormalizedBallot
	var discards DiscardCounts

	for _, rb := range raw {
		nb, discarded, err := normalizeOne(registry, rules, rb)
		if err != nil {
			return nil, discards, err
		}
		switch discarded {
		case discardNone:
			out = append(out, nb)
		case discardUnknownCandidate:
			discards.UnknownCandidate++
		}
	}
	return out, discards, nil
}

type discardReason int

const (
	discardNone discardReason = iota
	discardUnknownCandidate
)

func normalizeOne(registry *Registry, rules *Rules, rb RawBallot) (NormalizedBallot, discardReason, error) {
	seen := make(map[CandidateID]bool, len(rb.Slots))
	choices := make([]Choice, 0, len(rb.Slots))

	maxRanks := rules.MaxRankingsAllowed
	if maxRanks <= 0 {
		maxRanks = len(rb.Slots)
	}

	for _, slot := range rb.Slots {
		if len(choices) >= maxRanks {
			break // truncation: choices beyond max_rankings_allowed are dropped
		}

		switch slot.Kind {
		case SlotBlank:
			choices = append(choices, Choice{Kind: ChoiceBlank})

		case SlotUndeclaredWriteIn:
			choices = append(choices, Choice{Kind: ChoiceUndeclaredWriteIn})

		case SlotOvervote:
			choices = append(choices, Choice{Kind: ChoiceOvervote})

		case SlotCandidate:
			name := normalizeName(slot.Names[0])
			id, ok := registry.Lookup(name)
			if !ok {
				if rules.TreatUnrecognizedAsUndeclaredWriteIn {
					choices = append(choices, Choice{Kind: ChoiceUndeclaredWriteIn})
					continue
				}
				if rules.AllowUnrecognizedSkip {
					return NormalizedBallot{}, discardUnknownCandidate, nil
				}
				return NormalizedBallot{}, discardNone, UnknownCandidateError{Name: slot.Names[0], BallotID: rb.ID}
			}

			if seen[id] {
				switch rules.DuplicateCandidateMode {
				case DuplicateSkip:
					choices = append(choices, Choice{Kind: ChoiceBlank})
				case DuplicateExhaustBallot:
					// Truncate here; the remainder of the ballot is
					// dropped and will read as exhausted once the Round
					// Engine's cursor runs past the end.
					nb := finishNormalized(rb, choices)
					nb.Truncated = true
					return nb, discardNone, nil
				case DuplicateError:
					return NormalizedBallot{}, discardNone, DuplicateCandidateError{Candidate: slot.Names[0], BallotID: rb.ID}
				}
				continue
			}

			seen[id] = true
			choices = append(choices, Choice{Kind: ChoiceCandidate, Candidate: id})
		}
	}

	return finishNormalized(rb, choices), discardNone, nil
}

func finishNormalized(rb RawBallot, choices []Choice) NormalizedBallot {
	// Trim trailing blanks; interior blanks are retained.
	end := len(choices)
	for end > 0 && choices[end-1].Kind == ChoiceBlank {
		end--
	}
	return NormalizedBallot{ID: rb.ID, Weight: rb.multiplicity(), Choices: choices[:end]}
}
