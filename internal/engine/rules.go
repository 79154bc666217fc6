package engine

import "github.com/shopspring/decimal"

// WinnerElectionMode selects how thresholds are computed and how many
// candidates may be elected (spec.md §6, "winnerElectionMode").
type WinnerElectionMode int

const (
	SingleWinnerMajority WinnerElectionMode = iota
	SingleWinnerPlurality
	MultiSeatHare
	MultiSeatDroop
)

// OvervoteRule selects overvote handling (spec.md §4.3 step 1).
type OvervoteRule int

const (
	OvervoteExhaustImmediately OvervoteRule = iota
	OvervoteAlwaysSkipToNextRank
)

// DuplicateCandidateMode selects duplicate-ranking handling (spec.md §4.1).
type DuplicateCandidateMode int

const (
	DuplicateSkip DuplicateCandidateMode = iota
	DuplicateExhaustBallot
	DuplicateError
)

// TiebreakMode selects the Tie-Break Arbiter implementation (spec.md §4.4).
type TiebreakMode int

const (
	TiebreakRandom TiebreakMode = iota
	TiebreakStopCountingAndAsk
	TiebreakPreviousRoundCountsThenRandom
	TiebreakUsePermutation
	TiebreakGeneratePermutation
)

// Rules is the immutable rule configuration threaded through one Tabulate
// call (spec.md §3, §6). It is produced by internal/config from the
// RCVTab-compatible JSON document; the engine never parses JSON itself.
type Rules struct {
	CandidateNames      []string
	ExcludedCandidates  []string
	WinnerElectionMode  WinnerElectionMode
	NumberOfWinners     int
	MaxRankingsAllowed  int // 0 means unbounded
	MaxSkippedRanksAllowed int // -1 means unlimited
	OvervoteRule        OvervoteRule
	DuplicateCandidateMode DuplicateCandidateMode

	TreatUnrecognizedAsUndeclaredWriteIn bool
	AllowUnrecognizedSkip                bool
	UndeclaredWriteInLabel               string

	TiebreakMode TiebreakMode
	RandomSeed   uint64
	Permutation  []string // used when TiebreakMode == TiebreakUsePermutation

	BatchElimination                bool
	ContinueUntilTwoCandidatesRemain bool

	// NonIntegerWinningThreshold, when true, holds the threshold constant
	// across rounds for single-seat majority mode instead of recomputing
	// it each round from that round's active-vote count (spec.md §4.3
	// step 2).
	NonIntegerWinningThreshold bool
}

// Validate checks cross-field consistency spec.md §7 calls
// InconsistentRules. It does not check the closed-key-set requirement - that
// is internal/config's job (the schema validation already rejects unknown
// keys before a Rules value exists).
func (r *Rules) Validate() error {
	if r.NumberOfWinners <= 0 {
		return newMessageError(ErrInconsistentRules, "numberOfWinners must be positive")
	}

	isMultiSeat := r.WinnerElectionMode == MultiSeatHare || r.WinnerElectionMode == MultiSeatDroop
	if !isMultiSeat && r.NumberOfWinners != 1 {
		return newMessageError(ErrInconsistentRules, "numberOfWinners > 1 is only valid with a multi-seat winnerElectionMode")
	}
	if isMultiSeat && r.NumberOfWinners < 1 {
		return newMessageError(ErrInconsistentRules, "multi-seat modes require numberOfWinners >= 1")
	}
	if isMultiSeat && r.NumberOfWinners > len(r.CandidateNames) {
		return newMessageError(ErrInconsistentRules, "numberOfWinners exceeds the number of candidates")
	}

	if r.TiebreakMode == TiebreakUsePermutation && len(r.Permutation) == 0 {
		return newMessageError(ErrInconsistentRules, "tiebreakMode use_permutation requires a non-empty permutation")
	}

	excluded := make(map[string]bool, len(r.ExcludedCandidates))
	for _, name := range r.ExcludedCandidates {
		excluded[name] = true
	}
	known := make(map[string]bool, len(r.CandidateNames))
	for _, name := range r.CandidateNames {
		known[name] = true
	}
	for name := range excluded {
		if !known[name] {
			return newMessageError(ErrInconsistentRules, "excludedCandidates contains %q which is not in candidateNames", name)
		}
	}
	if len(excluded) >= len(r.CandidateNames) {
		return newMessageError(ErrInconsistentRules, "excludedCandidates excludes every candidate")
	}

	return nil
}

// skippedRankBudget returns the maximum number of consecutive blanks the
// Round Engine may traverse before a ballot exhausts, or -1 for unlimited
// (spec.md §4.3 step 1, "maxSkippedRanksAllowed").
func (r *Rules) skippedRankBudget() int {
	if r.MaxSkippedRanksAllowed < 0 {
		return -1
	}
	return r.MaxSkippedRanksAllowed
}

// IsMultiSeat reports whether r selects a multi-seat quota mode.
func (r *Rules) IsMultiSeat() bool {
	return r.WinnerElectionMode == MultiSeatHare || r.WinnerElectionMode == MultiSeatDroop
}

// firstRoundQuota computes the Hare or Droop quota from the first round's
// active vote count, per spec.md §4.3 step 2. It is computed once and held
// constant for the remainder of the tabulation.
//
// Open question (spec.md §9) resolved in DESIGN.md: UWI, overvote, and
// blank-exhausted ballots are excluded from activeVotes here, since the
// quota is defined over ballots that could plausibly elect a candidate.
func (r *Rules) firstRoundQuota(activeVotes decimal.Decimal) decimal.Decimal {
	divisor := int64(r.NumberOfWinners)
	if r.WinnerElectionMode == MultiSeatDroop {
		divisor++
	}
	return floorDivPlusOne(activeVotes, divisor)
}

// singleSeatThreshold computes a majority threshold from a round's active
// vote count, per spec.md §4.3 step 2.
func singleSeatThreshold(activeVotes decimal.Decimal) decimal.Decimal {
	return floorDivPlusOne(activeVotes, 2)
}

// floorDivPlusOne computes floor(n / divisor) + 1 where n is always a
// non-negative whole number of ballot weight (no fractional surplus
// transfer is implemented, per spec.md's Non-goals), so integer division
// truncation is exact floor division.
func floorDivPlusOne(n decimal.Decimal, divisor int64) decimal.Decimal {
	return decimal.NewFromInt(n.IntPart()/divisor + 1)
}
