package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// destination is a ballot's current resting place: either a candidate it is
// actively contributing to, or a recorded exhaustion. This is the "cursor"
// half of the cursor/arena split (spec.md §9): AggregatedBallot.Choices is
// the immutable arena, destination is the only thing that mutates as rounds
// advance.
type destination struct {
	exhausted bool
	candidate CandidateID
	cause     ExhaustionCause
}

// roundEngine runs the round-by-round elimination and election loop over a
// fixed set of aggregated ballots (spec.md §4.3). It is built fresh for
// every Tabulate call and discarded afterward.
type roundEngine struct {
	registry *Registry
	rules    *Rules
	ballots  []AggregatedBallot
	dest     []destination

	arbiter        *arbiter
	rounds         []RoundRecord
	multiSeatQuota decimal.Decimal

	preRoundExhausted         int
	discardedUnknownCandidate int

	cumOvervote, cumSkipped, cumUndeclared, cumExplicit, cumCursorPastEnd int
}

func newRoundEngine(registry *Registry, rules *Rules, ballots []AggregatedBallot) *roundEngine {
	re := &roundEngine{
		registry: registry,
		rules:    rules,
		ballots:  ballots,
		dest:     make([]destination, len(ballots)),
	}
	return re
}

// TallyAt implements RoundHistory for the Tie-Break Arbiter's
// previous_round_counts_then_random mode.
func (re *roundEngine) TallyAt(round int, id CandidateID) (decimal.Decimal, bool) {
	if round < 1 || round > len(re.rounds) {
		return decimal.Zero, false
	}
	tally, ok := re.rounds[round-1].PerCandidateTally[id]
	return tally, ok
}

// walk advances one ballot from startIdx, applying spec.md §4.3 step 1's
// assignment rules, and returns where it lands: a continuing candidate, or
// an exhaustion with cause. consecutiveBlanks always starts at 0 because the
// entry immediately preceding startIdx (when startIdx > 0) is always a
// non-blank Candidate slot, which resets the budget anyway.
func (re *roundEngine) walk(ballot AggregatedBallot, startIdx int) destination {
	budget := re.rules.skippedRankBudget()
	consecutiveBlanks := 0

	for idx := startIdx; idx < len(ballot.Choices); idx++ {
		c := ballot.Choices[idx]

		switch c.Kind {
		case ChoiceBlank:
			consecutiveBlanks++
			if budget >= 0 && consecutiveBlanks > budget {
				return destination{exhausted: true, cause: ExhaustSkippedRank}
			}

		case ChoiceOvervote:
			if re.rules.OvervoteRule == OvervoteExhaustImmediately {
				return destination{exhausted: true, cause: ExhaustOvervote}
			}
			consecutiveBlanks = 0 // always_skip_to_next_rank: transparent, does not count against budget

		case ChoiceUndeclaredWriteIn:
			return destination{exhausted: true, cause: ExhaustUndeclaredWriteIn}

		case ChoiceCandidate:
			status := re.registry.State(c.Candidate).Status
			if status == Continuing {
				return destination{candidate: c.Candidate}
			}
			// Eliminated, Excluded, or (multi-seat) already-Elected: a
			// transparent pass-through, same as an overvote skip.
			consecutiveBlanks = 0
		}
	}

	cause := ExhaustCursorPastEnd
	if ballot.Truncated {
		cause = ExhaustExplicit
	}
	return destination{exhausted: true, cause: cause}
}

func (re *roundEngine) addExhaustion(cause ExhaustionCause, count int) {
	switch cause {
	case ExhaustOvervote:
		re.cumOvervote += count
	case ExhaustSkippedRank:
		re.cumSkipped += count
	case ExhaustUndeclaredWriteIn:
		re.cumUndeclared += count
	case ExhaustExplicit:
		re.cumExplicit += count
	case ExhaustCursorPastEnd:
		re.cumCursorPastEnd += count
	}
}

func (re *roundEngine) cumExhaustedTotal() int {
	return re.cumOvervote + re.cumSkipped + re.cumUndeclared + re.cumExplicit + re.cumCursorPastEnd
}

// Run executes the full round loop and returns the assembled report
// (spec.md §4.3, §4.5). cancel, if non-nil, is checked at each round
// boundary; a trip discards everything computed so far (spec.md §5).
func (re *roundEngine) Run(preRoundExhausted, discardedUnknownCandidate int, cancel CancelFunc) (TabulationReport, error) {
	re.preRoundExhausted = preRoundExhausted
	re.discardedUnknownCandidate = discardedUnknownCandidate

	// Pre-round-1 assignment: every ballot starts its walk at choice 0. Any
	// ballot that exhausts on this very first walk (overvote under
	// exhaust_immediately, an undeclared write-in, a skipped-rank-budget
	// overflow, explicit truncation, or running off the end of its choices)
	// must be charged to its cause bucket here - this is the only walk that
	// ever touches it, since transferAwayFrom only re-walks ballots
	// currently assigned to a just-eliminated candidate.
	for i, b := range re.ballots {
		re.dest[i] = re.walk(b, 0)
		if re.dest[i].exhausted {
			re.addExhaustion(re.dest[i].cause, b.Count)
		}
	}
	re.addExhaustion(ExhaustSkippedRank, preRoundExhausted) // fully-blank ballots are undervotes

	electedCount := 0
	var winners []CandidateID

	maxRounds := re.registry.Len() + 1 // safety bound, spec.md §4.3 step 6
	for round := 1; round <= maxRounds; round++ {
		if cancel != nil && cancel() {
			return TabulationReport{}, ErrCancelledSentinel
		}

		tally := re.tallyRound()
		activeVotes := sumTally(tally, re.registry.Continuing())

		var threshold decimal.Decimal
		if re.rules.IsMultiSeat() {
			if round == 1 {
				re.multiSeatQuota = re.rules.firstRoundQuota(activeVotes)
			}
			threshold = re.multiSeatQuota
		} else {
			threshold = singleSeatThreshold(activeVotes)
			if re.rules.NonIntegerWinningThreshold && round > 1 {
				threshold = re.rounds[0].Threshold
			}
		}

		rr := RoundRecord{
			RoundNumber:          round,
			Threshold:            threshold,
			PerCandidateTally:    tally,
			ExhaustedCount:       re.cumExhaustedTotal(),
			OvervoteCount:        re.cumOvervote,
			SkippedCount:         re.cumSkipped,
			UndeclaredCount:      re.cumUndeclared,
			ExplicitExhaustCount: re.cumExplicit,
			CursorPastEndCount:   re.cumCursorPastEnd,
		}

		var newWinners []CandidateID
		var terminate bool
		if re.rules.IsMultiSeat() {
			newWinners, terminate = re.multiSeatWinners(tally, threshold, re.rules.NumberOfWinners-electedCount)
		} else {
			newWinners, terminate = re.singleSeatWinner(tally, threshold, round, &rr)
		}

		for _, id := range newWinners {
			re.registry.State(id).Status = Elected
			re.registry.State(id).ElectedRound = round
			winners = append(winners, id)
			electedCount++
		}
		rr.ElectedThisRound = newWinners

		if terminate {
			re.rounds = append(re.rounds, rr)
			return re.finish(winners), nil
		}

		eliminated, err := re.eliminateRound(round, tally, &rr)
		if err != nil {
			return TabulationReport{}, err
		}
		rr.EliminatedThisRound = eliminated
		for _, id := range eliminated {
			re.registry.State(id).Status = Eliminated
			re.registry.State(id).EliminatedRound = round
		}

		re.transferAwayFrom(eliminated, &rr)

		re.rounds = append(re.rounds, rr)

		if len(re.registry.Continuing()) == 0 {
			return re.finish(winners), nil
		}
	}

	return TabulationReport{}, InvariantViolationError{Detail: "round count exceeded the safety bound without terminating"}
}

func (re *roundEngine) finish(winners []CandidateID) TabulationReport {
	var undeclared []CandidateID
	for _, id := range re.registry.Continuing() {
		undeclared = append(undeclared, id)
	}
	return TabulationReport{
		Rounds:                    re.rounds,
		Winners:                   winners,
		Undeclared:                undeclared,
		PreRoundExhausted:         re.preRoundExhausted,
		DiscardedUnknownCandidate: re.discardedUnknownCandidate,
	}
}

// tallyRound sums ballot counts by current destination candidate. Elected
// candidates (multi-seat, frozen from a prior round) keep their last tally
// since their assigned ballots are never re-walked.
func (re *roundEngine) tallyRound() map[CandidateID]decimal.Decimal {
	tally := make(map[CandidateID]decimal.Decimal)
	for _, id := range re.registry.All() {
		st := re.registry.State(id).Status
		if st == Continuing || st == Elected {
			tally[id] = decimal.Zero
		}
	}
	for i, b := range re.ballots {
		d := re.dest[i]
		if d.exhausted {
			continue
		}
		tally[d.candidate] = tally[d.candidate].Add(decimal.NewFromInt(int64(b.Count)))
	}
	return tally
}

func sumTally(tally map[CandidateID]decimal.Decimal, ids []CandidateID) decimal.Decimal {
	sum := decimal.Zero
	for _, id := range ids {
		sum = sum.Add(tally[id])
	}
	return sum
}

// singleSeatWinner implements spec.md §4.3 step 3 for single-seat modes,
// including the continueUntilTwoCandidatesRemain open question resolved in
// DESIGN.md: with it set, an early majority crossing does not end the count
// until only two candidates remain.
func (re *roundEngine) singleSeatWinner(tally map[CandidateID]decimal.Decimal, threshold decimal.Decimal, round int, rr *RoundRecord) ([]CandidateID, bool) {
	continuing := re.registry.Continuing()

	if len(continuing) == 1 {
		return continuing, true
	}

	// single_winner_plurality is one round, no elimination or transfer:
	// whoever holds the highest first-round tally wins outright, threshold
	// or no threshold (spec.md §6 "winnerElectionMode").
	if re.rules.WinnerElectionMode == SingleWinnerPlurality {
		return []CandidateID{topByTally(tally, continuing)}, true
	}

	top := topByTally(tally, continuing)
	if tally[top].GreaterThanOrEqual(threshold) {
		if !re.rules.ContinueUntilTwoCandidatesRemain || len(continuing) <= 2 {
			return []CandidateID{top}, true
		}
	}

	// An exact tie with only two candidates left (neither crosses
	// threshold) is not special-cased here: eliminateRound's normal tie
	// handling removes one of them via the arbiter, leaving a sole
	// survivor that the next round declares winner via the len == 1 case
	// above.
	return nil, false
}

// multiSeatWinners implements spec.md §4.3 step 3 for Hare/Droop modes.
func (re *roundEngine) multiSeatWinners(tally map[CandidateID]decimal.Decimal, threshold decimal.Decimal, remainingSeats int) ([]CandidateID, bool) {
	if remainingSeats <= 0 {
		return nil, true
	}

	continuing := re.registry.Continuing()
	if len(continuing) <= remainingSeats {
		sort.Slice(continuing, func(i, j int) bool {
			if !tally[continuing[i]].Equal(tally[continuing[j]]) {
				return tally[continuing[i]].GreaterThan(tally[continuing[j]])
			}
			return continuing[i] < continuing[j]
		})
		return continuing, true
	}

	var crossed []CandidateID
	for _, id := range continuing {
		if tally[id].GreaterThanOrEqual(threshold) {
			crossed = append(crossed, id)
		}
	}
	if len(crossed) == 0 {
		return nil, false
	}
	sort.Slice(crossed, func(i, j int) bool {
		if !tally[crossed[i]].Equal(tally[crossed[j]]) {
			return tally[crossed[i]].GreaterThan(tally[crossed[j]])
		}
		return crossed[i] < crossed[j]
	})
	if len(crossed) > remainingSeats {
		crossed = crossed[:remainingSeats]
	}
	return crossed, remainingSeats-len(crossed) == 0
}

func topByTally(tally map[CandidateID]decimal.Decimal, ids []CandidateID) CandidateID {
	best := ids[0]
	for _, id := range ids[1:] {
		if tally[id].GreaterThan(tally[best]) {
			best = id
		}
	}
	return best
}

// eliminateRound implements spec.md §4.3 step 4: find the candidate(s) at
// minimum tally, extend the batch past them only while the extended group's
// cumulative tally stays strictly below the next tier (the mathematical
// guarantee that no batch member could catch up even after absorbing every
// other member's transfers), and invoke the arbiter whenever a genuine,
// unresolved tie remains at the minimum - batch_elimination removes a whole
// tied group only when that group cannot catch up, never as a way to skip
// the arbiter on a tie whose members still could.
func (re *roundEngine) eliminateRound(round int, tally map[CandidateID]decimal.Decimal, rr *RoundRecord) ([]CandidateID, error) {
	continuing := re.registry.Continuing()

	sorted := make([]CandidateID, len(continuing))
	copy(sorted, continuing)
	sort.Slice(sorted, func(i, j int) bool {
		if !tally[sorted[i]].Equal(tally[sorted[j]]) {
			return tally[sorted[i]].LessThan(tally[sorted[j]])
		}
		return sorted[i] < sorted[j]
	})

	// Tie set at the minimum tally.
	tieEnd := 1
	for tieEnd < len(sorted) && tally[sorted[tieEnd]].Equal(tally[sorted[0]]) {
		tieEnd++
	}

	// With batch elimination, batchEnd is the length of the largest prefix
	// of sorted (covering the whole tie group) whose cumulative tally stays
	// strictly below the tally of the candidate right after it; 0 if none.
	batchEnd := 0
	if re.rules.BatchElimination {
		sum := decimal.Zero
		for k := 1; k < len(sorted); k++ {
			sum = sum.Add(tally[sorted[k-1]])
			if k >= tieEnd && sum.LessThan(tally[sorted[k]]) {
				batchEnd = k
			}
		}
	}
	if batchEnd == 0 && tieEnd == 1 {
		batchEnd = 1
	}

	if batchEnd > 0 {
		// Either batch elimination found a group that cannot catch up, or
		// there was no tie to begin with: nothing ambiguous to resolve.
		out := make([]CandidateID, batchEnd)
		copy(out, sorted[:batchEnd])
		return out, nil
	}

	// No safe batch and tieEnd > 1: the tie group's cumulative tally does not fall
	// strictly below the next tier, so batch elimination cannot safely
	// extend past it - a member could still mathematically catch up if
	// eliminated sequentially instead of together (spec.md §4.3 step 4).
	// This is an unresolved tie at the minimum regardless of
	// rules.BatchElimination; the arbiter must be invoked exactly as the
	// non-batch path does.
	tied := make([]CandidateID, tieEnd)
	copy(tied, sorted[:tieEnd])

	ordered, event, err := re.arbiter.Break(round, tied)
	if err != nil {
		return nil, err
	}
	rr.TieBreakEvents = append(rr.TieBreakEvents, event)
	return []CandidateID{ordered[0]}, nil
}

// transferAwayFrom re-walks every ballot currently assigned to a
// just-eliminated candidate, both updating the engine's real per-ballot
// destination state and recording the movement as Transfers for the report
// (spec.md §4.3 step 5). This is the one real computation; it serves both
// purposes at once rather than a separate "speculative" pass.
func (re *roundEngine) transferAwayFrom(eliminated []CandidateID, rr *RoundRecord) {
	if len(eliminated) == 0 {
		return
	}
	elimSet := make(map[CandidateID]bool, len(eliminated))
	for _, id := range eliminated {
		elimSet[id] = true
	}

	type transferKey struct {
		source   CandidateID
		destKind TransferDestinationKind
		dest     CandidateID
		cause    ExhaustionCause
	}
	counts := make(map[transferKey]int)
	var order []transferKey

	for i, b := range re.ballots {
		d := re.dest[i]
		if d.exhausted || !elimSet[d.candidate] {
			continue
		}
		source := d.candidate
		next := re.findNextIndex(b, d.candidate)
		newDest := re.walk(b, next)
		re.dest[i] = newDest

		var key transferKey
		if newDest.exhausted {
			key = transferKey{source: source, destKind: DestExhausted, cause: newDest.cause}
			re.addExhaustion(newDest.cause, b.Count)
		} else {
			key = transferKey{source: source, destKind: DestCandidate, dest: newDest.candidate}
		}
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key] += b.Count
	}

	for _, key := range order {
		rr.Transfers = append(rr.Transfers, Transfer{
			Source:       key.source,
			DestKind:     key.destKind,
			Dest:         key.dest,
			ExhaustCause: key.cause,
			Count:        counts[key],
		})
	}
}

// findNextIndex locates the choice index a ballot currently rests on (which
// names the eliminated candidate) so the re-walk can resume just past it.
func (re *roundEngine) findNextIndex(b AggregatedBallot, current CandidateID) int {
	for idx, c := range b.Choices {
		if c.Kind == ChoiceCandidate && c.Candidate == current {
			return idx + 1
		}
	}
	return len(b.Choices)
}
