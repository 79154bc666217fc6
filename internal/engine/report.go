package engine

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// ExhaustionCause classifies why a ballot stopped contributing to any
// continuing candidate (spec.md §4.5).
type ExhaustionCause int

const (
	ExhaustOvervote ExhaustionCause = iota
	ExhaustSkippedRank
	ExhaustUndeclaredWriteIn
	ExhaustExplicit // duplicate_candidate_mode = exhaust_ballot truncation
	ExhaustCursorPastEnd
)

func (c ExhaustionCause) String() string {
	switch c {
	case ExhaustOvervote:
		return "overvote"
	case ExhaustSkippedRank:
		return "skipped_rank"
	case ExhaustUndeclaredWriteIn:
		return "undeclared_write_in"
	case ExhaustExplicit:
		return "explicit_ballot_exhaust"
	case ExhaustCursorPastEnd:
		return "cursor_past_end"
	default:
		return "unknown"
	}
}

// TransferDestinationKind discriminates a Transfer's destination.
type TransferDestinationKind int

const (
	DestCandidate TransferDestinationKind = iota
	DestExhausted
)

// Transfer records ballots moving away from an eliminated candidate, either
// to another candidate or into an exhaustion bucket (spec.md §4.3 step 5).
type Transfer struct {
	Source       CandidateID
	DestKind     TransferDestinationKind
	Dest         CandidateID
	ExhaustCause ExhaustionCause
	Count        int
}

// RoundRecord is one round's audit-trail entry (spec.md §3). Exhaustion
// counters are cumulative totals as of this round's tally, taken before the
// round's own Transfers (exhaustions those cause show up from the next
// round on), which is what makes the §8 vote-conservation invariant hold at
// every round: Σ per-candidate-tally + ExhaustedCount == Σ ballot counts.
type RoundRecord struct {
	RoundNumber          int
	Threshold            decimal.Decimal
	PerCandidateTally    map[CandidateID]decimal.Decimal
	ExhaustedCount       int
	OvervoteCount        int
	SkippedCount         int
	UndeclaredCount      int
	ExplicitExhaustCount int
	CursorPastEndCount   int
	Transfers            []Transfer
	ElectedThisRound     []CandidateID
	EliminatedThisRound  []CandidateID
	TieBreakEvents       []TieBreakEvent
}

// TabulationReport is the engine's only output (spec.md §3, §4.5).
type TabulationReport struct {
	Rounds                    []RoundRecord
	Winners                   []CandidateID
	Undeclared                []CandidateID // candidates neither elected nor eliminated when tabulation ended
	PreRoundExhausted         int           // fully-blank ballots set aside before round 1 (spec.md §4.2)
	DiscardedUnknownCandidate int           // round-0 diagnostic (spec.md §4.1 "Side effects")
	Summary                   Summary       // read-only rollup, §12 supplement
}

// CandidateSummary is one candidate's entry in Summary.FirstRoundShare and
// Summary.TotalTransfersReceived.
type CandidateSummary struct {
	Candidate                CandidateID
	FirstRoundVotes          decimal.Decimal
	FirstRoundShare          decimal.Decimal // FirstRoundVotes / total ballots cast, as a fraction
	TotalTransfersReceived   decimal.Decimal
}

// Summary is a read-only rollup over the already-produced RoundRecords
// (§12 supplement): no new tabulation semantics, only post-processing of
// existing round data, included because RCVTab-family summary JSON always
// carries it.
type Summary struct {
	TotalBallotsCast int
	ByCandidate      []CandidateSummary
}

// BuildSummary computes rep.Summary from rep.Rounds. It is pure
// post-processing: every value here is derivable from RoundRecords already
// in the report.
func BuildSummary(rep TabulationReport, registry *Registry) Summary {
	if len(rep.Rounds) == 0 {
		return Summary{}
	}

	first := rep.Rounds[0]
	total := decimal.Zero
	for _, v := range first.PerCandidateTally {
		total = total.Add(v)
	}
	total = total.Add(decimal.NewFromInt(int64(first.ExhaustedCount)))

	received := make(map[CandidateID]decimal.Decimal)
	for _, rr := range rep.Rounds {
		for _, t := range rr.Transfers {
			if t.DestKind == DestCandidate {
				received[t.Dest] = received[t.Dest].Add(decimal.NewFromInt(int64(t.Count)))
			}
		}
	}

	var byCandidate []CandidateSummary
	for _, id := range registry.All() {
		votes := first.PerCandidateTally[id]
		share := decimal.Zero
		if total.GreaterThan(decimal.Zero) {
			share = votes.DivRound(total, 8)
		}
		byCandidate = append(byCandidate, CandidateSummary{
			Candidate:              id,
			FirstRoundVotes:        votes,
			FirstRoundShare:        share,
			TotalTransfersReceived: received[id],
		})
	}

	return Summary{TotalBallotsCast: int(total.IntPart()), ByCandidate: byCandidate}
}

// sortedTallies returns a round's per-candidate tallies sorted descending,
// ties broken by candidate id ascending for stability (spec.md §4.5).
func sortedTallies(tally map[CandidateID]decimal.Decimal) []CandidateID {
	ids := make([]CandidateID, 0, len(tally))
	for id := range tally {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ci, cj := tally[ids[i]], tally[ids[j]]
		if !ci.Equal(cj) {
			return ci.GreaterThan(cj)
		}
		return ids[i] < ids[j]
	})
	return ids
}

// --- RCVTab-compatible JSON rendering (spec.md §6) ---

type rcvtabReport struct {
	Config  json.RawMessage    `json:"config,omitempty"`
	Results []rcvtabRoundJSON  `json:"results"`
	Elected []string           `json:"elected"`
}

type rcvtabRoundJSON struct {
	Round        int                        `json:"round"`
	Tally        map[string]string          `json:"tally"`
	TallyResults []rcvtabTransferJSON        `json:"tallyResults"`
	Threshold    string                     `json:"threshold"`
	Elected      []string                   `json:"elected,omitempty"`
	Eliminated   []string                   `json:"eliminated,omitempty"`
}

type rcvtabTransferJSON struct {
	Candidate   string `json:"candidate"`
	Transfer    string `json:"transfer"` // destination candidate name, or "exhausted"
	VoteCount   string `json:"voteCount"`
}

// RCVTabJSON renders rep in the RCVTab *_expected_summary.json-compatible
// shape spec.md §6 names: a top-level object with config, results, and
// elected, where each round object carries round, tally, tallyResults,
// threshold, eliminated and elected. Field names and casing are chosen to
// match the reference tool for diffability.
func (rep TabulationReport) RCVTabJSON(registry *Registry, config json.RawMessage) ([]byte, error) {
	out := rcvtabReport{Config: config}

	for _, name := range namesOf(registry, rep.Winners) {
		out.Elected = append(out.Elected, name)
	}

	for _, rr := range rep.Rounds {
		round := rcvtabRoundJSON{
			Round:     rr.RoundNumber,
			Tally:     make(map[string]string, len(rr.PerCandidateTally)),
			Threshold: rr.Threshold.String(),
		}
		for _, id := range sortedTallies(rr.PerCandidateTally) {
			round.Tally[registry.Name(id)] = rr.PerCandidateTally[id].String()
		}
		for _, t := range rr.Transfers {
			dest := "exhausted"
			if t.DestKind == DestCandidate {
				dest = registry.Name(t.Dest)
			}
			round.TallyResults = append(round.TallyResults, rcvtabTransferJSON{
				Candidate: registry.Name(t.Source),
				Transfer:  dest,
				VoteCount: decimal.NewFromInt(int64(t.Count)).String(),
			})
		}
		round.Elected = namesOf(registry, rr.ElectedThisRound)
		round.Eliminated = namesOf(registry, rr.EliminatedThisRound)
		out.Results = append(out.Results, round)
	}

	return json.Marshal(out)
}

func namesOf(registry *Registry, ids []CandidateID) []string {
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = registry.Name(id)
	}
	return names
}
