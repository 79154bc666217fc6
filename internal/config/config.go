// Package config turns an RCVTab-compatible rules JSON document into an
// internal/engine.Rules value, following the teacher's two-pass
// unmarshal-then-validate pattern (vote/stv_scottish.go's
// methodSTVScottishConfigWithOptions / validateConfig).
package config

import (
	"encoding/json"
	"fmt"

	"github.com/rcvtab/tabulator/internal/engine"
)

// Document is the raw, JSON-tag-shaped rules document (spec.md §6). Field
// presence tracking uses Maybe[T] only where the engine needs to tell
// "absent" from "explicitly zero" apart; everything else is a plain typed
// field with a document-level default applied in ToRules.
type Document struct {
	// TabulatorVersion is informational only (spec.md §6); it is accepted
	// for RCVTab-compatibility and otherwise ignored.
	TabulatorVersion string `json:"tabulatorVersion"`

	CandidateNames     []string `json:"candidateNames"`
	ExcludedCandidates []string `json:"excludedCandidates"`

	WinnerElectionMode string `json:"winnerElectionMode"`
	NumberOfWinners    int    `json:"numberOfWinners"`

	MaxRankingsAllowed     Maybe[int] `json:"maxRankingsAllowed"`
	MaxSkippedRanksAllowed Maybe[int] `json:"maxSkippedRanksAllowed"`

	OvervoteRule           string `json:"overvoteRule"`
	DuplicateCandidateMode string `json:"duplicateCandidateMode"`

	TreatUnrecognizedAsUndeclaredWriteIn Maybe[bool] `json:"treatUnrecognizedAsUndeclaredWriteIn"`
	AllowUnrecognizedSkip                Maybe[bool] `json:"allowUnrecognizedSkip"`
	UndeclaredWriteInLabel               string      `json:"undeclaredWriteInLabel"`

	TiebreakMode string   `json:"tiebreakMode"`
	RandomSeed   Maybe[uint64] `json:"randomSeed"`
	Permutation  []string `json:"permutation"`

	BatchElimination                 Maybe[bool] `json:"batchElimination"`
	ContinueUntilTwoCandidatesRemain Maybe[bool] `json:"continueUntilTwoCandidatesRemain"`
	NonIntegerWinningThreshold       Maybe[bool] `json:"nonIntegerWinningThreshold"`
}

// Parse validates raw against the schema, unmarshals it into a Document,
// and converts it to an engine.Rules value ready for engine.Tabulate.
func Parse(raw []byte) (*engine.Rules, error) {
	if err := ValidateSchema(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, engine.MessageError{Kind: engine.ErrUnknownRuleOption, Msg: fmt.Sprintf("decoding rules document: %s", err)}
	}

	rules, err := doc.ToRules()
	if err != nil {
		return nil, err
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// ToRules converts a parsed Document into engine.Rules, applying this
// repo's documented defaults for every field the document leaves absent.
func (d Document) ToRules() (*engine.Rules, error) {
	mode, err := parseWinnerElectionMode(d.WinnerElectionMode)
	if err != nil {
		return nil, err
	}
	overvote, err := parseOvervoteRule(d.OvervoteRule)
	if err != nil {
		return nil, err
	}
	duplicate, err := parseDuplicateCandidateMode(d.DuplicateCandidateMode)
	if err != nil {
		return nil, err
	}
	tiebreak, err := parseTiebreakMode(d.TiebreakMode)
	if err != nil {
		return nil, err
	}

	return &engine.Rules{
		CandidateNames:     d.CandidateNames,
		ExcludedCandidates: d.ExcludedCandidates,
		WinnerElectionMode: mode,
		NumberOfWinners:    d.NumberOfWinners,

		MaxRankingsAllowed:     d.MaxRankingsAllowed.Or(0),
		MaxSkippedRanksAllowed: d.MaxSkippedRanksAllowed.Or(-1),

		OvervoteRule:           overvote,
		DuplicateCandidateMode: duplicate,

		TreatUnrecognizedAsUndeclaredWriteIn: d.TreatUnrecognizedAsUndeclaredWriteIn.Or(false),
		AllowUnrecognizedSkip:                d.AllowUnrecognizedSkip.Or(false),
		UndeclaredWriteInLabel:               d.UndeclaredWriteInLabel,

		TiebreakMode: tiebreak,
		RandomSeed:   d.RandomSeed.Or(0),
		Permutation:  d.Permutation,

		BatchElimination:                 d.BatchElimination.Or(false),
		ContinueUntilTwoCandidatesRemain: d.ContinueUntilTwoCandidatesRemain.Or(false),
		NonIntegerWinningThreshold:       d.NonIntegerWinningThreshold.Or(false),
	}, nil
}

func parseWinnerElectionMode(s string) (engine.WinnerElectionMode, error) {
	switch s {
	case "", "single_winner_majority":
		return engine.SingleWinnerMajority, nil
	case "single_winner_plurality":
		return engine.SingleWinnerPlurality, nil
	case "multi_seat_hare":
		return engine.MultiSeatHare, nil
	case "multi_seat_droop":
		return engine.MultiSeatDroop, nil
	default:
		return 0, engine.MessageError{Kind: engine.ErrUnknownRuleOption, Msg: fmt.Sprintf("unknown winnerElectionMode %q", s)}
	}
}

func parseOvervoteRule(s string) (engine.OvervoteRule, error) {
	switch s {
	case "", "exhaust_immediately":
		return engine.OvervoteExhaustImmediately, nil
	case "always_skip_to_next_rank":
		return engine.OvervoteAlwaysSkipToNextRank, nil
	default:
		return 0, engine.MessageError{Kind: engine.ErrUnknownRuleOption, Msg: fmt.Sprintf("unknown overvoteRule %q", s)}
	}
}

func parseDuplicateCandidateMode(s string) (engine.DuplicateCandidateMode, error) {
	switch s {
	case "", "skip_duplicate":
		return engine.DuplicateSkip, nil
	case "exhaust_ballot":
		return engine.DuplicateExhaustBallot, nil
	case "error":
		return engine.DuplicateError, nil
	default:
		return 0, engine.MessageError{Kind: engine.ErrUnknownRuleOption, Msg: fmt.Sprintf("unknown duplicateCandidateMode %q", s)}
	}
}

func parseTiebreakMode(s string) (engine.TiebreakMode, error) {
	switch s {
	case "", "random":
		return engine.TiebreakRandom, nil
	case "stop_counting_and_ask":
		return engine.TiebreakStopCountingAndAsk, nil
	case "previous_round_counts_then_random":
		return engine.TiebreakPreviousRoundCountsThenRandom, nil
	case "use_permutation":
		return engine.TiebreakUsePermutation, nil
	case "generate_permutation":
		return engine.TiebreakGeneratePermutation, nil
	default:
		return 0, engine.MessageError{Kind: engine.ErrUnknownRuleOption, Msg: fmt.Sprintf("unknown tiebreakMode %q", s)}
	}
}
