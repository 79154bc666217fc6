package decode

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rcvtab/tabulator/internal/engine"
)

func init() {
	register(FormatCDF, cdfDecoder{})
}

// cdfDecoder reads the single-election subset of the NIST SP 1500-103
// Common Data Format for cast vote records: a CastVoteRecordReport holding
// one CVR per ballot, each with exactly one CVRContest carrying ranked
// CVRContestSelections. Multi-election CDF containers and the XML
// serialization are out of scope (SPEC_FULL.md §1 Non-goals).
type cdfDecoder struct{}

type cdfReport struct {
	CVR []cdfCVR `json:"CVR"`
}

type cdfCVR struct {
	BallotPrePrintedID string          `json:"BallotPrePrintedId"`
	UniqueID           string          `json:"UniqueId"`
	CVRSnapshot        []cdfSnapshot   `json:"CVRSnapshot"`
	CurrentSnapshotID  string          `json:"CurrentSnapshotId"`
}

type cdfSnapshot struct {
	ID         string        `json:"Id"`
	CVRContest []cdfContest  `json:"CVRContest"`
}

type cdfContest struct {
	CVRContestSelection []cdfSelection `json:"CVRContestSelection"`
}

type cdfSelection struct {
	ContestSelectionID string         `json:"ContestSelectionId"`
	IsUndervote        bool           `json:"IsUndervote"`
	IsOvervote         bool           `json:"IsOvervote"`
	Rank               int            `json:"Rank"`
	SelectionPosition  []cdfPosition  `json:"SelectionPosition"`
}

type cdfPosition struct {
	Rank              int    `json:"Rank"`
	IsAllocable       bool   `json:"IsAllocable"`
	HasIndication     bool   `json:"HasIndication"`
	CandidateName     string `json:"CandidateName"` // non-standard convenience field some exporters add
}

func (cdfDecoder) Split(raw []byte) ([]Row, error) {
	var report cdfReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decoding CDF report: %w", err)
	}

	out := make([]Row, 0, len(report.CVR))
	for i, cvr := range report.CVR {
		encoded, err := json.Marshal(cvr)
		if err != nil {
			return nil, err
		}
		out = append(out, Row{Index: i, Raw: encoded})
	}
	return out, nil
}

func (cdfDecoder) DecodeRow(row Row) (engine.RawBallot, error) {
	var cvr cdfCVR
	if err := json.Unmarshal(row.Raw, &cvr); err != nil {
		return engine.RawBallot{}, fmt.Errorf("decoding CVR: %w", err)
	}

	snapshot, err := currentSnapshot(cvr)
	if err != nil {
		return engine.RawBallot{}, err
	}

	id := cvr.UniqueID
	if id == "" {
		id = cvr.BallotPrePrintedID
	}
	if id == "" {
		id = ballotID(row.Index)
	}

	byRank := map[int][]string{}
	maxRank := 0
	for _, contest := range snapshot.CVRContest {
		for _, sel := range contest.CVRContestSelection {
			if sel.IsOvervote {
				byRank[sel.Rank] = append(byRank[sel.Rank], namesFromPositions(sel)...)
				if sel.Rank > maxRank {
					maxRank = sel.Rank
				}
				continue
			}
			if sel.IsUndervote {
				continue
			}
			name := sel.ContestSelectionID
			for _, pos := range sel.SelectionPosition {
				if !pos.HasIndication {
					continue
				}
				if pos.CandidateName != "" {
					name = pos.CandidateName
				}
			}
			byRank[sel.Rank] = append(byRank[sel.Rank], name)
			if sel.Rank > maxRank {
				maxRank = sel.Rank
			}
		}
	}

	ballot := engine.RawBallot{ID: id, Multiplicity: 1}
	for rank := 1; rank <= maxRank; rank++ {
		names := dedupNames(byRank[rank])
		switch len(names) {
		case 0:
			ballot.Slots = append(ballot.Slots, engine.RawSlot{Kind: engine.SlotBlank})
		case 1:
			ballot.Slots = append(ballot.Slots, engine.RawSlot{Kind: engine.SlotCandidate, Names: names})
		default:
			ballot.Slots = append(ballot.Slots, engine.RawSlot{Kind: engine.SlotOvervote, Names: names})
		}
	}
	return ballot, nil
}

func currentSnapshot(cvr cdfCVR) (cdfSnapshot, error) {
	if len(cvr.CVRSnapshot) == 1 {
		return cvr.CVRSnapshot[0], nil
	}
	for _, s := range cvr.CVRSnapshot {
		if s.ID == cvr.CurrentSnapshotID {
			return s, nil
		}
	}
	return cdfSnapshot{}, fmt.Errorf("CVR %s: no snapshot matches CurrentSnapshotId %q", cvr.UniqueID, cvr.CurrentSnapshotID)
}

func namesFromPositions(sel cdfSelection) []string {
	var names []string
	for _, pos := range sel.SelectionPosition {
		if pos.HasIndication {
			name := pos.CandidateName
			if name == "" {
				name = sel.ContestSelectionID
			}
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		names = []string{sel.ContestSelectionID}
	}
	return names
}

func dedupNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
