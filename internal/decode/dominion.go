package decode

import (
	"encoding/json"
	"fmt"

	"github.com/rcvtab/tabulator/internal/engine"
)

func init() {
	register(FormatDominion, dominionDecoder{})
}

// dominionDecoder reads a Dominion CVR export in its JSON form: a top-level
// object with a "Sessions" array, each session holding one "Original"
// (and optionally "Modified") CvrData with a "Contests" array, each contest
// naming "Marks" that pair a candidate name with the rank the voter gave
// it. The Marks of every contest in a session are merged into one ranking;
// contests are not filtered by name. A session with no marks decodes to a
// ballot with no slots rather than being skipped.
type dominionDecoder struct{}

type dominionExport struct {
	Sessions []dominionSession `json:"Sessions"`
}

type dominionSession struct {
	TabulatorID int             `json:"TabulatorId"`
	BatchID     int             `json:"BatchId"`
	RecordID    int             `json:"RecordId"`
	Original    dominionCvrData `json:"Original"`
	Modified    *dominionCvrData `json:"Modified"`
}

type dominionCvrData struct {
	Contests []dominionContest `json:"Contests"`
}

type dominionContest struct {
	Name  string          `json:"Name"`
	Marks []dominionMark  `json:"Marks"`
}

type dominionMark struct {
	CandidateName string `json:"CandidateName"`
	Rank          int    `json:"Rank"`
	IsAmbiguous   bool   `json:"IsAmbiguous"`
}

func (dominionDecoder) Split(raw []byte) ([]Row, error) {
	var export dominionExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("decoding Dominion export: %w", err)
	}

	out := make([]Row, 0, len(export.Sessions))
	for i, session := range export.Sessions {
		encoded, err := json.Marshal(session)
		if err != nil {
			return nil, err
		}
		out = append(out, Row{Index: i, Raw: encoded})
	}
	return out, nil
}

func (dominionDecoder) DecodeRow(row Row) (engine.RawBallot, error) {
	var session dominionSession
	if err := json.Unmarshal(row.Raw, &session); err != nil {
		return engine.RawBallot{}, fmt.Errorf("decoding Dominion session: %w", err)
	}

	data := session.Original
	if session.Modified != nil {
		data = *session.Modified
	}

	byRank := map[int][]string{}
	maxRank := 0
	for _, contest := range data.Contests {
		for _, mark := range contest.Marks {
			byRank[mark.Rank] = append(byRank[mark.Rank], mark.CandidateName)
			if mark.Rank > maxRank {
				maxRank = mark.Rank
			}
		}
	}

	id := fmt.Sprintf("%d-%d-%d", session.TabulatorID, session.BatchID, session.RecordID)
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
