package decode

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/rcvtab/tabulator/internal/engine"
)

func init() {
	register(FormatCSV, csvDecoder{})
	register(FormatCSVLikert, csvLikertDecoder{})
}

// csvDecoder handles the "ranking" CSV layout: one header row naming rank
// columns (rank1..rankN, any header text is accepted - only column position
// matters), then one data row per ballot. A cell is a candidate name, or one
// of a small set of case-insensitive sentinel tokens: "", "undervote",
// "skipped" (SlotBlank), "overvote" (SlotOvervote, no distinguishable
// candidate names available from this layout), "uwi", "write-in",
// "undeclared" (SlotUndeclaredWriteIn). A multi-candidate cell written as
// "A/B" or "A|B" decodes as an explicit overvote naming both.
type csvDecoder struct{}

func (csvDecoder) Split(raw []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV input")
	}
	return splitDataRows(records[1:]), nil
}

func (csvDecoder) DecodeRow(row Row) (engine.RawBallot, error) {
	fields := strings.Split(string(row.Raw), "\x1f")
	ballot := engine.RawBallot{ID: ballotID(row.Index), Multiplicity: 1}
	for _, cell := range fields {
		ballot.Slots = append(ballot.Slots, parseRankCell(cell))
	}
	return ballot, nil
}

// csvLikertDecoder handles the "Likert" CSV layout used by several
// aggregators: one column per candidate, cell values are the 1-based rank
// the voter gave that candidate (blank = not ranked). Two candidates
// sharing the same rank number on one ballot is an overvote at that rank.
type csvLikertDecoder struct{}

func (csvLikertDecoder) Split(raw []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("empty CSV input")
	}
	header := records[0]
	rows := records[1:]
	out := make([]Row, 0, len(rows))
	for i, rec := range rows {
		if isBlankRecord(rec) {
			continue
		}
		joined := strings.Join(append([]string{strings.Join(header, "\x1f")}, rec...), "\x1e")
		out = append(out, Row{Index: i, Raw: []byte(joined)})
	}
	return out, nil
}

func (csvLikertDecoder) DecodeRow(row Row) (engine.RawBallot, error) {
	parts := strings.SplitN(string(row.Raw), "\x1e", 2)
	if len(parts) != 2 {
		return engine.RawBallot{}, fmt.Errorf("malformed likert row")
	}
	candidates := strings.Split(parts[0], "\x1f")
	cells := strings.Split(parts[1], "\x1f")

	ranked := map[int][]string{}
	maxRank := 0
	for i, cell := range cells {
		if i >= len(candidates) {
			break
		}
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		rank, err := strconv.Atoi(cell)
		if err != nil {
			return engine.RawBallot{}, fmt.Errorf("non-integer rank %q for candidate %q", cell, candidates[i])
		}
		ranked[rank] = append(ranked[rank], candidates[i])
		if rank > maxRank {
			maxRank = rank
		}
	}

	ballot := engine.RawBallot{ID: ballotID(row.Index), Multiplicity: 1}
	for rank := 1; rank <= maxRank; rank++ {
		names := ranked[rank]
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

// --- shared CSV helpers ---

func splitDataRows(records [][]string) []Row {
	out := make([]Row, 0, len(records))
	for i, rec := range records {
		if isBlankRecord(rec) {
			continue
		}
		out = append(out, Row{Index: i, Raw: []byte(strings.Join(rec, "\x1f"))})
	}
	return out
}

func isBlankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func ballotID(index int) string {
	return fmt.Sprintf("row-%d", index+2) // +2: 1-based, plus the header row
}

func parseRankCell(cell string) engine.RawSlot {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "undervote", "skipped":
		return engine.RawSlot{Kind: engine.SlotBlank}
	case "overvote":
		return engine.RawSlot{Kind: engine.SlotOvervote}
	case "uwi", "write-in", "undeclared", "undeclared write-in":
		return engine.RawSlot{Kind: engine.SlotUndeclaredWriteIn}
	}
	if names := splitMultiCandidate(cell); len(names) > 1 {
		return engine.RawSlot{Kind: engine.SlotOvervote, Names: names}
	}
	return engine.RawSlot{Kind: engine.SlotCandidate, Names: []string{cell}}
}

func splitMultiCandidate(cell string) []string {
	for _, sep := range []string{"/", "|"} {
		if strings.Contains(cell, sep) {
			parts := strings.Split(cell, sep)
			names := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					names = append(names, p)
				}
			}
			return names
		}
	}
	return []string{cell}
}
