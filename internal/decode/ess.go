package decode

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/rcvtab/tabulator/internal/engine"
)

func init() {
	register(FormatESS, essDecoder{})
}

// essDecoder reads an ES&S ranked-choice ballot image export: one row per
// ballot, columns named "ContestName", "PrecinctName", then one column per
// rank titled "RankN" (1-based). ES&S renders an overvote as the literal
// token "overvote" and a skipped rank as "undervote", both already handled
// by parseRankCell's shared sentinel set.
type essDecoder struct{}

func (essDecoder) Split(raw []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("empty ES&S export")
	}
	header := records[0]

	var rankCols []int
	for i, h := range header {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(h)), "rank") {
			rankCols = append(rankCols, i)
		}
	}
	if len(rankCols) == 0 {
		return nil, fmt.Errorf("no RankN columns found in ES&S header")
	}

	out := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		var cells []string
		for _, c := range rankCols {
			if c < len(rec) {
				cells = append(cells, rec[c])
			} else {
				cells = append(cells, "")
			}
		}
		out = append(out, Row{Index: i, Raw: []byte(strings.Join(cells, "\x1f"))})
	}
	return out, nil
}

func (essDecoder) DecodeRow(row Row) (engine.RawBallot, error) {
	return csvDecoder{}.DecodeRow(row)
}
