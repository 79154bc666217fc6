package decode

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/rcvtab/tabulator/internal/engine"
)

func init() {
	register(FormatQualtrics, qualtricsDecoder{})
}

// qualtricsDecoder reads a Qualtrics ranking-question CSV export. Qualtrics
// writes three header rows (question text, internal import ID, then
// respondent-visible column labels); the second row's "rank" markers are
// what identify the ranking columns reliably, since the first row's
// free-text question wording varies per survey.
type qualtricsDecoder struct{}

func (qualtricsDecoder) Split(raw []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 4 {
		return nil, fmt.Errorf("qualtrics export needs 3 header rows plus at least one response")
	}

	importIDs := records[1]
	var rankCols []int
	for i, id := range importIDs {
		if strings.Contains(strings.ToUpper(id), "_RANK_") || strings.Contains(strings.ToUpper(id), "RANK") {
			rankCols = append(rankCols, i)
		}
	}
	if len(rankCols) == 0 {
		return nil, fmt.Errorf("no ranking columns found via Qualtrics import-id row")
	}

	out := make([]Row, 0, len(records)-3)
	for i, rec := range records[3:] {
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

func (qualtricsDecoder) DecodeRow(row Row) (engine.RawBallot, error) {
	return csvDecoder{}.DecodeRow(row)
}
