package decode

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/rcvtab/tabulator/internal/engine"
)

func init() {
	register(FormatMSForms, msformsDecoder{})
	register(FormatMSFormsLikert, msformsLikertDecoder{})
	register(FormatMSFormsLikertTranspose, msformsLikertTransposeDecoder{})
}

// msformsDecoder reads a Microsoft Forms ranking-question export: the first
// several columns are form metadata (ID, Start time, Completion time,
// Email, Name - all ignored here), followed by one column per rank,
// typically titled "Rank your choices - 1st Choice", "... - 2nd Choice",
// etc. Only the rank-column positions matter; this decoder locates them by
// header substring "Choice" rather than by fixed offset, since exported
// metadata columns vary by form configuration.
type msformsDecoder struct{}

func (msformsDecoder) Split(raw []byte) ([]Row, error) {
	records, rankCols, err := msformsHeader(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(records))
	for i, rec := range records {
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

func (msformsDecoder) DecodeRow(row Row) (engine.RawBallot, error) {
	return csvDecoder{}.DecodeRow(row)
}

// msformsLikertDecoder reads the Likert-style export: one column per
// candidate, titled with the candidate's name, cell values the rank
// (1st, 2nd, ... or a bare integer) the respondent gave.
type msformsLikertDecoder struct{}

func (msformsLikertDecoder) Split(raw []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("empty msforms export")
	}
	header := records[0]
	candCols := candidateColumns(header)
	candidates := make([]string, len(candCols))
	for i, c := range candCols {
		candidates[i] = header[c]
	}

	out := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		var cells []string
		for _, c := range candCols {
			cell := ""
			if c < len(rec) {
				cell = strings.TrimSpace(rec[c])
			}
			// Strip an ordinal suffix ("1st", "2nd", "3rd", "4th", ...).
			for _, suffix := range []string{"st", "nd", "rd", "th"} {
				if strings.HasSuffix(strings.ToLower(cell), suffix) {
					cell = cell[:len(cell)-len(suffix)]
					break
				}
			}
			cells = append(cells, cell)
		}
		joined := strings.Join(candidates, "\x1f") + "\x1e" + strings.Join(cells, "\x1f")
		out = append(out, Row{Index: i, Raw: []byte(joined)})
	}
	return out, nil
}

func (msformsLikertDecoder) DecodeRow(row Row) (engine.RawBallot, error) {
	return csvLikertDecoder{}.DecodeRow(row)
}

// msformsLikertTransposeDecoder reads the same Likert semantics but
// transposed: each row names one candidate, each column after the first is
// one respondent, and cell values are the rank that respondent gave that
// candidate. Split performs the transpose up front so DecodeRow can reuse
// the ordinary Likert per-ballot logic.
type msformsLikertTransposeDecoder struct{}

func (msformsLikertTransposeDecoder) Split(raw []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("msforms transpose export needs at least a header and one candidate row")
	}

	header := records[0] // header[0] is the corner label, header[1:] are respondent IDs
	voterCount := len(header) - 1
	if voterCount < 0 {
		voterCount = 0
	}

	candidates := make([]string, 0, len(records)-1)
	perVoter := make([][]string, voterCount)
	for _, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		candidates = append(candidates, rec[0])
		for v := 0; v < voterCount; v++ {
			cell := ""
			if v+1 < len(rec) {
				cell = rec[v+1]
			}
			perVoter[v] = append(perVoter[v], cell)
		}
	}

	out := make([]Row, 0, voterCount)
	candidateHeader := strings.Join(candidates, "\x1f")
	for v := 0; v < voterCount; v++ {
		if isBlankRecord(perVoter[v]) {
			continue
		}
		joined := candidateHeader + "\x1e" + strings.Join(perVoter[v], "\x1f")
		out = append(out, Row{Index: v, Raw: []byte(joined)})
	}
	return out, nil
}

func (msformsLikertTransposeDecoder) DecodeRow(row Row) (engine.RawBallot, error) {
	return csvLikertDecoder{}.DecodeRow(row)
}

// --- shared msforms helpers ---

func msformsHeader(raw []byte) ([][]string, []int, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 1 {
		return nil, nil, fmt.Errorf("empty msforms export")
	}
	header := records[0]
	var rankCols []int
	for i, h := range header {
		if strings.Contains(strings.ToLower(h), "choice") || strings.Contains(strings.ToLower(h), "rank") {
			rankCols = append(rankCols, i)
		}
	}
	if len(rankCols) == 0 {
		return nil, nil, fmt.Errorf("no rank columns found in msforms header (expected a %q or %q column title)", "Choice", "Rank")
	}
	return records[1:], rankCols, nil
}

// candidateColumns locates every header column that isn't known form
// metadata, treating everything else as a candidate name column.
func candidateColumns(header []string) []int {
	metadata := map[string]bool{
		"id": true, "start time": true, "completion time": true,
		"email": true, "name": true,
	}
	var cols []int
	for i, h := range header {
		if metadata[strings.ToLower(strings.TrimSpace(h))] {
			continue
		}
		cols = append(cols, i)
	}
	return cols
}
