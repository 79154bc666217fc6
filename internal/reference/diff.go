// Package reference implements the `--reference PATH` structural diff (§12
// supplement): comparing a produced RCVTab-shaped report JSON against an
// expected-summary JSON, field-by-field, order-insensitive on objects and
// order-sensitive on arrays (so the `results` round array must match
// position-for-position, matching how the teacher's own vote/methods.go
// compares a submitted ballot value against a closed option set - a plain
// recursive structural walk, no fuzzy matching).
package reference

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Mismatch is one point of structural divergence between the produced and
// expected documents.
type Mismatch struct {
	Path     string
	Expected any
	Actual   any
	Reason   string
}

func (m Mismatch) String() string {
	switch m.Reason {
	case "missing":
		return fmt.Sprintf("%s: expected %v, but the produced report has no value", m.Path, m.Expected)
	case "extra":
		return fmt.Sprintf("%s: produced report has %v, but the reference document does not", m.Path, m.Actual)
	case "type":
		return fmt.Sprintf("%s: type mismatch (expected %T, got %T)", m.Path, m.Expected, m.Actual)
	default:
		return fmt.Sprintf("%s: expected %v, got %v", m.Path, m.Expected, m.Actual)
	}
}

// Compare decodes produced and expected as generic JSON and returns every
// structural mismatch between them. A nil, empty slice means the two
// documents are structurally identical.
func Compare(produced, expected []byte) ([]Mismatch, error) {
	var p, e any
	if err := json.Unmarshal(produced, &p); err != nil {
		return nil, fmt.Errorf("decoding produced report: %w", err)
	}
	if err := json.Unmarshal(expected, &e); err != nil {
		return nil, fmt.Errorf("decoding reference document: %w", err)
	}

	var mismatches []Mismatch
	walk("$", e, p, &mismatches)
	return mismatches, nil
}

// walk recursively compares expected (exp) against actual (act) at path,
// appending to out. Object key order never matters (Go's decoded
// map[string]any already discards it); array element order always matters,
// which is exactly what the `results` round array requires.
func walk(path string, exp, act any, out *[]Mismatch) {
	switch e := exp.(type) {
	case map[string]any:
		a, ok := act.(map[string]any)
		if !ok {
			*out = append(*out, Mismatch{Path: path, Expected: exp, Actual: act, Reason: "type"})
			return
		}
		for _, key := range sortedKeys(e) {
			childPath := path + "." + key
			av, present := a[key]
			if !present {
				*out = append(*out, Mismatch{Path: childPath, Expected: e[key], Reason: "missing"})
				continue
			}
			walk(childPath, e[key], av, out)
		}
		for _, key := range sortedKeys(a) {
			if _, present := e[key]; !present {
				*out = append(*out, Mismatch{Path: path + "." + key, Actual: a[key], Reason: "extra"})
			}
		}

	case []any:
		a, ok := act.([]any)
		if !ok {
			*out = append(*out, Mismatch{Path: path, Expected: exp, Actual: act, Reason: "type"})
			return
		}
		n := len(e)
		if len(a) > n {
			n = len(a)
		}
		for i := 0; i < n; i++ {
			childPath := fmt.Sprintf("%s[%d]", path, i)
			switch {
			case i >= len(e):
				*out = append(*out, Mismatch{Path: childPath, Actual: a[i], Reason: "extra"})
			case i >= len(a):
				*out = append(*out, Mismatch{Path: childPath, Expected: e[i], Reason: "missing"})
			default:
				walk(childPath, e[i], a[i], out)
			}
		}

	default:
		// Scalars: string, float64, bool, nil. RCVTab tallies and
		// thresholds are rendered as decimal strings, so a plain
		// equality check is exact - no float tolerance needed.
		if exp != act {
			*out = append(*out, Mismatch{Path: path, Expected: exp, Actual: act, Reason: "value"})
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
