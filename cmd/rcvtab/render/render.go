// Package render prints a TabulationReport as a human-readable,
// round-by-round console report. It colorizes "elected"/"eliminated"
// labels only when the destination is a real terminal, using
// github.com/mattn/go-isatty to detect that and
// github.com/mattn/go-colorable to get a Windows-safe ANSI writer - neither
// library survived in a retrieved cmd/ package from the teacher, so this is
// built fresh in the idiom both document for themselves.
package render

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"

	"github.com/rcvtab/tabulator/internal/engine"
)

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// Writer wraps an io.Writer with whether it should be colorized.
type Writer struct {
	out   io.Writer
	color bool
}

// NewAutoWriter wraps out, detecting color support the way an *os.File
// destination would via go-isatty; a non-*os.File writer never colorizes.
func NewAutoWriter(out io.Writer) *Writer {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if color {
		out = colorable.NewColorable(out.(*os.File))
	}
	return &Writer{out: out, color: color}
}

func (w *Writer) paint(code, s string) string {
	if !w.color {
		return s
	}
	return code + s + ansiReset
}

// Report writes rep in RCVTab's familiar round-by-round console format.
func (w *Writer) Report(rep engine.TabulationReport, registry *engine.Registry) {
	for _, rr := range rep.Rounds {
		fmt.Fprintf(w.out, "%s\n", w.paint(ansiBold, fmt.Sprintf("Round %d", rr.RoundNumber)))
		fmt.Fprintf(w.out, "  threshold: %s\n", rr.Threshold.String())

		for _, id := range sortedByTally(rr.PerCandidateTally) {
			fmt.Fprintf(w.out, "  %-24s %s\n", registry.Name(id), rr.PerCandidateTally[id].String())
		}

		for _, id := range rr.ElectedThisRound {
			fmt.Fprintf(w.out, "  %s\n", w.paint(ansiGreen, fmt.Sprintf("elected: %s", registry.Name(id))))
		}
		for _, id := range rr.EliminatedThisRound {
			fmt.Fprintf(w.out, "  %s\n", w.paint(ansiRed, fmt.Sprintf("eliminated: %s", registry.Name(id))))
		}

		if rr.ExhaustedCount > 0 {
			fmt.Fprintf(w.out, "  exhausted so far: %d (overvote %d, skipped %d, undeclared %d, explicit %d, cursor %d)\n",
				rr.ExhaustedCount, rr.OvervoteCount, rr.SkippedCount, rr.UndeclaredCount, rr.ExplicitExhaustCount, rr.CursorPastEndCount)
		}
		for _, ev := range rr.TieBreakEvents {
			fmt.Fprintf(w.out, "  tie-break (%s): %s\n", ev.Method, namesJoined(registry, ev.CandidatesInTie))
		}
		fmt.Fprintln(w.out)
	}

	fmt.Fprintf(w.out, "%s %s\n", w.paint(ansiBold, "Winners:"), namesJoined(registry, rep.Winners))
	if len(rep.Undeclared) > 0 {
		fmt.Fprintf(w.out, "Undeclared at end of tabulation: %s\n", namesJoined(registry, rep.Undeclared))
	}
}

// sortedByTally orders a round's tally descending, ties broken by
// candidate id ascending - the same ordering report.go's RCVTabJSON uses,
// duplicated here since that helper is unexported.
func sortedByTally(tally map[engine.CandidateID]decimal.Decimal) []engine.CandidateID {
	ids := make([]engine.CandidateID, 0, len(tally))
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

func namesJoined(registry *engine.Registry, ids []engine.CandidateID) string {
	if len(ids) == 0 {
		return "(none)"
	}
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += registry.Name(id)
	}
	return out
}
