// Command rcvtab is the CLI wrapper around internal/engine.Tabulate
// (spec.md §6). Flag dispatch uses github.com/alecthomas/kong, the
// teacher's own direct go.mod dependency; no cmd/ package using it survived
// retrieval, so this is built fresh in kong's own documented idiom - a
// single tagged struct passed to kong.Parse.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/rcvtab/tabulator/cmd/rcvtab/render"
	"github.com/rcvtab/tabulator/internal/config"
	"github.com/rcvtab/tabulator/internal/decode"
	"github.com/rcvtab/tabulator/internal/engine"
	"github.com/rcvtab/tabulator/internal/log"
	"github.com/rcvtab/tabulator/internal/reference"
)

// cli is the complete flag surface spec.md §6 names.
type cli struct {
	Input     string `help:"Ballot file to tabulate." required:"" type:"existingfile"`
	Format    string `help:"Input format: ess, dominion, cdf, msforms, msforms_likert, msforms_likert_transpose, csv, csv_likert. Auto-detected from the file extension when omitted."`
	Config    string `help:"JSON rules file (RCVTab-compatible)." required:"" type:"existingfile"`
	Out       string `help:"JSON report output path, or /dev/null to discard." default:"/dev/null"`
	Reference string `help:"Optional JSON expected-summary file for regression checking." optional:""`
	Threads   int    `help:"Bounds decoder concurrency. Defaults to runtime.NumCPU()." default:"0"`
	LogLevel  string `help:"debug, info, warn, or error." default:"info" enum:"debug,info,warn,error"`
	LogFormat string `help:"text or json." default:"text" enum:"text,json"`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("rcvtab"),
		kong.Description("Ranked-choice voting tabulator."),
	)

	os.Exit(run(c))
}

// run implements the CLI's exit-code contract (spec.md §6): 0 success, 1
// input/config error, 2 reference mismatch, 3 tie requires external
// resolution, 4 internal invariant violation.
func run(c cli) int {
	logger := log.New(log.Config{Level: log.Level(c.LogLevel), Format: log.Format(c.LogFormat)})

	rulesRaw, err := os.ReadFile(c.Config)
	if err != nil {
		logger.Error("reading rules config", err, "path", c.Config)
		return 1
	}
	rules, err := config.Parse(rulesRaw)
	if err != nil {
		logger.Error("parsing rules config", err)
		return exitCodeFor(err)
	}

	format := decode.Format(c.Format)
	if format == "" {
		format, err = detectFormat(c.Input)
		if err != nil {
			logger.Error("detecting input format", err)
			return 1
		}
	}

	ballotRaw, err := os.ReadFile(c.Input)
	if err != nil {
		logger.Error("reading ballot file", err, "path", c.Input)
		return 1
	}

	decoded, err := decode.Decode(context.Background(), format, ballotRaw, decode.Options{Threads: c.Threads})
	if err != nil {
		logger.Error("decoding ballot file", err, "format", string(format))
		return 1
	}
	for _, rowErr := range decoded.Errors {
		logger.Warn("skipped unreadable ballot row", "row", rowErr.Index, "error", rowErr.Err.Error())
	}
	logger.Info("decoded ballots", "count", len(decoded.Ballots), "row_errors", len(decoded.Errors))

	report, err := engine.Tabulate(rules, decoded.Ballots, nil)
	if err != nil {
		logger.Error("tabulating", err)
		return exitCodeFor(err)
	}

	registry := engine.NewRegistry(rules.CandidateNames, rules.ExcludedCandidates)

	reportJSON, err := report.RCVTabJSON(registry, rulesRaw)
	if err != nil {
		logger.Error("rendering report JSON", err)
		return 4
	}
	if err := os.WriteFile(c.Out, reportJSON, 0o644); err != nil {
		logger.Error("writing report output", err, "path", c.Out)
		return 1
	}

	w := render.NewAutoWriter(os.Stdout)
	w.Report(report, registry)

	if c.Reference != "" {
		expected, err := os.ReadFile(c.Reference)
		if err != nil {
			logger.Error("reading reference document", err, "path", c.Reference)
			return 1
		}
		mismatches, err := reference.Compare(reportJSON, expected)
		if err != nil {
			logger.Error("comparing against reference document", err)
			return 1
		}
		if len(mismatches) > 0 {
			for _, m := range mismatches {
				fmt.Fprintln(os.Stderr, m.String())
			}
			logger.Warn("reference comparison failed", "mismatches", len(mismatches))
			return 2
		}
		logger.Info("reference comparison passed")
	}

	return 0
}

// exitCodeFor maps an engine error to spec.md §6's process exit codes.
// Every classified engine error, whether a MessageError or one of the
// standalone types (UnknownCandidateError, TieError, ...), implements
// Type() string returning its ErrorKind.String(); that is enough to look
// the exit code up without a type switch over every concrete error type.
// An error without Type(), such as engine.ErrCancelledSentinel, maps to 1.
func exitCodeFor(err error) int {
	typed, ok := err.(interface{ Type() string })
	if !ok {
		return 1
	}
	switch typed.Type() {
	case engine.ErrTieRequiresExternalResolution.String():
		return 3
	case engine.ErrInvariantViolation.String():
		return 4
	default:
		return 1
	}
}

// detectFormat guesses a decode.Format from c.Input's extension and
// filename conventions, since --format is optional (spec.md §6).
func detectFormat(path string) (decode.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	base := strings.ToLower(filepath.Base(path))

	switch {
	case ext == ".json" && strings.Contains(base, "dominion"):
		return decode.FormatDominion, nil
	case ext == ".json" && strings.Contains(base, "cvr"):
		return decode.FormatCDF, nil
	case ext == ".json":
		return decode.FormatCDF, nil
	case strings.Contains(base, "qualtrics"):
		return decode.FormatQualtrics, nil
	case strings.Contains(base, "ess"):
		return decode.FormatESS, nil
	case strings.Contains(base, "msforms") && strings.Contains(base, "transpose"):
		return decode.FormatMSFormsLikertTranspose, nil
	case strings.Contains(base, "msforms") && strings.Contains(base, "likert"):
		return decode.FormatMSFormsLikert, nil
	case strings.Contains(base, "msforms"):
		return decode.FormatMSForms, nil
	case strings.Contains(base, "likert"):
		return decode.FormatCSVLikert, nil
	case ext == ".csv":
		return decode.FormatCSV, nil
	default:
		return "", fmt.Errorf("cannot auto-detect input format for %q; pass --format explicitly", path)
	}
}
