// Package decode turns vendor/aggregator ballot export formats (CSV, NIST
// CDF JSON, Microsoft Forms exports, ES&S, Dominion, Qualtrics) into
// []engine.RawBallot. Nothing here is imported by internal/engine; the
// dependency points one way, out-of-scope collaborators feeding the pure
// core (SPEC_FULL.md §1, §11).
package decode

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rcvtab/tabulator/internal/engine"
)

// Format identifies one supported input layout (spec.md §7, §11 supplement).
type Format string

const (
	FormatCSV                    Format = "csv"
	FormatCSVLikert              Format = "csv_likert"
	FormatCDF                    Format = "cdf"
	FormatMSForms                Format = "msforms"
	FormatMSFormsLikert          Format = "msforms_likert"
	FormatMSFormsLikertTranspose Format = "msforms_likert_transpose"
	FormatESS                    Format = "ess"
	FormatDominion               Format = "dominion"
	FormatQualtrics              Format = "qualtrics"
)

// Row is one undecoded unit of work: a decoder turns it into exactly one
// RawBallot, or an error. A Row need not be one line of the input: the
// Likert-transpose layout gathers one respondent's cells from many input
// rows into one Row, which is why Split works over the whole raw document.
type Row struct {
	Index int
	Raw   []byte
}

// Decoder converts one vendor input document into RawBallots. Split(raw)
// partitions the document into independently decodable units (CSV data
// rows, CDF CVR records, ...); DecodeRow turns one unit into a ballot.
// Decode drives Split then fans DecodeRow out across a bounded worker pool.
type Decoder interface {
	Split(raw []byte) ([]Row, error)
	DecodeRow(row Row) (engine.RawBallot, error)
}

// registry maps each Format to its Decoder. Populated by each format file's
// init().
var registry = map[Format]Decoder{}

func register(f Format, d Decoder) {
	registry[f] = d
}

// Lookup returns the Decoder for f, or an ErrInputDecode MessageError if f
// is not a registered format.
func Lookup(f Format) (Decoder, error) {
	d, ok := registry[f]
	if !ok {
		return nil, engine.MessageError{Kind: engine.ErrInputDecode, Msg: fmt.Sprintf("unknown input format %q", f)}
	}
	return d, nil
}

// Options configures Decode's concurrency and error-accumulation behavior.
type Options struct {
	// Threads bounds concurrent DecodeRow calls. Zero means
	// runtime.NumCPU() (spec.md §11 supplement, `--threads`).
	Threads int
	// MaxErrors bounds how many per-row errors Decode collects (spec.md §7:
	// "accumulate up to 100 input errors"); once it is reached, the outcome
	// of every row finished afterwards is dropped. Decode does not return
	// early. Zero means the spec.md default of 100.
	MaxErrors int
}

// RowError pairs a Row.Index with the error DecodeRow produced for it.
type RowError struct {
	Index int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

// Result is Decode's return value: every successfully decoded ballot, plus
// every row-level error encountered (bounded by Options.MaxErrors), in no
// particular order relative to each other - callers needing input-order
// output should sort ballots by (the decoder-assigned) RawBallot.ID.
type Result struct {
	Ballots []engine.RawBallot
	Errors  []RowError
}

// Decode splits raw with f's registered Decoder and fans DecodeRow out
// across a bounded errgroup.Group, matching the teacher's own appetite for
// golang.org/x/sync/errgroup-based fan-out (grounded via the retrieval
// pack's broader corpus, since the teacher itself decodes ballots
// synchronously; concurrency here is confined to this out-of-scope decode
// layer, never the engine - spec.md §5, SPEC_FULL.md §11).
//
// Decode never returns a non-nil error itself for per-row decode failures;
// those land in Result.Errors up to opts.MaxErrors, after which the
// outcome of every remaining row, ballot or error, is left out of the
// Result; DecodeRow still runs for those rows. A non-nil error return means
// Split itself failed - the document could not be partitioned at all - or
// ctx was cancelled.
func Decode(ctx context.Context, f Format, raw []byte, opts Options) (Result, error) {
	d, err := Lookup(f)
	if err != nil {
		return Result{}, err
	}

	rows, err := d.Split(raw)
	if err != nil {
		return Result{}, engine.MessageError{Kind: engine.ErrInputDecode, Msg: fmt.Sprintf("splitting %s input: %s", f, err)}
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxErrors := opts.MaxErrors
	if maxErrors <= 0 {
		maxErrors = 100
	}

	var (
		mu      sync.Mutex
		ballots = make([]engine.RawBallot, 0, len(rows))
		rowErrs []RowError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	for _, row := range rows {
		row := row
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			ballot, err := d.DecodeRow(row)

			mu.Lock()
			defer mu.Unlock()
			if len(rowErrs) >= maxErrors {
				return nil
			}
			if err != nil {
				rowErrs = append(rowErrs, RowError{Index: row.Index, Err: err})
				return nil
			}
			ballots = append(ballots, ballot)
			return nil
		})
	}

	// The only error g.Wait() can return is gctx.Err() (context
	// cancellation); per-row decode failures are intentionally absorbed
	// above so one bad row never aborts the whole decode.
	if err := g.Wait(); err != nil {
		return Result{Ballots: ballots, Errors: rowErrs}, engine.MessageError{Kind: engine.ErrInputDecode, Msg: err.Error()}
	}

	return Result{Ballots: ballots, Errors: rowErrs}, nil
}
