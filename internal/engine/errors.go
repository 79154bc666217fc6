// Package engine implements the ranked-choice tabulation pipeline: ballot
// normalization, aggregation, round-by-round elimination and election, tie
// breaking, and report assembly. Tabulate is the single entry point; nothing
// in this package performs I/O or retains state beyond one call.
package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine errors into the closed set the tabulator can
// produce. It is never extended at runtime.
type ErrorKind int

const (
	// ErrInputDecode wraps a failure raised by an external ballot decoder.
	ErrInputDecode ErrorKind = iota
	// ErrUnknownCandidate is raised for a ballot entry naming a candidate
	// outside the closed registry, unless rules permit rewriting it to an
	// undeclared write-in.
	ErrUnknownCandidate
	// ErrDuplicateCandidate is raised when a ballot ranks the same
	// candidate twice and duplicateCandidateMode is "error".
	ErrDuplicateCandidate
	// ErrUnknownRuleOption is raised for any unrecognized key in the rules
	// document.
	ErrUnknownRuleOption
	// ErrInconsistentRules is raised when rule fields contradict each
	// other (e.g. numberOfWinners > 1 with a single-seat mode).
	ErrInconsistentRules
	// ErrTieRequiresExternalResolution is raised when tiebreakMode is
	// stop_counting_and_ask and a tie is encountered.
	ErrTieRequiresExternalResolution
	// ErrCancelled classifies cancellation by the caller's predicate
	// between rounds. The Round Engine itself reports a cancellation with
	// the plain ErrCancelledSentinel, not a MessageError of this kind.
	ErrCancelled
	// ErrInvariantViolation indicates an engine bug: an invariant spec.md
	// §8 promises was violated.
	ErrInvariantViolation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInputDecode:
		return "input_decode_error"
	case ErrUnknownCandidate:
		return "unknown_candidate"
	case ErrDuplicateCandidate:
		return "duplicate_candidate_on_ballot"
	case ErrUnknownRuleOption:
		return "unknown_rule_option"
	case ErrInconsistentRules:
		return "inconsistent_rules"
	case ErrTieRequiresExternalResolution:
		return "tie_requires_external_resolution"
	case ErrCancelled:
		return "cancelled"
	case ErrInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit code spec.md §6 assigns to this kind of
// failure. Nothing inside the engine calls it; cmd/rcvtab maps exit codes
// from Type() strings in its own exitCodeFor.
func (k ErrorKind) ExitCode() int {
	switch k {
	case ErrTieRequiresExternalResolution:
		return 3
	case ErrInvariantViolation:
		return 4
	default:
		return 1
	}
}

// MessageError is a classified, user-facing error. It mirrors the teacher's
// MessageError/Type() idiom: a closed Kind plus a human message, always
// wrapping (via errors.Is) to its Kind so callers can branch without string
// matching.
type MessageError struct {
	Kind ErrorKind
	Msg  string
}

func (e MessageError) Error() string {
	return e.Msg
}

// Type returns the error kind as a string, matching the teacher's
// error-classification idiom (vote/http/error.go's writeFormattedError).
func (e MessageError) Type() string {
	return e.Kind.String()
}

// Is reports whether target is a MessageError of the same Kind, so
// errors.Is(err, engine.MessageError{Kind: k}) matches any MessageError of
// kind k whatever its Msg. Kind itself does not implement error, so it
// cannot be passed to errors.Is directly; errors.As(err,
// &engine.MessageError{}) followed by a look at Kind works too.
func (e MessageError) Is(target error) bool {
	var other MessageError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// newMessageError builds a MessageError of kind whose Msg is format
// formatted with args.
func newMessageError(kind ErrorKind, format string, args ...any) MessageError {
	return MessageError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// UnknownCandidateError is raised by the normalizer.
type UnknownCandidateError struct {
	Name     string
	BallotID string
}

func (e UnknownCandidateError) Error() string {
	if e.BallotID != "" {
		return fmt.Sprintf("unknown candidate %q on ballot %s", e.Name, e.BallotID)
	}
	return fmt.Sprintf("unknown candidate %q", e.Name)
}

func (e UnknownCandidateError) Type() string { return ErrUnknownCandidate.String() }

// DuplicateCandidateError is raised by the normalizer under
// duplicateCandidateMode=error.
type DuplicateCandidateError struct {
	Candidate string
	BallotID  string
}

func (e DuplicateCandidateError) Error() string {
	if e.BallotID != "" {
		return fmt.Sprintf("candidate %q appears twice on ballot %s", e.Candidate, e.BallotID)
	}
	return fmt.Sprintf("candidate %q appears twice on ballot", e.Candidate)
}

func (e DuplicateCandidateError) Type() string { return ErrDuplicateCandidate.String() }

// TieError is raised under tiebreakMode=stop_counting_and_ask. It satisfies
// an ExternalResolutionRequired() marker, following the teacher's
// single-method marker-interface idiom (backend/memory/memory.go).
type TieError struct {
	Round      int
	Candidates []CandidateID
}

func (e TieError) Error() string {
	return fmt.Sprintf("round %d: tie between %d candidates requires external resolution", e.Round, len(e.Candidates))
}

func (e TieError) Type() string { return ErrTieRequiresExternalResolution.String() }

// ExternalResolutionRequired marks TieError for errors.As-based detection,
// mirroring backend/memory/memory.go's doesNotExistError.DoesNotExist().
func (e TieError) ExternalResolutionRequired() {}

// InvariantViolationError indicates a bug: the engine detected its own
// output violating one of spec.md §8's invariants.
type InvariantViolationError struct {
	Detail string
}

func (e InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Detail)
}

func (e InvariantViolationError) Type() string { return ErrInvariantViolation.String() }

// ErrCancelledSentinel is returned verbatim (no wrapping detail) when the
// caller's cancellation predicate trips. It is a plain sentinel, not a
// MessageError, because it carries no message worth formatting - mirroring
// context.Canceled's own treatment as a bare sentinel in vote/http/error.go.
var ErrCancelledSentinel = errors.New("cancelled")
