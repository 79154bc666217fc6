package engine

// CancelFunc is checked at each round boundary (spec.md §5). It is a plain
// predicate rather than context.Context because the engine has nothing else
// context-shaped to carry - no deadlines, no request-scoped values - and a
// single func() bool is the smaller, more direct fit; this is the one place
// this package deliberately departs from context-threading conventions
// elsewhere in the teacher's codebase (vote/vote.go, internal/vote/run.go),
// both of which thread a context through genuinely concurrent, I/O-bound
// work that the engine does not do.
type CancelFunc func() bool
