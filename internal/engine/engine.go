package engine

// Tabulate is the package's single entry point (spec.md §3, §5). It wires
// the Ballot Normalizer, Aggregator, Round Engine, and Tie-Break Arbiter
// together over one immutable Rules configuration and one slice of raw
// ballots, and returns a complete TabulationReport or a classified error.
// Nothing here retains state past one call; a second Tabulate call with the
// same arguments reproduces the same report bit-for-bit (spec.md §8).
func Tabulate(rules *Rules, raw []RawBallot, cancel CancelFunc) (TabulationReport, error) {
	if err := rules.Validate(); err != nil {
		return TabulationReport{}, err
	}

	registry := NewRegistry(rules.CandidateNames, rules.ExcludedCandidates)

	normalized, discards, err := NormalizeBallots(registry, rules, raw)
	if err != nil {
		return TabulationReport{}, err
	}

	aggregated, preRoundExhausted := Aggregate(normalized)

	re := newRoundEngine(registry, rules, aggregated)
	arb, err := NewArbiter(rules, registry, re)
	if err != nil {
		return TabulationReport{}, err
	}
	re.arbiter = arb

	report, err := re.Run(preRoundExhausted, discards.UnknownCandidate, cancel)
	if err != nil {
		return TabulationReport{}, err
	}
	report.Summary = BuildSummary(report, registry)
	return report, nil
}
