package engine

import "strings"

// AggregatedBallot groups every NormalizedBallot with an identical choice
// sequence into one count, shrinking the working set the Round Engine
// iterates (spec.md §3, §4.2).
type AggregatedBallot struct {
	Choices   []Choice
	Count     int
	Truncated bool // carries NormalizedBallot.Truncated forward (spec.md §4.1 exhaust_ballot)
}

// Aggregate hashes canonical choice sequences and sums ballot weights.
// Ballots whose every choice is blank are set aside and folded into
// preRoundExhausted instead of appearing in the returned slice, per
// spec.md §4.2.
//
// Iteration order is insertion order: the first time a choice sequence is
// seen fixes its position in the returned slice. This keeps tie-break logs
// reproducible across runs of the same input (spec.md §4.2, §8 property 4)
// without imposing a content-hash ordering that would obscure input order
// in diagnostics.
func Aggregate(normalized []NormalizedBallot) (ballots []AggregatedBallot, preRoundExhausted int) {
	index := make(map[string]int, len(normalized))

	for _, nb := range normalized {
		if allBlank(nb.Choices) {
			preRoundExhausted += nb.Weight
			continue
		}

		key := choiceKey(nb.Choices)
		if nb.Truncated {
			key += "T"
		}
		if i, ok := index[key]; ok {
			ballots[i].Count += nb.Weight
			continue
		}

		index[key] = len(ballots)
		ballots = append(ballots, AggregatedBallot{Choices: nb.Choices, Count: nb.Weight, Truncated: nb.Truncated})
	}

	return ballots, preRoundExhausted
}

func allBlank(choices []Choice) bool {
	for _, c := range choices {
		if c.Kind != ChoiceBlank {
			return false
		}
	}
	return true
}

// choiceKey renders a choice sequence into a string suitable as a map key.
// It is a plain serialization, not a cryptographic hash - collisions are
// impossible since the alphabet (kind tag + candidate id, ';'-separated)
// is injective over the closed Choice tag set.
func choiceKey(choices []Choice) string {
	var b strings.Builder
	for _, c := range choices {
		switch c.Kind {
		case ChoiceCandidate:
			b.WriteByte('C')
			writeInt(&b, int(c.Candidate))
		case ChoiceOvervote:
			b.WriteByte('O')
		case ChoiceBlank:
			b.WriteByte('B')
		case ChoiceUndeclaredWriteIn:
			b.WriteByte('W')
		}
		b.WriteByte(';')
	}
	return b.String()
}

func writeInt(b *strings.Builder, n int) {
	if n == 0 {
		b.WriteByte('0')
		return
	}
	var digits [20]byte
	i := len(digits)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		digits[i] = '-'
	}
	b.Write(digits[i:])
}
