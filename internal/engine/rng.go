package engine

import "math/rand/v2"

// newSeededRNG returns a deterministic, cross-platform-stable random source
// seeded from rules.RandomSeed. spec.md §4.4 requires the seeded stream to
// be "a documented linear congruential or hash-based stream" so a given
// (seed, candidate_set) always yields the same ordering everywhere; PCG is
// the stdlib generator Go documents as exactly that (see math/rand/v2),
// and it is the same package the teacher reaches for directly in
// vote/stv_scottish.go, only there via the unseeded global source.
func newSeededRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// permutationFromSeed returns a deterministic permutation of [0, n) derived
// from seed, used by tiebreakMode random/generate_permutation (spec.md
// §4.4). It is computed once at engine start and held for the whole
// tabulation.
func permutationFromSeed(seed uint64, n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	r := newSeededRNG(seed)
	r.Shuffle(n, func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})
	return perm
}
