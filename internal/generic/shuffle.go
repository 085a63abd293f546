package generic

// Shuffle permutes the slice in place using the Fisher-Yates algorithm. The
// intn function must return a pseudo-random number in [0, n), which allows
// the caller to supply a seeded or scripted source.
func Shuffle[T any](s []T, intn func(n int) int) {
	for i := len(s) - 1; i > 0; i-- {
		j := intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
