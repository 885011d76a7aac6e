package cohort

import "math/rand"

// Option applies a configuration option to a Generator.
type Option func(*Generator)

// WithSeed makes the generated cohort reproducible from seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed))
	}
}

// WithIDPrefix numbers students prefix001, prefix002, ... instead of
// using random UUIDs.
func WithIDPrefix(prefix string) Option {
	return func(g *Generator) {
		g.idPrefix = prefix
	}
}
