// Package combiner enumerates charge-balanced particle subsets and computes
// their combined invariant mass.
package combiner

// Option applies a configuration option to the SubsetCombiner.
type Option func(*SubsetCombiner)

// WithSubsetSize sets how many particles form one combination.
func WithSubsetSize(k int) Option {
	return func(c *SubsetCombiner) {
		if k >= 2 {
			c.subsetSize = k
		}
	}
}

// WithTotalCharge sets the required charge sum for a subset to be kept.
func WithTotalCharge(q int) Option {
	return func(c *SubsetCombiner) {
		c.totalCharge = q
	}
}
