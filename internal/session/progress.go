package session

// Progress returns the share of the pool already resolved, as a percentage
// in [0, 100]. An empty pool reports 0.
func Progress(stats Stats, poolSize int) float64 {
	if poolSize <= 0 {
		return 0
	}
	p := float64(stats.Total()) / float64(poolSize) * 100
	return max(0, min(p, 100))
}

// Complete reports whether the learner has worked through the whole pool
func Complete(stats Stats, poolSize int) bool {
	return Progress(stats, poolSize) == 100
}
