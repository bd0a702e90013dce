package searcher

import "math"

type uct struct {
	numerator float64
}

// newUCT precomputes alpha^2 * ln(N) for a parent visited N times.
func newUCT(alpha float64, N float64) *uct {
	if N < 1 {
		N = 1 // every child may be in flight before the first backup lands
	}
	return &uct{numerator: alpha * alpha * math.Log(N)}
}

func (u uct) evaluate(q float64, n float64) float64 {
	// Prioritize unexplored nodes
	if n == 0 {
		return math.Inf(1)
	}
	// UCT = q/n + alpha*sqrt(ln(N)/n)
	return q/n + math.Sqrt(u.numerator/n)
}
