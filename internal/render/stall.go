package render

import "math"

const (
	DefaultStallPolls   = 60
	DefaultStallEpsilon = 0.001
)

// StallDetector counts consecutive polls whose progress moved less than
// Epsilon. It belongs to a single polling loop.
type StallDetector struct {
	Threshold int
	Epsilon   float64

	last  float64
	count int
}

func NewStallDetector(threshold int) *StallDetector {
	if threshold <= 0 {
		threshold = DefaultStallPolls
	}
	return &StallDetector{Threshold: threshold, Epsilon: DefaultStallEpsilon}
}

// Observe records progress p and reports whether the render is stalled,
// i.e. Threshold consecutive observations changed by less than Epsilon.
func (d *StallDetector) Observe(p float64) bool {
	if math.Abs(p-d.last) < d.Epsilon {
		d.count++
	} else {
		d.count = 0
	}
	d.last = p
	return d.count >= d.Threshold
}

// Count is the number of consecutive unchanged observations.
func (d *StallDetector) Count() int {
	return d.count
}
