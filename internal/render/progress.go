package render

import (
	"math"
	"sync"
	"time"
)

// progressCap is the ceiling for estimated progress. The engine gives no
// true progress signal, so the estimate approaches but never reports
// completion on its own; only a successful read of the output snaps to 100.
const progressCap = 95.0

// Estimator converts elapsed wall time into an estimated completion
// percentage. The curve is 95·(1−e^(−t/τ)) with τ scaled by the size of the
// instruction list, which makes the estimate monotonic by construction and
// keeps short jobs from crawling and long jobs from pinning at the cap too
// early.
type Estimator struct {
	start time.Time
	tau   time.Duration

	mu   sync.Mutex
	last float64
}

// NewEstimator starts the clock for a job with the given instruction count.
func NewEstimator(instructionCount int) *Estimator {
	tau := 15*time.Second + 5*time.Second*time.Duration(instructionCount)
	return &Estimator{start: time.Now(), tau: tau}
}

// Estimate returns the current percentage in [0, 95]. Successive calls never
// decrease even if the clock misbehaves.
func (e *Estimator) Estimate() float64 {
	elapsed := time.Since(e.start)
	pct := progressCap * (1 - math.Exp(-float64(elapsed)/float64(e.tau)))

	e.mu.Lock()
	defer e.mu.Unlock()
	if pct < e.last {
		return e.last
	}
	e.last = pct
	return pct
}
