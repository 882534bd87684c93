// Package schedule provides learning-rate schedules as pure functions of the
// iteration count. Training loops call the schedule once per step; no state
// or callback machinery is involved.
package schedule

import "math"

// Schedule maps an iteration number (0-based) to a learning rate.
type Schedule func(iter int) float64

// Constant returns base for every iteration.
func Constant(base float64) Schedule {
	return func(int) float64 { return base }
}

// Step starts at base and switches to the value of the most recent breakpoint
// at or before the current iteration. Breakpoints must be given in increasing
// iteration order.
type Breakpoint struct {
	Iter int
	Rate float64
}

// Steps builds a piecewise-constant schedule from breakpoints.
func Steps(base float64, breakpoints ...Breakpoint) Schedule {
	return func(iter int) float64 {
		rate := base
		for _, bp := range breakpoints {
			if bp.Iter > iter {
				break
			}
			rate = bp.Rate
		}
		return rate
	}
}

// Exponential decays base by factor decay every decaySteps iterations:
// rate = base * decay^(iter/decaySteps).
func Exponential(base, decay float64, decaySteps int) Schedule {
	return func(iter int) float64 {
		return base * math.Pow(decay, float64(iter)/float64(decaySteps))
	}
}

// Ramp grows the rate linearly from start to peak over warmup iterations and
// holds peak afterwards. Used to stabilize the first steps of stochastic
// training.
func Ramp(start, peak float64, warmup int) Schedule {
	return func(iter int) float64 {
		if iter >= warmup || warmup == 0 {
			return peak
		}
		return start + (peak-start)*float64(iter)/float64(warmup)
	}
}
