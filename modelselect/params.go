// Package modelselect implements hyperparameter search: parameter spaces,
// cross-validation splitters, and grid or randomized search over any
// estimator satisfying the core/model contracts.
package modelselect

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// Domain describes the values a single hyperparameter may take.
type Domain interface {
	// Sample draws one value from the domain.
	Sample(rng *rand.Rand) interface{}

	// Enumerate returns every value of a finite domain. Continuous domains
	// return an error; they can only be sampled.
	Enumerate() ([]interface{}, error)
}

// Values is an explicit finite set of candidate values.
type Values []interface{}

// Sample draws one of the listed values uniformly.
func (v Values) Sample(rng *rand.Rand) interface{} {
	return v[rng.IntN(len(v))]
}

// Enumerate returns the listed values in order.
func (v Values) Enumerate() ([]interface{}, error) {
	if len(v) == 0 {
		return nil, errors.NewValueError("Values.Enumerate", "empty value set")
	}
	out := make([]interface{}, len(v))
	copy(out, v)
	return out, nil
}

// Uniform is a continuous domain sampled uniformly from [Low, High).
type Uniform struct {
	Low  float64
	High float64
}

// Sample draws uniformly from the interval.
func (u Uniform) Sample(rng *rand.Rand) interface{} {
	return distuv.Uniform{Min: u.Low, Max: u.High, Src: rng}.Rand()
}

// Enumerate always fails: a continuous interval has no finite enumeration.
func (u Uniform) Enumerate() ([]interface{}, error) {
	return nil, errors.NewValueError("Uniform.Enumerate",
		"continuous domain cannot be enumerated for a grid; use RandomizedSearch")
}

// LogUniform is a continuous domain whose logarithm is uniform on
// [log(Low), log(High)). Useful for scale parameters like learning rates.
type LogUniform struct {
	Low  float64
	High float64
}

// Sample draws log-uniformly from the interval.
func (l LogUniform) Sample(rng *rand.Rand) interface{} {
	logDraw := distuv.Uniform{Min: math.Log(l.Low), Max: math.Log(l.High), Src: rng}.Rand()
	return math.Exp(logDraw)
}

// Enumerate always fails: a continuous interval has no finite enumeration.
func (l LogUniform) Enumerate() ([]interface{}, error) {
	return nil, errors.NewValueError("LogUniform.Enumerate",
		"continuous domain cannot be enumerated for a grid; use RandomizedSearch")
}

// IntRange is the inclusive integer range [Low, High].
type IntRange struct {
	Low  int
	High int
}

// Sample draws an integer uniformly from the range.
func (r IntRange) Sample(rng *rand.Rand) interface{} {
	return r.Low + rng.IntN(r.High-r.Low+1)
}

// Enumerate returns every integer in the range.
func (r IntRange) Enumerate() ([]interface{}, error) {
	if r.High < r.Low {
		return nil, errors.NewValueError("IntRange.Enumerate",
			fmt.Sprintf("empty range [%d, %d]", r.Low, r.High))
	}
	out := make([]interface{}, 0, r.High-r.Low+1)
	for v := r.Low; v <= r.High; v++ {
		out = append(out, v)
	}
	return out, nil
}

// Space maps hyperparameter names to their domains.
type Space map[string]Domain

// names returns the parameter names in sorted order so enumeration and
// sampling are deterministic regardless of map iteration order.
func (s Space) names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GridCandidates enumerates the full cross product of a space of finite
// domains. A continuous domain in the space is a configuration error.
func GridCandidates(space Space) ([]map[string]interface{}, error) {
	if len(space) == 0 {
		return nil, errors.NewValueError("GridCandidates", "empty parameter space")
	}

	names := space.names()
	domains := make([][]interface{}, len(names))
	total := 1
	for i, name := range names {
		values, err := space[name].Enumerate()
		if err != nil {
			return nil, errors.NewConfigurationError("", name, nil, err.Error())
		}
		domains[i] = values
		total *= len(values)
	}

	candidates := make([]map[string]interface{}, 0, total)
	indices := make([]int, len(names))
	for {
		candidate := make(map[string]interface{}, len(names))
		for i, name := range names {
			candidate[name] = domains[i][indices[i]]
		}
		candidates = append(candidates, candidate)

		// Odometer increment over the per-domain indices.
		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(domains[pos]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}

	return candidates, nil
}

// SampleCandidates draws budget independent configurations from the space,
// each parameter sampled from its own domain. The draw sequence is
// deterministic for a given seed.
func SampleCandidates(space Space, budget int, seed uint64) ([]map[string]interface{}, error) {
	if len(space) == 0 {
		return nil, errors.NewValueError("SampleCandidates", "empty parameter space")
	}
	if budget <= 0 {
		return nil, errors.NewValueError("SampleCandidates",
			fmt.Sprintf("budget must be positive, got %d", budget))
	}

	names := space.names()
	for _, name := range names {
		switch d := space[name].(type) {
		case Values:
			if len(d) == 0 {
				return nil, errors.NewValueError("SampleCandidates",
					fmt.Sprintf("parameter %q has an empty value set", name))
			}
		case IntRange:
			if d.High < d.Low {
				return nil, errors.NewValueError("SampleCandidates",
					fmt.Sprintf("parameter %q has an empty range [%d, %d]", name, d.Low, d.High))
			}
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed))

	candidates := make([]map[string]interface{}, 0, budget)
	for draw := 0; draw < budget; draw++ {
		candidate := make(map[string]interface{}, len(names))
		for _, name := range names {
			candidate[name] = space[name].Sample(rng)
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}
