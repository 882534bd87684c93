package modelselect

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridCandidatesCrossProduct(t *testing.T) {
	space := Space{
		"n_neighbors": Values{1, 3, 5},
		"weights":     Values{"uniform", "distance"},
	}

	candidates, err := GridCandidates(space)
	require.NoError(t, err)
	assert.Len(t, candidates, 6, "3 x 2 cross product")

	// Every combination appears exactly once.
	seen := map[[2]interface{}]int{}
	for _, candidate := range candidates {
		seen[[2]interface{}{candidate["n_neighbors"], candidate["weights"]}]++
	}
	assert.Len(t, seen, 6)
	for combo, count := range seen {
		assert.Equal(t, 1, count, "combination %v", combo)
	}
}

func TestGridCandidatesIntRange(t *testing.T) {
	candidates, err := GridCandidates(Space{"k": IntRange{Low: 2, High: 5}})
	require.NoError(t, err)
	require.Len(t, candidates, 4)
	assert.Equal(t, 2, candidates[0]["k"])
	assert.Equal(t, 5, candidates[3]["k"])
}

func TestGridCandidatesDeterministicOrder(t *testing.T) {
	space := Space{
		"b": Values{1, 2},
		"a": Values{"x", "y"},
	}

	first, err := GridCandidates(space)
	require.NoError(t, err)
	second, err := GridCandidates(space)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGridCandidatesRejectsContinuousDomains(t *testing.T) {
	for name, domain := range map[string]Domain{
		"uniform":     Uniform{Low: 0, High: 1},
		"log_uniform": LogUniform{Low: 1e-4, High: 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := GridCandidates(Space{"alpha": domain})
			require.Error(t, err)
			assert.ErrorContains(t, err, "alpha")
		})
	}
}

func TestGridCandidatesEmptySpace(t *testing.T) {
	_, err := GridCandidates(Space{})
	assert.Error(t, err)

	_, err = GridCandidates(Space{"k": Values{}})
	assert.Error(t, err)
}

func TestSampleCandidatesDeterministicPerSeed(t *testing.T) {
	space := Space{
		"alpha":       LogUniform{Low: 1e-4, High: 1},
		"eta0":        Uniform{Low: 0.01, High: 0.5},
		"n_neighbors": IntRange{Low: 1, High: 20},
		"weights":     Values{"uniform", "distance"},
	}

	a, err := SampleCandidates(space, 25, 42)
	require.NoError(t, err)
	b, err := SampleCandidates(space, 25, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same seed, same draws")

	c, err := SampleCandidates(space, 25, 43)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different seed, different draws")
}

func TestSampleCandidatesRespectsDomains(t *testing.T) {
	space := Space{
		"alpha": LogUniform{Low: 1e-3, High: 1e-1},
		"k":     IntRange{Low: 2, High: 4},
	}

	candidates, err := SampleCandidates(space, 200, 7)
	require.NoError(t, err)
	require.Len(t, candidates, 200)

	for _, candidate := range candidates {
		alpha := candidate["alpha"].(float64)
		assert.GreaterOrEqual(t, alpha, 1e-3)
		assert.Less(t, alpha, 1e-1)

		k := candidate["k"].(int)
		assert.GreaterOrEqual(t, k, 2)
		assert.LessOrEqual(t, k, 4)
	}
}

func TestSampleCandidatesValidation(t *testing.T) {
	_, err := SampleCandidates(Space{}, 10, 1)
	assert.Error(t, err, "empty space")

	_, err = SampleCandidates(Space{"k": Values{1}}, 0, 1)
	assert.Error(t, err, "zero budget")

	_, err = SampleCandidates(Space{"k": Values{}}, 10, 1)
	assert.Error(t, err, "empty value set")

	_, err = SampleCandidates(Space{"k": IntRange{Low: 5, High: 2}}, 10, 1)
	assert.Error(t, err, "empty range")
}

func TestLogUniformSamplesSpanScales(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	domain := LogUniform{Low: 1e-4, High: 1}

	below := 0
	for i := 0; i < 1000; i++ {
		v := domain.Sample(rng).(float64)
		require.GreaterOrEqual(t, v, 1e-4)
		require.Less(t, v, 1.0)
		if v < 1e-2 {
			below++
		}
	}
	// Log-uniform puts half the mass below the geometric midpoint.
	assert.Greater(t, below, 350)
	assert.Less(t, below, 650)
}
