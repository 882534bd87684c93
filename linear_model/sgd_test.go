package linear_model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

func separable() (X, y *mat.Dense) {
	X = mat.NewDense(10, 2, []float64{
		-2.0, -1.9,
		-1.8, -2.1,
		-2.2, -2.0,
		-1.9, -1.8,
		-2.1, -2.2,
		2.0, 1.9,
		1.8, 2.1,
		2.2, 2.0,
		1.9, 1.8,
		2.1, 2.2,
	})
	y = mat.NewDense(10, 1, []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1})
	return X, y
}

func TestSGDFitPredictSeparable(t *testing.T) {
	X, y := separable()
	clf := NewSGDClassifier(WithMaxIter(200), WithRandomState(42))
	require.NoError(t, clf.Fit(X, y))

	acc, err := clf.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)
}

func TestSGDPredictProbaOrdering(t *testing.T) {
	X, y := separable()
	clf := NewSGDClassifier(WithMaxIter(200), WithRandomState(42))
	require.NoError(t, clf.Fit(X, y))

	proba, err := clf.PredictProba(mat.NewDense(2, 2, []float64{-2, -2, 2, 2}))
	require.NoError(t, err)

	assert.Greater(t, proba.At(0, 0), proba.At(0, 1), "negative point favors class 0")
	assert.Greater(t, proba.At(1, 1), proba.At(1, 0), "positive point favors class 1")
	assert.InDelta(t, 1.0, proba.At(0, 0)+proba.At(0, 1), 1e-9)
}

func TestSGDDeterministicGivenSeed(t *testing.T) {
	X, y := separable()

	a := NewSGDClassifier(WithMaxIter(50), WithRandomState(7))
	require.NoError(t, a.Fit(X, y))
	b := NewSGDClassifier(WithMaxIter(50), WithRandomState(7))
	require.NoError(t, b.Fit(X, y))

	assert.Equal(t, a.weights, b.weights)
	assert.Equal(t, a.intercept, b.intercept)
}

func TestSGDRejectsMulticlass(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 2})
	y := mat.NewDense(3, 1, []float64{0, 1, 2})
	clf := NewSGDClassifier()
	assert.Error(t, clf.Fit(X, y))
}

func TestSGDLearningRateSchedules(t *testing.T) {
	X, y := separable()
	for _, name := range []string{"constant", "exponential", "ramp"} {
		t.Run(name, func(t *testing.T) {
			clf := NewSGDClassifier(WithLearningRate(name), WithMaxIter(100), WithRandomState(1))
			require.NoError(t, clf.Fit(X, y))
			acc, err := clf.Score(X, y)
			require.NoError(t, err)
			assert.Greater(t, acc, 0.8)
		})
	}

	clf := NewSGDClassifier(WithLearningRate("warp"))
	assert.Error(t, clf.Fit(X, y))
}

func TestSGDConvergenceWarning(t *testing.T) {
	var warned error
	errors.SetWarningHandler(func(w error) { warned = w })
	defer errors.SetWarningHandler(func(w error) {})

	X, y := separable()
	// One epoch with zero tolerance cannot converge.
	clf := NewSGDClassifier(WithMaxIter(1), WithTol(0), WithRandomState(3))
	require.NoError(t, clf.Fit(X, y))

	require.NotNil(t, warned)
	var conv *errors.ConvergenceWarning
	assert.True(t, errors.As(warned, &conv))
}

func TestSGDParamsRoundTrip(t *testing.T) {
	clf := NewSGDClassifier(WithAlpha(0.01), WithEta0(0.5), WithLearningRate("ramp"))

	fresh := NewSGDClassifier()
	require.NoError(t, fresh.SetParams(clf.GetParams()))
	assert.Equal(t, clf.GetParams(), fresh.GetParams())

	assert.Error(t, fresh.SetParams(map[string]interface{}{"momentum": 0.9}))
	assert.Error(t, fresh.SetParams(map[string]interface{}{"alpha": "much"}))
}
