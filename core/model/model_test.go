package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// stubEstimator is a minimal Estimator for clone and persistence tests.
type stubEstimator struct {
	BaseEstimator
	Alpha float64
	Depth int
}

func (s *stubEstimator) Fit(X, y mat.Matrix) error {
	s.SetFitted()
	return nil
}

func (s *stubEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	return mat.NewDense(r, 1, nil), nil
}

func (s *stubEstimator) GetParams() map[string]interface{} {
	return map[string]interface{}{"alpha": s.Alpha, "depth": s.Depth}
}

func (s *stubEstimator) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "alpha":
			s.Alpha = value.(float64)
		case "depth":
			s.Depth = value.(int)
		default:
			return assert.AnError
		}
	}
	return nil
}

func TestCloneCopiesParamsNotState(t *testing.T) {
	template := &stubEstimator{Alpha: 0.5, Depth: 3}
	require.NoError(t, template.Fit(nil, nil))
	require.True(t, template.IsFitted())

	clone, err := Clone(template)
	require.NoError(t, err)

	cloned, ok := clone.(*stubEstimator)
	require.True(t, ok)
	assert.Equal(t, 0.5, cloned.Alpha)
	assert.Equal(t, 3, cloned.Depth)
	assert.False(t, cloned.IsFitted(), "clone must be unfitted")

	// Mutating the clone must not touch the template.
	cloned.Alpha = 9.0
	assert.Equal(t, 0.5, template.Alpha)
}

func TestCloneRejectsNonPointer(t *testing.T) {
	_, err := Clone(nil)
	assert.Error(t, err)
}

func TestBaseEstimatorState(t *testing.T) {
	var e BaseEstimator
	assert.False(t, e.IsFitted())
	e.SetFitted()
	assert.True(t, e.IsFitted())
	e.Reset()
	assert.False(t, e.IsFitted())
}

func TestSaveLoadModelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stub.gob")

	saved := &stubEstimator{Alpha: 1.25, Depth: 7}
	require.NoError(t, SaveModel(saved, path))

	var loaded stubEstimator
	require.NoError(t, LoadModel(&loaded, path))
	assert.Equal(t, 1.25, loaded.Alpha)
	assert.Equal(t, 7, loaded.Depth)
}

func TestCacheKeySensitivity(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	y := mat.NewDense(2, 1, []float64{0, 1})
	params := map[string]interface{}{"k": 3, "weights": "uniform"}

	base := CacheKey(X, y, params)

	// Same inputs, param order irrelevant.
	assert.Equal(t, base, CacheKey(X, y, map[string]interface{}{"weights": "uniform", "k": 3}))

	// Changed data yields a new key.
	X2 := mat.NewDense(2, 2, []float64{1, 2, 3, 5})
	assert.NotEqual(t, base, CacheKey(X2, y, params))

	// Changed configuration yields a new key.
	assert.NotEqual(t, base, CacheKey(X, y, map[string]interface{}{"k": 5, "weights": "uniform"}))
}

func TestModelCacheSaveLoad(t *testing.T) {
	cache, err := NewModelCache(t.TempDir())
	require.NoError(t, err)

	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	key := CacheKey(X, nil, map[string]interface{}{"alpha": 0.1})
	assert.False(t, cache.Contains(key))

	require.NoError(t, cache.Save(&stubEstimator{Alpha: 0.1}, key))
	assert.True(t, cache.Contains(key))

	// Idempotent on repeated save.
	require.NoError(t, cache.Save(&stubEstimator{Alpha: 0.1}, key))

	var loaded stubEstimator
	require.NoError(t, cache.Load(&loaded, key))
	assert.Equal(t, 0.1, loaded.Alpha)
}
