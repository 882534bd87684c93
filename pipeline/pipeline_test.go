package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/neighbors"
	"github.com/edwardbickerton/handson-ml3/preprocessing"
)

func blobs() (X, y *mat.Dense) {
	X = mat.NewDense(8, 2, []float64{
		0, 1,
		10, 2,
		20, 1,
		30, 2,
		0, 101,
		10, 102,
		20, 101,
		30, 102,
	})
	y = mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	return X, y
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(
		Step{Name: "scaler", Component: preprocessing.NewStandardScaler()},
		Step{Name: "knn", Component: neighbors.NewKNNClassifier(neighbors.WithNeighbors(3))},
	)
	require.NoError(t, err)
	return p
}

func TestPipelineFitPredict(t *testing.T) {
	X, y := blobs()
	p := newTestPipeline(t)
	require.NoError(t, p.Fit(X, y))

	pred, err := p.Predict(mat.NewDense(2, 2, []float64{15, 1, 15, 101}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))

	acc, err := p.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)
}

func TestPipelinePredictProba(t *testing.T) {
	X, y := blobs()
	p := newTestPipeline(t)
	require.NoError(t, p.Fit(X, y))

	proba, err := p.PredictProba(mat.NewDense(1, 2, []float64{15, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, proba.At(0, 0)+proba.At(0, 1), 1e-9)
}

func TestPipelineNotFitted(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.Predict(mat.NewDense(1, 2, []float64{0, 0}))
	assert.Error(t, err)
}

func TestPipelineConstruction(t *testing.T) {
	_, err := NewPipeline()
	assert.Error(t, err, "empty pipeline")

	_, err = NewPipeline(
		Step{Name: "scaler", Component: preprocessing.NewStandardScaler()},
	)
	assert.Error(t, err, "final step must be an estimator")

	_, err = NewPipeline(
		Step{Name: "knn", Component: neighbors.NewKNNClassifier()},
		Step{Name: "knn", Component: neighbors.NewKNNClassifier()},
	)
	assert.Error(t, err, "duplicate names")

	_, err = NewPipeline(
		Step{Name: "a__b", Component: neighbors.NewKNNClassifier()},
	)
	assert.Error(t, err, "reserved separator in name")
}

func TestPipelineParamRouting(t *testing.T) {
	p := newTestPipeline(t)

	params := p.GetParams()
	assert.Equal(t, true, params["scaler__with_mean"])
	assert.Equal(t, 3, params["knn__n_neighbors"])

	require.NoError(t, p.SetParams(map[string]interface{}{
		"knn__n_neighbors":  5,
		"scaler__with_std":  false,
		"scaler__with_mean": false,
	}))
	params = p.GetParams()
	assert.Equal(t, 5, params["knn__n_neighbors"])
	assert.Equal(t, false, params["scaler__with_std"])

	assert.Error(t, p.SetParams(map[string]interface{}{"svm__C": 1.0}), "unknown step")
	assert.Error(t, p.SetParams(map[string]interface{}{"n_neighbors": 5}), "missing step prefix")
	assert.Error(t, p.SetParams(map[string]interface{}{"knn__gamma": 0.5}), "unknown step parameter")
}

func TestPipelineClone(t *testing.T) {
	X, y := blobs()
	p := newTestPipeline(t)
	require.NoError(t, p.SetParams(map[string]interface{}{"knn__n_neighbors": 5}))
	require.NoError(t, p.Fit(X, y))

	clone := p.Clone()
	cloned, ok := clone.(*Pipeline)
	require.True(t, ok)

	assert.False(t, cloned.IsFitted())
	assert.Equal(t, p.GetParams(), cloned.GetParams())

	// Mutating the clone leaves the original untouched.
	require.NoError(t, cloned.SetParams(map[string]interface{}{"knn__n_neighbors": 1}))
	assert.Equal(t, 5, p.GetParams()["knn__n_neighbors"])
}
