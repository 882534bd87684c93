package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

func threeBlobs() *mat.Dense {
	return mat.NewDense(9, 2, []float64{
		0.0, 0.0,
		0.1, 0.1,
		-0.1, 0.0,
		10.0, 10.0,
		10.1, 10.1,
		9.9, 10.0,
		-10.0, 10.0,
		-10.1, 10.1,
		-9.9, 10.0,
	})
}

func TestKMeansSeparatesBlobs(t *testing.T) {
	X := threeBlobs()
	km := NewKMeans(WithClusters(3), WithRandomState(42))
	require.NoError(t, km.Fit(X, nil))

	labels, err := km.Predict(X)
	require.NoError(t, err)

	// All members of a blob share a label and the blobs get distinct labels.
	seen := map[float64]bool{}
	for blob := 0; blob < 3; blob++ {
		first := labels.At(blob*3, 0)
		for i := 1; i < 3; i++ {
			assert.Equal(t, first, labels.At(blob*3+i, 0))
		}
		assert.False(t, seen[first], "blobs must map to distinct clusters")
		seen[first] = true
	}

	assert.Less(t, km.Inertia(), 1.0, "tight blobs give low inertia")
}

func TestKMeansTransformShape(t *testing.T) {
	X := threeBlobs()
	km := NewKMeans(WithClusters(3), WithRandomState(7))
	require.NoError(t, km.Fit(X, nil))

	dists, err := km.Transform(X)
	require.NoError(t, err)

	r, c := dists.Dims()
	assert.Equal(t, 9, r)
	assert.Equal(t, 3, c)

	// Every distance is non-negative and each sample is close to one center.
	for i := 0; i < r; i++ {
		min := dists.At(i, 0)
		for j := 1; j < c; j++ {
			assert.GreaterOrEqual(t, dists.At(i, j), 0.0)
			if dists.At(i, j) < min {
				min = dists.At(i, j)
			}
		}
		assert.Less(t, min, 1.0)
	}
}

func TestKMeansFitTransform(t *testing.T) {
	X := threeBlobs()
	km := NewKMeans(WithClusters(3), WithRandomState(7))
	dists, err := km.FitTransform(X, nil)
	require.NoError(t, err)

	_, c := dists.Dims()
	assert.Equal(t, 3, c)
	assert.True(t, km.IsFitted())
}

func TestKMeansDeterministicGivenSeed(t *testing.T) {
	X := threeBlobs()

	a := NewKMeans(WithClusters(3), WithRandomState(11))
	require.NoError(t, a.Fit(X, nil))
	b := NewKMeans(WithClusters(3), WithRandomState(11))
	require.NoError(t, b.Fit(X, nil))

	assert.Equal(t, a.ClusterCenters(), b.ClusterCenters())
	assert.Equal(t, a.Inertia(), b.Inertia())
}

func TestKMeansValidation(t *testing.T) {
	X := threeBlobs()

	km := NewKMeans(WithClusters(100))
	err := km.Fit(X, nil)
	require.Error(t, err)
	var value *errors.ValueError
	assert.True(t, errors.As(err, &value))

	km = NewKMeans(WithClusters(2), WithInit("centroid-sort"))
	assert.Error(t, km.Fit(X, nil))

	km = NewKMeans(WithClusters(2))
	_, err = km.Predict(X)
	assert.Error(t, err, "predict before fit")
}

func TestKMeansRandomInit(t *testing.T) {
	X := threeBlobs()
	km := NewKMeans(WithClusters(3), WithInit("random"), WithRandomState(5))
	require.NoError(t, km.Fit(X, nil))
	assert.Less(t, km.Inertia(), 1.0)
}

func TestKMeansParamsRoundTrip(t *testing.T) {
	km := NewKMeans(WithClusters(4), WithMaxIter(50), WithNInit(2), WithTol(1e-3))

	fresh := NewKMeans()
	require.NoError(t, fresh.SetParams(km.GetParams()))
	assert.Equal(t, km.GetParams(), fresh.GetParams())

	assert.Error(t, fresh.SetParams(map[string]interface{}{"linkage": "ward"}))
	assert.Error(t, fresh.SetParams(map[string]interface{}{"n_clusters": 3.5}))
}
