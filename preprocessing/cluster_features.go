package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/cluster"
	"github.com/edwardbickerton/handson-ml3/core/model"
	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// ClusterFeatures derives features from a k-means clustering of the input:
// each sample becomes its vector of distances to the learned cluster
// centers. Appending these to the raw features often helps linear models
// on data with cluster structure.
type ClusterFeatures struct {
	model.BaseEstimator

	// Hyperparameters
	nClusters   int
	randomState int64
	// append keeps the original features ahead of the distance columns.
	append_ bool

	km *cluster.KMeans
}

// ClusterFeaturesOption is a functional option for ClusterFeatures.
type ClusterFeaturesOption func(*ClusterFeatures)

// NewClusterFeatures creates a cluster-distance feature extractor.
func NewClusterFeatures(opts ...ClusterFeaturesOption) *ClusterFeatures {
	cf := &ClusterFeatures{
		nClusters:   8,
		randomState: -1,
		append_:     true,
	}
	for _, opt := range opts {
		opt(cf)
	}
	return cf
}

// WithClusterCount sets the number of clusters to derive distances from.
func WithClusterCount(n int) ClusterFeaturesOption {
	return func(cf *ClusterFeatures) { cf.nClusters = n }
}

// WithSeed sets the clustering seed.
func WithSeed(seed int64) ClusterFeaturesOption {
	return func(cf *ClusterFeatures) { cf.randomState = seed }
}

// WithAppend controls whether the original features are kept. When false
// the output contains only the distance columns.
func WithAppend(append bool) ClusterFeaturesOption {
	return func(cf *ClusterFeatures) { cf.append_ = append }
}

// Fit clusters X and stores the centers used to derive distances.
func (cf *ClusterFeatures) Fit(X mat.Matrix) error {
	cf.km = cluster.NewKMeans(
		cluster.WithClusters(cf.nClusters),
		cluster.WithRandomState(cf.randomState),
	)
	if err := cf.km.Fit(X, nil); err != nil {
		return err
	}
	cf.SetFitted()
	return nil
}

// Transform returns X's cluster-distance features, with the original
// columns ahead of them unless append was disabled.
func (cf *ClusterFeatures) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !cf.IsFitted() {
		return nil, errors.NewNotFittedError("ClusterFeatures", "Transform")
	}

	dists, err := cf.km.Transform(X)
	if err != nil {
		return nil, err
	}
	if !cf.append_ {
		return dists, nil
	}

	r, c := X.Dims()
	out := mat.NewDense(r, c+cf.nClusters, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(i, j))
		}
		for k := 0; k < cf.nClusters; k++ {
			out.Set(i, c+k, dists.At(i, k))
		}
	}
	return out, nil
}

// FitTransform fits on X and returns its derived features in one step.
func (cf *ClusterFeatures) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := cf.Fit(X); err != nil {
		return nil, err
	}
	return cf.Transform(X)
}

// GetParams returns the transformer hyperparameters.
func (cf *ClusterFeatures) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_clusters":   cf.nClusters,
		"random_state": cf.randomState,
		"append":       cf.append_,
	}
}

// SetParams sets the transformer hyperparameters.
func (cf *ClusterFeatures) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_clusters":
			v, ok := value.(int)
			if !ok {
				return fmt.Errorf("parameter n_clusters: expected int, got %T", value)
			}
			cf.nClusters = v
		case "random_state":
			v, ok := value.(int64)
			if !ok {
				return fmt.Errorf("parameter random_state: expected int64, got %T", value)
			}
			cf.randomState = v
		case "append":
			v, ok := value.(bool)
			if !ok {
				return fmt.Errorf("parameter append: expected bool, got %T", value)
			}
			cf.append_ = v
		default:
			return fmt.Errorf("unknown parameter: %s", key)
		}
	}
	return nil
}

// String returns the transformer description.
func (cf *ClusterFeatures) String() string {
	return fmt.Sprintf("ClusterFeatures(n_clusters=%d, append=%t)", cf.nClusters, cf.append_)
}
