// Package cluster implements k-means clustering.
package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/core/model"
	"github.com/edwardbickerton/handson-ml3/core/parallel"
	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// KMeans groups samples into nClusters clusters with Lloyd's algorithm.
// Transform maps each sample to its distances from the cluster centers,
// which makes a fitted KMeans usable as a feature extractor.
type KMeans struct {
	model.BaseEstimator

	// Hyperparameters
	nClusters   int     // number of clusters
	init        string  // "k-means++" or "random"
	maxIter     int     // maximum Lloyd iterations per run
	nInit       int     // restarts, best inertia wins
	tol         float64 // center-shift convergence tolerance
	randomState int64   // seed, -1 for nondeterministic

	// Model parameters
	centers_   [][]float64
	inertia_   float64
	nIter_     int
	nFeatures_ int
}

// KMeansOption is a functional option for KMeans.
type KMeansOption func(*KMeans)

// NewKMeans creates a KMeans clusterer with sklearn-like defaults.
func NewKMeans(opts ...KMeansOption) *KMeans {
	km := &KMeans{
		nClusters:   8,
		init:        "k-means++",
		maxIter:     300,
		nInit:       10,
		tol:         1e-4,
		randomState: -1,
	}
	for _, opt := range opts {
		opt(km)
	}
	return km
}

// WithClusters sets the number of clusters.
func WithClusters(n int) KMeansOption {
	return func(km *KMeans) { km.nClusters = n }
}

// WithInit selects the initialization method: "k-means++" or "random".
func WithInit(init string) KMeansOption {
	return func(km *KMeans) { km.init = init }
}

// WithMaxIter sets the maximum Lloyd iterations per run.
func WithMaxIter(maxIter int) KMeansOption {
	return func(km *KMeans) { km.maxIter = maxIter }
}

// WithNInit sets the number of random restarts.
func WithNInit(n int) KMeansOption {
	return func(km *KMeans) { km.nInit = n }
}

// WithTol sets the convergence tolerance on center movement.
func WithTol(tol float64) KMeansOption {
	return func(km *KMeans) { km.tol = tol }
}

// WithRandomState sets the initialization seed.
func WithRandomState(seed int64) KMeansOption {
	return func(km *KMeans) { km.randomState = seed }
}

// Fit learns cluster centers from X. y is ignored and may be nil.
func (km *KMeans) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()

	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "KMeans.Fit")
	}
	if km.nClusters < 1 {
		return errors.NewValueError("KMeans.Fit",
			fmt.Sprintf("n_clusters must be positive, got %d", km.nClusters))
	}
	if r < km.nClusters {
		return errors.NewValueError("KMeans.Fit",
			fmt.Sprintf("need at least %d samples for %d clusters, got %d", km.nClusters, km.nClusters, r))
	}
	if km.init != "k-means++" && km.init != "random" {
		return errors.NewValueError("KMeans.Fit",
			fmt.Sprintf("unknown init %q", km.init))
	}

	seed := km.randomState
	if seed < 0 {
		seed = int64(rand.Uint64() >> 1)
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	km.nFeatures_ = c

	bestInertia := math.Inf(1)
	var bestCenters [][]float64
	var bestNIter int

	for run := 0; run < km.nInit; run++ {
		centers, inertia, nIter := km.lloyd(X, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			bestCenters = centers
			bestNIter = nIter
		}
	}

	km.centers_ = bestCenters
	km.inertia_ = bestInertia
	km.nIter_ = bestNIter

	km.SetFitted()
	return nil
}

// lloyd runs one full Lloyd iteration loop from a fresh initialization.
func (km *KMeans) lloyd(X mat.Matrix, rng *rand.Rand) ([][]float64, float64, int) {
	r, c := X.Dims()

	centers := km.initCenters(X, rng)
	assignments := make([]int, r)
	var nIter int

	for iter := 0; iter < km.maxIter; iter++ {
		nIter = iter + 1

		parallel.ParallelizeWithThreshold(r, 256, func(start, end int) {
			row := make([]float64, c)
			for i := start; i < end; i++ {
				mat.Row(row, i, X)
				assignments[i] = nearestCenter(row, centers)
			}
		})

		next := make([][]float64, km.nClusters)
		counts := make([]int, km.nClusters)
		for k := range next {
			next[k] = make([]float64, c)
		}
		for i := 0; i < r; i++ {
			k := assignments[i]
			counts[k]++
			for j := 0; j < c; j++ {
				next[k][j] += X.At(i, j)
			}
		}
		for k := range next {
			if counts[k] == 0 {
				// Re-seed an empty cluster from a random sample.
				idx := rng.IntN(r)
				mat.Row(next[k], idx, X)
				continue
			}
			for j := 0; j < c; j++ {
				next[k][j] /= float64(counts[k])
			}
		}

		var shift float64
		for k := range centers {
			shift += squaredDistance(centers[k], next[k])
		}
		centers = next

		if shift < km.tol {
			break
		}
	}

	return centers, km.computeInertia(X, centers), nIter
}

// initCenters picks the initial centers, by k-means++ seeding or uniformly
// at random without replacement.
func (km *KMeans) initCenters(X mat.Matrix, rng *rand.Rand) [][]float64 {
	r, c := X.Dims()
	centers := make([][]float64, 0, km.nClusters)

	if km.init == "random" {
		perm := rng.Perm(r)
		for _, idx := range perm[:km.nClusters] {
			centers = append(centers, mat.Row(nil, idx, X))
		}
		return centers
	}

	centers = append(centers, mat.Row(nil, rng.IntN(r), X))

	dist := make([]float64, r)
	row := make([]float64, c)
	for len(centers) < km.nClusters {
		var total float64
		for i := 0; i < r; i++ {
			mat.Row(row, i, X)
			d := math.Inf(1)
			for _, center := range centers {
				if sq := squaredDistance(row, center); sq < d {
					d = sq
				}
			}
			dist[i] = d
			total += d
		}

		// All samples coincide with existing centers.
		if total == 0 {
			centers = append(centers, mat.Row(nil, rng.IntN(r), X))
			continue
		}

		target := rng.Float64() * total
		var cum float64
		chosen := r - 1
		for i := 0; i < r; i++ {
			cum += dist[i]
			if cum >= target {
				chosen = i
				break
			}
		}
		centers = append(centers, mat.Row(nil, chosen, X))
	}

	return centers
}

func (km *KMeans) computeInertia(X mat.Matrix, centers [][]float64) float64 {
	r, c := X.Dims()
	row := make([]float64, c)

	var inertia float64
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		best := math.Inf(1)
		for _, center := range centers {
			if sq := squaredDistance(row, center); sq < best {
				best = sq
			}
		}
		inertia += best
	}
	return inertia
}

// Predict assigns each row of X to its nearest cluster center.
func (km *KMeans) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !km.IsFitted() {
		return nil, errors.NewNotFittedError("KMeans", "Predict")
	}

	r, c := X.Dims()
	if c != km.nFeatures_ {
		return nil, errors.NewDimensionError("KMeans.Predict", km.nFeatures_, c, 1)
	}

	labels := mat.NewDense(r, 1, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		labels.Set(i, 0, float64(nearestCenter(row, km.centers_)))
	}
	return labels, nil
}

// Transform maps each sample to its Euclidean distances from the cluster
// centers, producing an r x nClusters matrix.
func (km *KMeans) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !km.IsFitted() {
		return nil, errors.NewNotFittedError("KMeans", "Transform")
	}

	r, c := X.Dims()
	if c != km.nFeatures_ {
		return nil, errors.NewDimensionError("KMeans.Transform", km.nFeatures_, c, 1)
	}

	out := mat.NewDense(r, km.nClusters, nil)
	parallel.ParallelizeWithThreshold(r, 256, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			for k, center := range km.centers_ {
				out.Set(i, k, math.Sqrt(squaredDistance(row, center)))
			}
		}
	})
	return out, nil
}

// FitTransform fits the clusterer and returns the center distances for X.
func (km *KMeans) FitTransform(X, y mat.Matrix) (mat.Matrix, error) {
	if err := km.Fit(X, y); err != nil {
		return nil, err
	}
	return km.Transform(X)
}

// ClusterCenters returns a copy of the learned centers.
func (km *KMeans) ClusterCenters() [][]float64 {
	out := make([][]float64, len(km.centers_))
	for k, center := range km.centers_ {
		out[k] = make([]float64, len(center))
		copy(out[k], center)
	}
	return out
}

// Inertia returns the within-cluster sum of squared distances of the last
// Fit.
func (km *KMeans) Inertia() float64 {
	return km.inertia_
}

// NIterations returns the number of Lloyd iterations of the winning run.
func (km *KMeans) NIterations() int {
	return km.nIter_
}

// GetParams returns the model hyperparameters.
func (km *KMeans) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_clusters":   km.nClusters,
		"init":         km.init,
		"max_iter":     km.maxIter,
		"n_init":       km.nInit,
		"tol":          km.tol,
		"random_state": km.randomState,
	}
}

// SetParams sets the model hyperparameters.
func (km *KMeans) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_clusters":
			v, ok := value.(int)
			if !ok {
				return fmt.Errorf("parameter n_clusters: expected int, got %T", value)
			}
			km.nClusters = v
		case "init":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("parameter init: expected string, got %T", value)
			}
			km.init = v
		case "max_iter":
			v, ok := value.(int)
			if !ok {
				return fmt.Errorf("parameter max_iter: expected int, got %T", value)
			}
			km.maxIter = v
		case "n_init":
			v, ok := value.(int)
			if !ok {
				return fmt.Errorf("parameter n_init: expected int, got %T", value)
			}
			km.nInit = v
		case "tol":
			v, ok := value.(float64)
			if !ok {
				return fmt.Errorf("parameter tol: expected float64, got %T", value)
			}
			km.tol = v
		case "random_state":
			v, ok := value.(int64)
			if !ok {
				return fmt.Errorf("parameter random_state: expected int64, got %T", value)
			}
			km.randomState = v
		default:
			return fmt.Errorf("unknown parameter: %s", key)
		}
	}
	return nil
}

// String returns the estimator description.
func (km *KMeans) String() string {
	return fmt.Sprintf("KMeans(n_clusters=%d, init=%s, max_iter=%d)",
		km.nClusters, km.init, km.maxIter)
}

func nearestCenter(sample []float64, centers [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for k, center := range centers {
		if sq := squaredDistance(sample, center); sq < bestDist {
			bestDist = sq
			best = k
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
