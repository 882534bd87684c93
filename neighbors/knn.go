// Package neighbors implements nearest-neighbor classification.
package neighbors

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/core/model"
	"github.com/edwardbickerton/handson-ml3/core/parallel"
	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// KNNClassifier is a k-nearest-neighbors classifier. Fit stores the training
// data; Predict votes among the k nearest training samples by Euclidean
// distance, optionally weighting votes by inverse distance.
type KNNClassifier struct {
	model.BaseEstimator

	// Hyperparameters
	nNeighbors int
	weights    string // "uniform" or "distance"

	// Training data
	xTrain   *mat.Dense
	yTrain   []float64
	classes_ []int
}

// KNNOption is a functional option for KNNClassifier.
type KNNOption func(*KNNClassifier)

// NewKNNClassifier creates a KNN classifier. Default: 5 neighbors, uniform
// vote weights.
func NewKNNClassifier(opts ...KNNOption) *KNNClassifier {
	knn := &KNNClassifier{
		nNeighbors: 5,
		weights:    "uniform",
	}
	for _, opt := range opts {
		opt(knn)
	}
	return knn
}

// WithNeighbors sets the number of neighbors consulted per prediction.
func WithNeighbors(k int) KNNOption {
	return func(knn *KNNClassifier) {
		knn.nNeighbors = k
	}
}

// WithWeights sets the vote weighting: "uniform" or "distance".
func WithWeights(weights string) KNNOption {
	return func(knn *KNNClassifier) {
		knn.weights = weights
	}
}

// Fit stores the training data. KNN is a lazy learner: all work happens at
// prediction time.
func (knn *KNNClassifier) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "KNNClassifier.Fit")
	}
	if ry != r {
		return errors.NewDimensionError("KNNClassifier.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("KNNClassifier.Fit", "y must be a column vector")
	}
	if knn.nNeighbors < 1 {
		return errors.NewValueError("KNNClassifier.Fit", "n_neighbors must be >= 1")
	}
	if knn.nNeighbors > r {
		return errors.NewValueError("KNNClassifier.Fit",
			fmt.Sprintf("n_neighbors=%d exceeds %d training samples", knn.nNeighbors, r))
	}
	if knn.weights != "uniform" && knn.weights != "distance" {
		return errors.NewValueError("KNNClassifier.Fit",
			fmt.Sprintf("unknown weights %q", knn.weights))
	}

	knn.xTrain = mat.NewDense(r, c, nil)
	knn.xTrain.Copy(X)
	knn.yTrain = make([]float64, r)
	classSet := map[int]struct{}{}
	for i := 0; i < r; i++ {
		knn.yTrain[i] = y.At(i, 0)
		classSet[int(knn.yTrain[i])] = struct{}{}
	}

	knn.classes_ = make([]int, 0, len(classSet))
	for class := range classSet {
		knn.classes_ = append(knn.classes_, class)
	}
	sort.Ints(knn.classes_)

	knn.SetFitted()
	return nil
}

// Predict returns the majority-vote class for each row of X.
func (knn *KNNClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := knn.PredictProba(X)
	if err != nil {
		return nil, err
	}

	r, _ := proba.Dims()
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		best, bestProb := 0, math.Inf(-1)
		for j, class := range knn.classes_ {
			if p := proba.At(i, j); p > bestProb {
				best, bestProb = class, p
			}
		}
		predictions.Set(i, 0, float64(best))
	}
	return predictions, nil
}

// PredictProba returns per-class vote fractions, one column per class in
// Classes() order.
func (knn *KNNClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !knn.IsFitted() {
		return nil, errors.NewNotFittedError("KNNClassifier", "PredictProba")
	}

	r, c := X.Dims()
	_, cTrain := knn.xTrain.Dims()
	if c != cTrain {
		return nil, errors.NewDimensionError("KNNClassifier.PredictProba", cTrain, c, 1)
	}

	classIdx := make(map[int]int, len(knn.classes_))
	for j, class := range knn.classes_ {
		classIdx[class] = j
	}

	proba := mat.NewDense(r, len(knn.classes_), nil)

	const parallelThreshold = 64
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := mat.Row(nil, i, X)
			knn.voteRow(row, classIdx, proba, i)
		}
	})

	return proba, nil
}

type neighbor struct {
	dist  float64
	label float64
}

func (knn *KNNClassifier) voteRow(x []float64, classIdx map[int]int, proba *mat.Dense, row int) {
	nTrain := len(knn.yTrain)
	neighbors := make([]neighbor, nTrain)
	for i := 0; i < nTrain; i++ {
		var dist float64
		for j, v := range x {
			d := v - knn.xTrain.At(i, j)
			dist += d * d
		}
		neighbors[i] = neighbor{dist: math.Sqrt(dist), label: knn.yTrain[i]}
	}

	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].dist < neighbors[j].dist })

	var total float64
	votes := make([]float64, len(knn.classes_))
	for _, nb := range neighbors[:knn.nNeighbors] {
		weight := 1.0
		if knn.weights == "distance" {
			// An exact match dominates the vote.
			if nb.dist == 0 {
				weight = 1e12
			} else {
				weight = 1 / nb.dist
			}
		}
		votes[classIdx[int(nb.label)]] += weight
		total += weight
	}

	for j, v := range votes {
		proba.Set(row, j, v/total)
	}
}

// Classes returns the class labels seen during fitting, in ascending order.
func (knn *KNNClassifier) Classes() []int {
	out := make([]int, len(knn.classes_))
	copy(out, knn.classes_)
	return out
}

// Score computes the accuracy on X, y.
func (knn *KNNClassifier) Score(X, y mat.Matrix) (float64, error) {
	if !knn.IsFitted() {
		return 0, errors.NewNotFittedError("KNNClassifier", "Score")
	}
	predictions, err := knn.Predict(X)
	if err != nil {
		return 0, err
	}

	n, _ := y.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// GetParams returns the model hyperparameters.
func (knn *KNNClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": knn.nNeighbors,
		"weights":     knn.weights,
	}
}

// SetParams sets the model hyperparameters.
func (knn *KNNClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_neighbors":
			k, ok := value.(int)
			if !ok {
				return fmt.Errorf("parameter n_neighbors: expected int, got %T", value)
			}
			knn.nNeighbors = k
		case "weights":
			w, ok := value.(string)
			if !ok {
				return fmt.Errorf("parameter weights: expected string, got %T", value)
			}
			knn.weights = w
		default:
			return fmt.Errorf("unknown parameter: %s", key)
		}
	}
	return nil
}

// String returns the estimator description.
func (knn *KNNClassifier) String() string {
	return fmt.Sprintf("KNNClassifier(n_neighbors=%d, weights=%s)", knn.nNeighbors, knn.weights)
}
