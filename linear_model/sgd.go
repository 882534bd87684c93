// Package linear_model implements linear classifiers trained by stochastic
// gradient descent.
package linear_model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/core/model"
	"github.com/edwardbickerton/handson-ml3/pkg/errors"
	"github.com/edwardbickerton/handson-ml3/schedule"
)

// SGDClassifier is a binary logistic-regression classifier trained with
// stochastic gradient descent and L2 regularization. The per-step learning
// rate comes from a schedule package function chosen by the learning_rate
// hyperparameter.
type SGDClassifier struct {
	model.BaseEstimator

	// Hyperparameters
	alpha        float64 // L2 regularization strength
	eta0         float64 // base learning rate
	maxIter      int     // maximum training epochs
	tol          float64 // stopping tolerance on epoch loss improvement
	learningRate string  // "constant", "exponential" or "ramp"
	randomState  int64   // shuffle seed, -1 for nondeterministic

	// Model parameters
	weights    []float64
	intercept  float64
	classes_   []int
	nFeatures_ int
	nIter_     int
}

// SGDOption is a functional option for SGDClassifier.
type SGDOption func(*SGDClassifier)

// NewSGDClassifier creates an SGD logistic classifier with sklearn-like
// defaults.
func NewSGDClassifier(opts ...SGDOption) *SGDClassifier {
	clf := &SGDClassifier{
		alpha:        1e-4,
		eta0:         0.1,
		maxIter:      100,
		tol:          1e-4,
		learningRate: "constant",
		randomState:  -1,
	}
	for _, opt := range opts {
		opt(clf)
	}
	return clf
}

// WithAlpha sets the L2 regularization strength.
func WithAlpha(alpha float64) SGDOption {
	return func(clf *SGDClassifier) { clf.alpha = alpha }
}

// WithEta0 sets the base learning rate.
func WithEta0(eta0 float64) SGDOption {
	return func(clf *SGDClassifier) { clf.eta0 = eta0 }
}

// WithMaxIter sets the maximum number of training epochs.
func WithMaxIter(maxIter int) SGDOption {
	return func(clf *SGDClassifier) { clf.maxIter = maxIter }
}

// WithTol sets the stopping tolerance.
func WithTol(tol float64) SGDOption {
	return func(clf *SGDClassifier) { clf.tol = tol }
}

// WithLearningRate selects the learning-rate schedule: "constant",
// "exponential" or "ramp".
func WithLearningRate(name string) SGDOption {
	return func(clf *SGDClassifier) { clf.learningRate = name }
}

// WithRandomState sets the shuffle seed.
func WithRandomState(seed int64) SGDOption {
	return func(clf *SGDClassifier) { clf.randomState = seed }
}

func (clf *SGDClassifier) buildSchedule() (schedule.Schedule, error) {
	switch clf.learningRate {
	case "constant":
		return schedule.Constant(clf.eta0), nil
	case "exponential":
		// Halve the rate every 20 epochs.
		return schedule.Exponential(clf.eta0, 0.5, 20), nil
	case "ramp":
		// Warm up from a tenth of the base rate over the first 10 epochs.
		return schedule.Ramp(clf.eta0/10, clf.eta0, 10), nil
	default:
		return nil, errors.NewValueError("SGDClassifier",
			fmt.Sprintf("unknown learning_rate %q", clf.learningRate))
	}
}

// Fit trains the classifier. y must contain exactly two classes.
func (clf *SGDClassifier) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "SGDClassifier.Fit")
	}
	if ry != r {
		return errors.NewDimensionError("SGDClassifier.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("SGDClassifier.Fit", "y must be a column vector")
	}

	sched, err := clf.buildSchedule()
	if err != nil {
		return err
	}

	classSet := map[int]struct{}{}
	for i := 0; i < r; i++ {
		classSet[int(y.At(i, 0))] = struct{}{}
	}
	if len(classSet) != 2 {
		return errors.NewValueError("SGDClassifier.Fit",
			fmt.Sprintf("expected exactly 2 classes, got %d", len(classSet)))
	}
	clf.classes_ = make([]int, 0, 2)
	for class := range classSet {
		clf.classes_ = append(clf.classes_, class)
	}
	if clf.classes_[0] > clf.classes_[1] {
		clf.classes_[0], clf.classes_[1] = clf.classes_[1], clf.classes_[0]
	}

	// Binary targets: 0 for the lower class label, 1 for the higher.
	targets := make([]float64, r)
	for i := 0; i < r; i++ {
		if int(y.At(i, 0)) == clf.classes_[1] {
			targets[i] = 1
		}
	}

	seed := clf.randomState
	if seed < 0 {
		seed = int64(rand.Uint64() >> 1)
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	clf.nFeatures_ = c
	clf.weights = make([]float64, c)
	clf.intercept = 0

	order := make([]int, r)
	for i := range order {
		order[i] = i
	}

	prevLoss := math.Inf(1)
	converged := false
	for epoch := 0; epoch < clf.maxIter; epoch++ {
		clf.nIter_ = epoch + 1
		lr := sched(epoch)

		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		var loss float64
		for _, idx := range order {
			z := clf.intercept
			for j := 0; j < c; j++ {
				z += clf.weights[j] * X.At(idx, j)
			}
			p := sigmoid(z)
			g := p - targets[idx]

			for j := 0; j < c; j++ {
				clf.weights[j] -= lr * (g*X.At(idx, j) + clf.alpha*clf.weights[j])
			}
			clf.intercept -= lr * g

			loss += logLoss(targets[idx], p)
		}
		loss /= float64(r)

		if math.Abs(prevLoss-loss) < clf.tol {
			converged = true
			break
		}
		prevLoss = loss
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("SGDClassifier", clf.nIter_, ""))
	}

	clf.SetFitted()
	return nil
}

// Predict returns the class with the higher predicted probability.
func (clf *SGDClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := clf.PredictProba(X)
	if err != nil {
		return nil, err
	}

	r, _ := proba.Dims()
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		class := clf.classes_[0]
		if proba.At(i, 1) > 0.5 {
			class = clf.classes_[1]
		}
		predictions.Set(i, 0, float64(class))
	}
	return predictions, nil
}

// PredictProba returns class probabilities, one column per class in
// Classes() order.
func (clf *SGDClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !clf.IsFitted() {
		return nil, errors.NewNotFittedError("SGDClassifier", "PredictProba")
	}

	r, c := X.Dims()
	if c != clf.nFeatures_ {
		return nil, errors.NewDimensionError("SGDClassifier.PredictProba", clf.nFeatures_, c, 1)
	}

	proba := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		z := clf.intercept
		for j := 0; j < c; j++ {
			z += clf.weights[j] * X.At(i, j)
		}
		p := sigmoid(z)
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Classes returns the two class labels in ascending order.
func (clf *SGDClassifier) Classes() []int {
	out := make([]int, len(clf.classes_))
	copy(out, clf.classes_)
	return out
}

// NIterations returns the number of epochs actually run by the last Fit.
func (clf *SGDClassifier) NIterations() int {
	return clf.nIter_
}

// Score computes the accuracy on X, y.
func (clf *SGDClassifier) Score(X, y mat.Matrix) (float64, error) {
	if !clf.IsFitted() {
		return 0, errors.NewNotFittedError("SGDClassifier", "Score")
	}
	predictions, err := clf.Predict(X)
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
func (clf *SGDClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         clf.alpha,
		"eta0":          clf.eta0,
		"max_iter":      clf.maxIter,
		"tol":           clf.tol,
		"learning_rate": clf.learningRate,
		"random_state":  clf.randomState,
	}
}

// SetParams sets the model hyperparameters.
func (clf *SGDClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "alpha":
			v, ok := value.(float64)
			if !ok {
				return fmt.Errorf("parameter alpha: expected float64, got %T", value)
			}
			clf.alpha = v
		case "eta0":
			v, ok := value.(float64)
			if !ok {
				return fmt.Errorf("parameter eta0: expected float64, got %T", value)
			}
			clf.eta0 = v
		case "max_iter":
			v, ok := value.(int)
			if !ok {
				return fmt.Errorf("parameter max_iter: expected int, got %T", value)
			}
			clf.maxIter = v
		case "tol":
			v, ok := value.(float64)
			if !ok {
				return fmt.Errorf("parameter tol: expected float64, got %T", value)
			}
			clf.tol = v
		case "learning_rate":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("parameter learning_rate: expected string, got %T", value)
			}
			clf.learningRate = v
		case "random_state":
			v, ok := value.(int64)
			if !ok {
				return fmt.Errorf("parameter random_state: expected int64, got %T", value)
			}
			clf.randomState = v
		default:
			return fmt.Errorf("unknown parameter: %s", key)
		}
	}
	return nil
}

// String returns the estimator description.
func (clf *SGDClassifier) String() string {
	return fmt.Sprintf("SGDClassifier(alpha=%g, eta0=%g, learning_rate=%s, max_iter=%d)",
		clf.alpha, clf.eta0, clf.learningRate, clf.maxIter)
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func logLoss(y, p float64) float64 {
	const eps = 1e-15
	p = math.Min(math.Max(p, eps), 1-eps)
	if y == 1 {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}
