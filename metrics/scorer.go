package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// ScoreFunc scores predictions against true targets. Higher is better: loss
// metrics are exposed in negated form so every scorer ranks the same way.
type ScoreFunc func(yTrue, yPred mat.Matrix) (float64, error)

// Scorer is a named, higher-is-better scoring metric.
type Scorer struct {
	Name  string
	Score ScoreFunc
}

func negated(fn ScoreFunc) ScoreFunc {
	return func(yTrue, yPred mat.Matrix) (float64, error) {
		v, err := fn(yTrue, yPred)
		return -v, err
	}
}

// ByName returns the scorer registered under the given name.
//
// Supported: "accuracy", "f1_macro", "r2", "neg_mean_squared_error",
// "neg_root_mean_squared_error", "neg_mean_absolute_error".
func ByName(name string) (Scorer, error) {
	switch name {
	case "accuracy":
		return Scorer{Name: name, Score: Accuracy}, nil
	case "f1_macro":
		return Scorer{Name: name, Score: F1Score}, nil
	case "r2":
		return Scorer{Name: name, Score: R2Score}, nil
	case "neg_mean_squared_error":
		return Scorer{Name: name, Score: negated(MSE)}, nil
	case "neg_root_mean_squared_error":
		return Scorer{Name: name, Score: negated(RMSE)}, nil
	case "neg_mean_absolute_error":
		return Scorer{Name: name, Score: negated(MAE)}, nil
	default:
		return Scorer{}, errors.Newf("unknown scoring metric: %s", name)
	}
}
