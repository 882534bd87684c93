// Package metrics implements the evaluation metrics used for scoring models
// during cross-validation and on held-out test partitions. All metrics take
// column vectors (n x 1 matrices) of true and predicted values.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

func checkColumns(op string, yTrue, yPred mat.Matrix) (int, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError(op, "empty matrix")
	}
	if cTrue != 1 || cPred != 1 {
		return 0, errors.NewValueError(op, "inputs must be column vectors (n x 1 matrices)")
	}
	if rTrue != rPred {
		return 0, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	return rTrue, nil
}

// MSE computes the mean squared error.
func MSE(yTrue, yPred mat.Matrix) (float64, error) {
	n, err := checkColumns("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.At(i, 0) - yPred.At(i, 0)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE computes the root mean squared error.
func RMSE(yTrue, yPred mat.Matrix) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE computes the mean absolute error.
func MAE(yTrue, yPred mat.Matrix) (float64, error) {
	n, err := checkColumns("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.At(i, 0) - yPred.At(i, 0))
	}
	return sum / float64(n), nil
}

// R2Score computes the coefficient of determination.
func R2Score(yTrue, yPred mat.Matrix) (float64, error) {
	n, err := checkColumns("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var mean float64
	for i := 0; i < n; i++ {
		mean += yTrue.At(i, 0)
	}
	mean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		yt := yTrue.At(i, 0)
		tss += (yt - mean) * (yt - mean)
		rss += (yt - yPred.At(i, 0)) * (yt - yPred.At(i, 0))
	}

	if tss == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("r2", "constant target", 0))
		return 0, nil
	}
	return 1 - rss/tss, nil
}
