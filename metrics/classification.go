package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// Accuracy computes the fraction of exactly matching predictions.
func Accuracy(yTrue, yPred mat.Matrix) (float64, error) {
	n, err := checkColumns("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.At(i, 0) == yPred.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// PrecisionRecallF1 computes macro-averaged precision, recall and F1 over the
// classes present in yTrue. Classes with no predicted samples contribute zero
// precision and trigger an UndefinedMetricWarning.
func PrecisionRecallF1(yTrue, yPred mat.Matrix) (precision, recall, f1 float64, err error) {
	n, err := checkColumns("PrecisionRecallF1", yTrue, yPred)
	if err != nil {
		return 0, 0, 0, err
	}

	classes := map[float64]struct{}{}
	for i := 0; i < n; i++ {
		classes[yTrue.At(i, 0)] = struct{}{}
	}

	for class := range classes {
		var tp, fp, fn float64
		for i := 0; i < n; i++ {
			predicted := yPred.At(i, 0) == class
			actual := yTrue.At(i, 0) == class
			switch {
			case predicted && actual:
				tp++
			case predicted && !actual:
				fp++
			case !predicted && actual:
				fn++
			}
		}

		var p, r float64
		if tp+fp == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0))
		} else {
			p = tp / (tp + fp)
		}
		if tp+fn > 0 {
			r = tp / (tp + fn)
		}

		precision += p
		recall += r
		if p+r > 0 {
			f1 += 2 * p * r / (p + r)
		}
	}

	k := float64(len(classes))
	return precision / k, recall / k, f1 / k, nil
}

// F1Score computes the macro-averaged F1 score.
func F1Score(yTrue, yPred mat.Matrix) (float64, error) {
	_, _, f1, err := PrecisionRecallF1(yTrue, yPred)
	return f1, err
}
