package modelselect

import (
	"context"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/edwardbickerton/handson-ml3/core/model"
	"github.com/edwardbickerton/handson-ml3/metrics"
	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// CVResult holds the per-fold scores of one cross-validated evaluation.
type CVResult struct {
	Scores []float64
	Mean   float64
	Std    float64
}

// CrossValidate evaluates an estimator configuration by k-fold
// cross-validation: for each fold a fresh clone of template is trained on
// the fold's training indices and scored on its held-out indices. The
// template itself is never fitted.
func CrossValidate(ctx context.Context, template model.Estimator, X, y mat.Matrix,
	splitter Splitter, scorer metrics.Scorer) (CVResult, error) {

	n, _ := X.Dims()
	folds, err := splitter.Split(n, y)
	if err != nil {
		return CVResult{}, err
	}
	return crossValidateFolds(ctx, template, X, y, folds, scorer)
}

// crossValidateFolds is the fold loop shared by CrossValidate and the search
// runner, which precomputes folds once for all candidates.
func crossValidateFolds(ctx context.Context, template model.Estimator, X, y mat.Matrix,
	folds []Fold, scorer metrics.Scorer) (CVResult, error) {

	scores := make([]float64, 0, len(folds))
	for _, fold := range folds {
		if err := ctx.Err(); err != nil {
			return CVResult{}, err
		}

		clone, err := model.Clone(template)
		if err != nil {
			return CVResult{}, err
		}

		XTrain, yTrain := subset(X, fold.Train), subset(y, fold.Train)
		XTest, yTest := subset(X, fold.Test), subset(y, fold.Test)

		if err := clone.Fit(XTrain, yTrain); err != nil {
			return CVResult{}, errors.Wrap(err, "cross-validation fold training")
		}
		yPred, err := clone.Predict(XTest)
		if err != nil {
			return CVResult{}, errors.Wrap(err, "cross-validation fold prediction")
		}
		score, err := scorer.Score(yTest, yPred)
		if err != nil {
			return CVResult{}, errors.Wrap(err, "cross-validation fold scoring")
		}
		scores = append(scores, score)
	}

	return CVResult{
		Scores: scores,
		Mean:   stat.Mean(scores, nil),
		Std:    stat.PopStdDev(scores, nil),
	}, nil
}

// subset copies the given rows of m into a new matrix.
func subset(m mat.Matrix, rows []int) mat.Matrix {
	_, c := m.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, row := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(row, j))
		}
	}
	return out
}
