// Package model defines the estimator contracts shared by every learner and
// transformer in this module, together with cloning and persistence helpers.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is the interface for trainable models.
type Fitter interface {
	// Fit trains the model on X with targets y.
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for models that can predict.
type Predictor interface {
	// Predict returns predictions for X, one row per sample.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute their own score:
// accuracy for classifiers, R^2 for regressors.
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// Transformer is the interface for data transformations over a
// {fit, transform} capability set.
type Transformer interface {
	// Fit learns the parameters needed for the transformation.
	Fit(X mat.Matrix) error

	// Transform applies the transformation to X.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform fits on X and transforms it in one step.
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter is the interface for models that expose their hyperparameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters. Unknown parameter names
	// and unusable values return an error.
	SetParams(params map[string]interface{}) error
}

// Estimator is the contract a hyperparameter search operates on: a trainable
// predictor whose configuration can be read and replaced.
type Estimator interface {
	Fitter
	Predictor
	ParameterGetter
	ParameterSetter
}

// Regressor combines the interfaces of regression models.
type Regressor interface {
	Estimator
	Scorer
}

// Classifier combines the interfaces of classification models.
type Classifier interface {
	Estimator
	Scorer

	// PredictProba returns probability estimates for each class,
	// one column per class in the order of Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting.
	Classes() []int
}

// Cloner is implemented by estimators that know how to produce a fresh,
// unfitted copy of themselves with identical hyperparameters. Estimators
// without it are cloned reflectively via GetParams/SetParams.
type Cloner interface {
	Clone() Estimator
}
