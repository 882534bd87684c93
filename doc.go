// Package handsonml3 is a hyperparameter search and model selection toolkit.
//
// The modelselect package searches a parameter space by grid enumeration or
// randomized sampling, evaluating each candidate with k-fold cross-validation
// in parallel, and refits the winning configuration on the full training
// data. Estimators follow sklearn-style contracts (Fit/Predict,
// GetParams/SetParams) defined in core/model, so searches run unchanged over
// single models and over pipelines of transformers.
//
// Packages:
//
//   - modelselect: parameter spaces, splitters, cross-validation, searches
//   - neighbors, linear_model, linear, cluster: estimators
//   - preprocessing, pipeline: transformers and chains
//   - dataset, metrics: data loading and scoring
//   - cmd/mlsearch: CLI over CSV datasets
package handsonml3
