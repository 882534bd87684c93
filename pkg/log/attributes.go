package log

// Standard attribute keys used across search and estimator logging. Keys are
// hierarchical ("search.candidate", "data.samples") so JSON logs can be
// filtered per concern.
const (
	// ModelNameKey identifies the estimator type, e.g. "KNNClassifier".
	ModelNameKey = "model.name"

	// OperationKey is the operation being performed: "fit", "predict",
	// "transform", "score", "search".
	OperationKey = "ml.operation"

	// SamplesKey is the number of samples (rows) being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of features (columns) being processed.
	FeaturesKey = "data.features"

	// CandidateKey is the index of a candidate configuration within a search.
	CandidateKey = "search.candidate"

	// ParamsKey holds a candidate's hyperparameter configuration.
	ParamsKey = "search.params"

	// FoldsKey is the number of cross-validation folds in use.
	FoldsKey = "search.folds"

	// ScoreKey is a cross-validation or test score.
	ScoreKey = "search.score"

	// StrategyKey is the search strategy in use: "grid" or "random".
	StrategyKey = "search.strategy"

	// DurationMsKey is the elapsed wall time of an operation in milliseconds.
	DurationMsKey = "duration_ms"
)
