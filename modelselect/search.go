package modelselect

import (
	"context"
	"log/slog"
	"math"
	"reflect"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/core/model"
	"github.com/edwardbickerton/handson-ml3/core/parallel"
	"github.com/edwardbickerton/handson-ml3/metrics"
	"github.com/edwardbickerton/handson-ml3/pkg/errors"
	mllog "github.com/edwardbickerton/handson-ml3/pkg/log"
)

// SearchOption configures a GridSearch or RandomizedSearch.
type SearchOption func(*searchConfig)

type searchConfig struct {
	splitter Splitter
	metric   string
	workers  int
	timeout  time.Duration
	logger   *slog.Logger
}

func newSearchConfig(opts ...SearchOption) searchConfig {
	cfg := searchConfig{
		splitter: NewKFold(5),
		metric:   "accuracy",
		workers:  0, // one per CPU
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithSplitter sets the cross-validation splitter. Default is 5-fold KFold.
func WithSplitter(s Splitter) SearchOption {
	return func(cfg *searchConfig) { cfg.splitter = s }
}

// WithFolds is shorthand for WithSplitter(NewKFold(k)).
func WithFolds(k int) SearchOption {
	return func(cfg *searchConfig) { cfg.splitter = NewKFold(k) }
}

// WithMetric sets the scoring metric by name. Default is "accuracy".
func WithMetric(name string) SearchOption {
	return func(cfg *searchConfig) { cfg.metric = name }
}

// WithWorkers bounds the number of candidates evaluated concurrently.
// Zero or negative means one worker per CPU.
func WithWorkers(n int) SearchOption {
	return func(cfg *searchConfig) { cfg.workers = n }
}

// WithCandidateTimeout caps the wall time of a single candidate evaluation.
// A candidate that exceeds it is recorded as failed; the search continues.
func WithCandidateTimeout(d time.Duration) SearchOption {
	return func(cfg *searchConfig) { cfg.timeout = d }
}

// WithLogger sets the search logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) SearchOption {
	return func(cfg *searchConfig) { cfg.logger = logger }
}

// GridSearch evaluates every configuration in the cross product of a finite
// parameter space.
type GridSearch struct {
	template model.Estimator
	space    Space
	cfg      searchConfig
}

// NewGridSearch creates a grid search over space for the given estimator
// template. The template is only cloned, never fitted.
func NewGridSearch(template model.Estimator, space Space, opts ...SearchOption) *GridSearch {
	return &GridSearch{template: template, space: space, cfg: newSearchConfig(opts...)}
}

// Run enumerates the grid and evaluates every candidate on X, y.
func (g *GridSearch) Run(ctx context.Context, X, y mat.Matrix) (*SearchResult, error) {
	candidates, err := GridCandidates(g.space)
	if err != nil {
		return nil, err
	}
	return runSearch(ctx, g.template, X, y, candidates, g.cfg, "grid")
}

// RandomizedSearch evaluates a fixed budget of configurations drawn at
// random from the parameter space.
type RandomizedSearch struct {
	template model.Estimator
	space    Space
	budget   int
	seed     uint64
	cfg      searchConfig
}

// NewRandomizedSearch creates a randomized search drawing budget
// configurations with the given seed. The draw sequence, and therefore the
// candidate list, is deterministic per seed.
func NewRandomizedSearch(template model.Estimator, space Space, budget int, seed uint64,
	opts ...SearchOption) *RandomizedSearch {
	return &RandomizedSearch{
		template: template,
		space:    space,
		budget:   budget,
		seed:     seed,
		cfg:      newSearchConfig(opts...),
	}
}

// Run draws the candidate configurations and evaluates them on X, y.
func (r *RandomizedSearch) Run(ctx context.Context, X, y mat.Matrix) (*SearchResult, error) {
	candidates, err := SampleCandidates(r.space, r.budget, r.seed)
	if err != nil {
		return nil, err
	}
	return runSearch(ctx, r.template, X, y, candidates, r.cfg, "random")
}

// runSearch is the runner shared by both strategies. It validates every
// candidate configuration and the fold layout before any training, then
// evaluates candidates on a bounded worker pool, collects results over a
// channel, ranks them, and refits the winner on the full data.
func runSearch(ctx context.Context, template model.Estimator, X, y mat.Matrix,
	candidates []map[string]interface{}, cfg searchConfig, strategy string) (*SearchResult, error) {

	scorer, err := metrics.ByName(cfg.metric)
	if err != nil {
		return nil, err
	}

	n, features := X.Dims()
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "search")
	}
	ry, _ := y.Dims()
	if ry != n {
		return nil, errors.NewDimensionError("search", n, ry, 0)
	}

	// Validation phase: every candidate must be accepted by the estimator
	// and the splitter must be satisfiable. Nothing trains until both hold.
	if err := validateCandidates(template, candidates); err != nil {
		return nil, err
	}
	folds, err := cfg.splitter.Split(n, y)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger.With(
		slog.String(mllog.OperationKey, "search"),
		slog.String(mllog.StrategyKey, strategy),
		slog.String(mllog.ModelNameKey, estimatorName(template)),
	)
	logger.Info("starting hyperparameter search",
		slog.Int("candidates", len(candidates)),
		slog.Int(mllog.FoldsKey, len(folds)),
		slog.Int(mllog.SamplesKey, n),
		slog.Int(mllog.FeaturesKey, features),
		slog.String("metric", cfg.metric),
	)
	started := time.Now()

	// Workers send results to a single collector; no result state is
	// mutated concurrently.
	resultCh := make(chan CandidateResult)
	collected := make([]CandidateResult, 0, len(candidates))
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range resultCh {
			collected = append(collected, res)
		}
	}()

	runErr := parallel.ForEach(ctx, cfg.workers, len(candidates), func(i int) {
		res := evaluateCandidate(ctx, template, X, y, folds, scorer, cfg.timeout, i, candidates[i])
		if res.Failed() {
			logger.Warn("candidate failed",
				slog.Int(mllog.CandidateKey, i),
				slog.String(mllog.ParamsKey, FormatParams(res.Params)),
				mllog.ErrAttr(res.Err),
			)
		} else {
			logger.Debug("candidate evaluated",
				slog.Int(mllog.CandidateKey, i),
				slog.String(mllog.ParamsKey, FormatParams(res.Params)),
				slog.Float64(mllog.ScoreKey, res.MeanScore),
			)
		}
		resultCh <- res
	})
	close(resultCh)
	<-collectorDone

	rankCandidates(collected)
	result := &SearchResult{
		Candidates: collected,
		Metric:     cfg.metric,
		Strategy:   strategy,
	}

	if runErr != nil {
		// Cancelled: keep what completed, skip refit.
		if best := result.Best(); best != nil && !best.Failed() {
			result.BestParams = best.Params
			result.BestScore = best.MeanScore
		}
		return result, errors.NewSearchAbortedError(len(collected), len(candidates), runErr)
	}

	best := result.Best()
	if best == nil || best.Failed() {
		return result, errors.Wrap(errors.ErrAllCandidatesFailed, "search")
	}
	result.BestParams = best.Params
	result.BestScore = best.MeanScore

	// Refit the winning configuration on the full training data.
	refit, err := model.Clone(template)
	if err != nil {
		return result, errors.Wrap(err, "refitting best configuration")
	}
	if err := refit.SetParams(best.Params); err != nil {
		return result, errors.Wrap(err, "refitting best configuration")
	}
	if err := refit.Fit(X, y); err != nil {
		return result, errors.Wrap(err, "refitting best configuration")
	}
	result.BestEstimator = refit

	logger.Info("search finished",
		slog.Int("candidates", len(candidates)),
		slog.String(mllog.ParamsKey, FormatParams(best.Params)),
		slog.Float64(mllog.ScoreKey, best.MeanScore),
		slog.Int64(mllog.DurationMsKey, time.Since(started).Milliseconds()),
	)
	return result, nil
}

// validateCandidates checks every configuration against a clone of the
// template, parameter by parameter, so a rejected name or value is reported
// as a ConfigurationError before any training starts.
func validateCandidates(template model.Estimator, candidates []map[string]interface{}) error {
	if len(candidates) == 0 {
		return errors.NewValueError("search", "no candidate configurations")
	}

	name := estimatorName(template)
	probe, err := model.Clone(template)
	if err != nil {
		return err
	}

	// Identical (param, value) pairs recur across grid candidates; check
	// each pair once.
	type pair struct {
		param string
		value interface{}
	}
	checked := map[pair]bool{}

	for _, candidate := range candidates {
		for param, value := range candidate {
			key := pair{param, value}
			if isComparable(value) && checked[key] {
				continue
			}
			setErr := errors.SafeExecute("SetParams", func() error {
				return probe.SetParams(map[string]interface{}{param: value})
			})
			if setErr != nil {
				return errors.NewConfigurationError(name, param, value, setErr.Error())
			}
			if isComparable(value) {
				checked[key] = true
			}
		}
	}
	return nil
}

// isComparable reports whether value can be used as a map key.
func isComparable(value interface{}) bool {
	return value == nil || reflect.TypeOf(value).Comparable()
}

// evaluateCandidate cross-validates one configuration. Training errors,
// panics, and timeouts never propagate: they are recorded on the result with
// a -Inf score so the candidate ranks last.
func evaluateCandidate(ctx context.Context, template model.Estimator, X, y mat.Matrix,
	folds []Fold, scorer metrics.Scorer, timeout time.Duration,
	index int, params map[string]interface{}) CandidateResult {

	result := CandidateResult{Index: index, Params: params, MeanScore: math.Inf(-1)}

	evaluate := func() (CVResult, error) {
		clone, err := model.Clone(template)
		if err != nil {
			return CVResult{}, err
		}
		if err := clone.SetParams(params); err != nil {
			return CVResult{}, err
		}
		return crossValidateFolds(ctx, clone, X, y, folds, scorer)
	}

	var cv CVResult
	var err error
	if timeout <= 0 {
		err = errors.SafeExecute("candidate evaluation", func() error {
			var inner error
			cv, inner = evaluate()
			return inner
		})
	} else {
		type outcome struct {
			cv  CVResult
			err error
		}
		done := make(chan outcome, 1)
		go func() {
			var o outcome
			o.err = errors.SafeExecute("candidate evaluation", func() error {
				var inner error
				o.cv, inner = evaluate()
				return inner
			})
			done <- o
		}()

		select {
		case o := <-done:
			cv, err = o.cv, o.err
		case <-time.After(timeout):
			// The evaluation goroutine is abandoned; its result is dropped.
			err = errors.Newf("candidate evaluation exceeded %s", timeout)
		}
	}

	if err != nil {
		result.Err = err
		return result
	}

	result.MeanScore = cv.Mean
	result.StdScore = cv.Std
	result.FoldScores = cv.Scores
	return result
}

// estimatorName derives a readable name from the template's concrete type.
func estimatorName(est model.Estimator) string {
	t := reflect.TypeOf(est)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
