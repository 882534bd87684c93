package modelselect

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/neighbors"
	"github.com/edwardbickerton/handson-ml3/pipeline"
	"github.com/edwardbickerton/handson-ml3/pkg/errors"
	"github.com/edwardbickerton/handson-ml3/preprocessing"
)

// fakeEstimator predicts the first feature column, flipping |value-2| test
// rows, so cross-validated accuracy peaks at value=2. The knobs let tests
// trigger failures, panics, and slow evaluations for chosen values. All
// fields round-trip through Get/SetParams so clones keep their behavior and
// the shared fit counter.
type fakeEstimator struct {
	value   int
	failOn  int
	panicOn int
	slowOn  int
	delay   time.Duration
	fits    *int32

	fitted bool
	flips  int
}

func newFake(fits *int32) *fakeEstimator {
	return &fakeEstimator{failOn: -1, panicOn: -1, slowOn: -1, fits: fits}
}

func (f *fakeEstimator) Fit(X, y mat.Matrix) error {
	if f.fits != nil {
		atomic.AddInt32(f.fits, 1)
	}
	if f.value == f.failOn {
		return errors.Newf("training diverged for value=%d", f.value)
	}
	if f.value == f.panicOn {
		panic(fmt.Sprintf("boom at value=%d", f.value))
	}
	if f.value == f.slowOn {
		time.Sleep(f.delay)
	}
	f.flips = f.value - 2
	if f.flips < 0 {
		f.flips = -f.flips
	}
	f.fitted = true
	return nil
}

func (f *fakeEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !f.fitted {
		return nil, errors.NewNotFittedError("fakeEstimator", "Predict")
	}
	r, _ := X.Dims()
	pred := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		v := X.At(i, 0)
		if i < f.flips {
			v = 1 - v
		}
		pred.Set(i, 0, v)
	}
	return pred, nil
}

func (f *fakeEstimator) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"value":    f.value,
		"fail_on":  f.failOn,
		"panic_on": f.panicOn,
		"slow_on":  f.slowOn,
		"delay":    f.delay,
		"fits":     f.fits,
	}
}

func (f *fakeEstimator) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "value":
			f.value = value.(int)
		case "fail_on":
			f.failOn = value.(int)
		case "panic_on":
			f.panicOn = value.(int)
		case "slow_on":
			f.slowOn = value.(int)
		case "delay":
			f.delay = value.(time.Duration)
		case "fits":
			f.fits, _ = value.(*int32)
		default:
			return fmt.Errorf("unknown parameter: %s", key)
		}
	}
	return nil
}

// parityData returns 12 samples whose label equals the single feature, so
// the fake estimator's accuracy is fully determined by its value parameter.
func parityData() (X, y *mat.Dense) {
	X = mat.NewDense(12, 1, nil)
	y = mat.NewDense(12, 1, nil)
	for i := 0; i < 12; i++ {
		X.Set(i, 0, float64(i%2))
		y.Set(i, 0, float64(i%2))
	}
	return X, y
}

func TestGridSearchFindsBestCandidate(t *testing.T) {
	X, y := parityData()
	var fits int32

	search := NewGridSearch(newFake(&fits), Space{"value": Values{1, 2, 3}},
		WithFolds(2), WithWorkers(2))
	result, err := search.Run(context.Background(), X, y)
	require.NoError(t, err)

	require.Len(t, result.Candidates, 3)
	best := result.Best()
	require.NotNil(t, best)
	assert.Equal(t, 2, best.Params["value"])
	assert.Equal(t, 1.0, best.MeanScore)
	assert.Equal(t, 2, len(best.FoldScores))
	assert.Equal(t, best.Params, result.BestParams)
	assert.Equal(t, best.MeanScore, result.BestScore)
	assert.Equal(t, "grid", result.Strategy)

	// Ranking is descending with ties in enumeration order.
	for i := 1; i < len(result.Candidates); i++ {
		prev, cur := result.Candidates[i-1], result.Candidates[i]
		assert.GreaterOrEqual(t, prev.MeanScore, cur.MeanScore)
		if prev.MeanScore == cur.MeanScore {
			assert.Less(t, prev.Index, cur.Index)
		}
	}

	// Refit model is trained on the full data with the best params.
	require.NotNil(t, result.BestEstimator)
	refit := result.BestEstimator.(*fakeEstimator)
	assert.True(t, refit.fitted)
	assert.Equal(t, 2, refit.value)

	// 3 candidates x 2 folds, plus the final refit.
	assert.Equal(t, int32(7), atomic.LoadInt32(&fits))
}

func TestSearchRejectsUnknownParamBeforeTraining(t *testing.T) {
	X, y := parityData()
	var fits int32

	search := NewGridSearch(newFake(&fits), Space{"gamma": Values{0.5}}, WithFolds(2))
	_, err := search.Run(context.Background(), X, y)
	require.Error(t, err)

	var confErr *errors.ConfigurationError
	require.True(t, errors.As(err, &confErr))
	assert.Equal(t, "gamma", confErr.Param)
	assert.Equal(t, "fakeEstimator", confErr.Estimator)

	assert.Equal(t, int32(0), atomic.LoadInt32(&fits), "no training before validation")
}

func TestSearchRejectsInfeasibleFoldsBeforeTraining(t *testing.T) {
	X, y := parityData()
	var fits int32

	search := NewGridSearch(newFake(&fits), Space{"value": Values{2}}, WithFolds(50))
	_, err := search.Run(context.Background(), X, y)
	require.Error(t, err)

	var insufficient *errors.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int32(0), atomic.LoadInt32(&fits), "no training before validation")
}

func TestSearchIsolatesFailingCandidate(t *testing.T) {
	X, y := parityData()

	template := newFake(nil)
	template.failOn = 3
	search := NewGridSearch(template, Space{"value": Values{1, 2, 3}}, WithFolds(2))
	result, err := search.Run(context.Background(), X, y)
	require.NoError(t, err, "one failing candidate must not abort the search")

	require.Len(t, result.Candidates, 3)
	assert.Equal(t, 2, result.BestParams["value"])

	last := result.Candidates[2]
	assert.Equal(t, 3, last.Params["value"])
	assert.True(t, last.Failed())
	assert.True(t, math.IsInf(last.MeanScore, -1))
	assert.ErrorContains(t, last.Err, "diverged")
}

func TestSearchIsolatesPanickingCandidate(t *testing.T) {
	X, y := parityData()

	template := newFake(nil)
	template.panicOn = 1
	search := NewGridSearch(template, Space{"value": Values{1, 2}}, WithFolds(2))
	result, err := search.Run(context.Background(), X, y)
	require.NoError(t, err)

	assert.Equal(t, 2, result.BestParams["value"])
	last := result.Candidates[len(result.Candidates)-1]
	assert.True(t, last.Failed())

	var panicErr *errors.PanicError
	assert.True(t, errors.As(last.Err, &panicErr))
}

func TestSearchAllCandidatesFailed(t *testing.T) {
	X, y := parityData()

	template := newFake(nil)
	template.failOn = 1
	search := NewGridSearch(template, Space{"value": Values{1}}, WithFolds(2))
	result, err := search.Run(context.Background(), X, y)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAllCandidatesFailed))
	require.Len(t, result.Candidates, 1)
	assert.True(t, result.Candidates[0].Failed())
	assert.Nil(t, result.BestEstimator)
}

func TestSearchCancellationKeepsCompletedCandidates(t *testing.T) {
	X, y := parityData()

	// Every candidate sleeps; one worker processes them sequentially.
	template := newFake(nil)
	template.slowOn = 1
	template.delay = 100 * time.Millisecond
	space := Space{"value": Values{1, 1, 1, 1, 1, 1, 1, 1}}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	search := NewGridSearch(template, space, WithFolds(2), WithWorkers(1))
	result, err := search.Run(ctx, X, y)

	require.Error(t, err)
	var aborted *errors.SearchAbortedError
	require.True(t, errors.As(err, &aborted))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	assert.Greater(t, len(result.Candidates), 0, "completed candidates are kept")
	assert.Less(t, len(result.Candidates), 8, "undispatched candidates are skipped")
	assert.Equal(t, len(result.Candidates), aborted.Completed)
	assert.Equal(t, 8, aborted.Total)
	assert.Nil(t, result.BestEstimator, "no refit after cancellation")
}

func TestSearchCandidateTimeout(t *testing.T) {
	X, y := parityData()

	template := newFake(nil)
	template.slowOn = 3
	template.delay = 2 * time.Second

	search := NewGridSearch(template, Space{"value": Values{1, 2, 3}},
		WithFolds(2), WithCandidateTimeout(100*time.Millisecond))
	result, err := search.Run(context.Background(), X, y)
	require.NoError(t, err, "a timed-out candidate must not abort the search")

	assert.Equal(t, 2, result.BestParams["value"])
	last := result.Candidates[len(result.Candidates)-1]
	assert.Equal(t, 3, last.Params["value"])
	assert.True(t, last.Failed())
	assert.ErrorContains(t, last.Err, "exceeded")
}

func TestRandomizedSearchDeterministicPerSeed(t *testing.T) {
	X, y := parityData()
	space := Space{"value": IntRange{Low: 1, High: 3}}

	run := func(seed uint64) *SearchResult {
		search := NewRandomizedSearch(newFake(nil), space, 6, seed, WithFolds(2))
		result, err := search.Run(context.Background(), X, y)
		require.NoError(t, err)
		return result
	}

	a, b := run(42), run(42)
	require.Len(t, a.Candidates, 6)
	assert.Equal(t, a.BestParams, b.BestParams)
	for i := range a.Candidates {
		assert.Equal(t, a.Candidates[i].Params, b.Candidates[i].Params)
		assert.Equal(t, a.Candidates[i].MeanScore, b.Candidates[i].MeanScore)
	}
	assert.Equal(t, "random", a.Strategy)
}

func classBlobs() (X, y *mat.Dense) {
	X = mat.NewDense(20, 2, nil)
	y = mat.NewDense(20, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i)*0.05)
		X.Set(i, 1, float64(i)*0.03)
		X.Set(10+i, 0, 8+float64(i)*0.05)
		X.Set(10+i, 1, 8+float64(i)*0.03)
		y.Set(10+i, 0, 1)
	}
	return X, y
}

func TestGridSearchKNNEndToEnd(t *testing.T) {
	X, y := classBlobs()

	search := NewGridSearch(
		neighbors.NewKNNClassifier(),
		Space{
			"n_neighbors": Values{1, 3, 5},
			"weights":     Values{"uniform", "distance"},
		},
		WithSplitter(NewStratifiedKFold(2)),
	)
	result, err := search.Run(context.Background(), X, y)
	require.NoError(t, err)

	assert.Len(t, result.Candidates, 6)
	assert.Equal(t, 1.0, result.BestScore, "well-separated blobs classify perfectly")

	pred, err := result.BestEstimator.Predict(mat.NewDense(1, 2, []float64{8.2, 8.1}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))
}

func TestGridSearchTunesPipelineSteps(t *testing.T) {
	X, y := classBlobs()

	p, err := pipeline.NewPipeline(
		pipeline.Step{Name: "scaler", Component: preprocessing.NewStandardScaler()},
		pipeline.Step{Name: "knn", Component: neighbors.NewKNNClassifier()},
	)
	require.NoError(t, err)

	search := NewGridSearch(p,
		Space{"knn__n_neighbors": Values{1, 3}},
		WithSplitter(NewStratifiedKFold(2)),
	)
	result, err := search.Run(context.Background(), X, y)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.BestScore)
	refit := result.BestEstimator.(*pipeline.Pipeline)
	params := refit.GetParams()
	assert.Contains(t, []interface{}{1, 3}, params["knn__n_neighbors"])
}

func TestSearchReportRendersRankedTable(t *testing.T) {
	X, y := parityData()

	template := newFake(nil)
	template.failOn = 3
	search := NewGridSearch(template, Space{"value": Values{1, 2, 3}}, WithFolds(2))
	result, err := search.Run(context.Background(), X, y)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, result.Report(&buf))

	out := buf.String()
	assert.Contains(t, out, "value=2")
	assert.Contains(t, out, "-Inf")
	assert.Contains(t, out, "failed")
}
