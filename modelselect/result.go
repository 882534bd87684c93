package modelselect

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/edwardbickerton/handson-ml3/core/model"
	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// CandidateResult is the cross-validated outcome of one hyperparameter
// configuration.
type CandidateResult struct {
	// Index is the candidate's position in enumeration or draw order.
	Index  int
	Params map[string]interface{}

	// MeanScore is the mean held-out score across folds. Failed candidates
	// carry -Inf so they rank last.
	MeanScore  float64
	StdScore   float64
	FoldScores []float64

	// Err records why the candidate failed, nil on success.
	Err error
}

// Failed reports whether this candidate's evaluation did not produce a score.
func (c *CandidateResult) Failed() bool {
	return c.Err != nil
}

// SearchResult is the outcome of a hyperparameter search.
type SearchResult struct {
	// Candidates is ranked by descending mean score. Candidates with equal
	// scores keep their enumeration order; failed candidates sort last.
	Candidates []CandidateResult

	// BestParams is the configuration of the top-ranked candidate.
	BestParams map[string]interface{}
	BestScore  float64

	// BestEstimator is a fresh estimator configured with BestParams and
	// fitted on the full training data. Nil when the search was aborted or
	// every candidate failed.
	BestEstimator model.Estimator

	// Metric is the scoring metric name used for ranking.
	Metric string
	// Strategy is "grid" or "random".
	Strategy string
}

// Best returns the top-ranked candidate, or nil for an empty result.
func (r *SearchResult) Best() *CandidateResult {
	if len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}

// Report writes the ranked candidate table to w.
func (r *SearchResult) Report(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"rank", "params", "mean " + r.Metric, "std", "status"})

	for rank, candidate := range r.Candidates {
		status := "ok"
		score := fmt.Sprintf("%.4f", candidate.MeanScore)
		std := fmt.Sprintf("%.4f", candidate.StdScore)
		if candidate.Failed() {
			status = "failed: " + candidate.Err.Error()
			score = "-Inf"
			std = "-"
		}
		if err := table.Append([]string{
			fmt.Sprintf("%d", rank+1),
			FormatParams(candidate.Params),
			score,
			std,
			status,
		}); err != nil {
			return errors.Wrap(err, "report row")
		}
	}

	return table.Render()
}

// FormatParams renders a configuration as "a=1, b=x" with sorted keys.
func FormatParams(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, params[key]))
	}
	return strings.Join(parts, ", ")
}

// rankCandidates sorts by descending mean score with ties broken by
// enumeration order, so ranking is deterministic no matter in which order
// the workers finished. Failed candidates carry -Inf and sink to the bottom.
func rankCandidates(candidates []CandidateResult) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].MeanScore, candidates[j].MeanScore
		// NaN never wins a comparison; push it below -Inf explicitly.
		if math.IsNaN(a) != math.IsNaN(b) {
			return math.IsNaN(b)
		}
		if a != b && !math.IsNaN(a) {
			return a > b
		}
		return candidates[i].Index < candidates[j].Index
	})
}
