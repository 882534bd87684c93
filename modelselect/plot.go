package modelselect

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// PlotValidationCurve renders mean cross-validation score against the values
// of one numeric hyperparameter and saves it as a PNG. Failed candidates and
// candidates whose value for the parameter is not numeric are skipped.
func PlotValidationCurve(result *SearchResult, param, path string) error {
	points := make(plotter.XYs, 0, len(result.Candidates))
	for _, candidate := range result.Candidates {
		if candidate.Failed() {
			continue
		}
		value, ok := candidate.Params[param]
		if !ok {
			continue
		}
		x, ok := asFloat(value)
		if !ok {
			continue
		}
		points = append(points, plotter.XY{X: x, Y: candidate.MeanScore})
	}
	if len(points) == 0 {
		return errors.NewValueError("PlotValidationCurve",
			fmt.Sprintf("no scored candidates with numeric parameter %q", param))
	}

	sort.Slice(points, func(i, j int) bool { return points[i].X < points[j].X })

	p := plot.New()
	p.Title.Text = "Validation curve"
	p.X.Label.Text = param
	p.Y.Label.Text = "mean " + result.Metric

	line, scatter, err := plotter.NewLinePoints(points)
	if err != nil {
		return errors.Wrap(err, "PlotValidationCurve")
	}
	p.Add(line, scatter)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "PlotValidationCurve")
	}
	return nil
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
