// Package preprocessing implements feature scaling and feature extraction
// transformers.
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/core/model"
	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// StandardScaler standardizes features to zero mean and unit variance.
type StandardScaler struct {
	model.BaseEstimator

	// Hyperparameters
	withMean bool
	withStd  bool

	// Learned statistics
	Mean      []float64
	Scale     []float64
	NFeatures int
}

// NewStandardScaler creates a scaler that centers and scales.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{withMean: true, withStd: true}
}

// Fit computes the per-feature mean and standard deviation of X.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "StandardScaler.Fit")
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		if s.withMean {
			var sum float64
			for i := 0; i < r; i++ {
				sum += X.At(i, j)
			}
			s.Mean[j] = sum / float64(r)
		}

		s.Scale[j] = 1.0
		if s.withStd {
			var sumSquares float64
			for i := 0; i < r; i++ {
				diff := X.At(i, j) - s.Mean[j]
				sumSquares += diff * diff
			}
			std := math.Sqrt(sumSquares / float64(r))
			// A constant feature keeps scale 1 to avoid division by zero.
			if std > 1e-8 {
				s.Scale[j] = std
			}
		}
	}

	s.SetFitted()
	return nil
}

// Transform standardizes X with the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform fits the scaler on X and standardizes it in one step.
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps standardized data back to the original scale.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return result, nil
}

// GetParams returns the scaler hyperparameters.
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.withMean,
		"with_std":  s.withStd,
	}
}

// SetParams sets the scaler hyperparameters.
func (s *StandardScaler) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "with_mean":
			v, ok := value.(bool)
			if !ok {
				return fmt.Errorf("parameter with_mean: expected bool, got %T", value)
			}
			s.withMean = v
		case "with_std":
			v, ok := value.(bool)
			if !ok {
				return fmt.Errorf("parameter with_std: expected bool, got %T", value)
			}
			s.withStd = v
		default:
			return fmt.Errorf("unknown parameter: %s", key)
		}
	}
	return nil
}

// String returns the transformer description.
func (s *StandardScaler) String() string {
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.withMean, s.withStd)
}

// MinMaxScaler rescales features to a fixed range, [0, 1] by default.
type MinMaxScaler struct {
	model.BaseEstimator

	// Hyperparameters
	featureRange [2]float64

	// Learned statistics
	DataMin   []float64
	Scale     []float64
	NFeatures int
}

// NewMinMaxScaler creates a scaler targeting the [0, 1] range.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{featureRange: [2]float64{0, 1}}
}

// Fit computes the per-feature minimum and range of X.
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "MinMaxScaler.Fit")
	}
	if m.featureRange[0] >= m.featureRange[1] {
		return errors.NewValueError("MinMaxScaler.Fit",
			fmt.Sprintf("feature_range minimum %g must be below maximum %g",
				m.featureRange[0], m.featureRange[1]))
	}

	m.NFeatures = c
	m.DataMin = make([]float64, c)
	m.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		min, max := X.At(0, j), X.At(0, j)
		for i := 1; i < r; i++ {
			v := X.At(i, j)
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		m.DataMin[j] = min

		m.Scale[j] = max - min
		if m.Scale[j] < 1e-8 {
			m.Scale[j] = 1.0
		}
	}

	m.SetFitted()
	return nil
}

// Transform rescales X into the target range.
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "Transform")
	}

	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, errors.NewDimensionError("MinMaxScaler.Transform", m.NFeatures, c, 1)
	}

	span := m.featureRange[1] - m.featureRange[0]
	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			std := (X.At(i, j) - m.DataMin[j]) / m.Scale[j]
			result.Set(i, j, std*span+m.featureRange[0])
		}
	}
	return result, nil
}

// FitTransform fits the scaler on X and rescales it in one step.
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform maps rescaled data back to the original range.
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, errors.NewDimensionError("MinMaxScaler.InverseTransform", m.NFeatures, c, 1)
	}

	span := m.featureRange[1] - m.featureRange[0]
	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			std := (X.At(i, j) - m.featureRange[0]) / span
			result.Set(i, j, std*m.Scale[j]+m.DataMin[j])
		}
	}
	return result, nil
}

// GetParams returns the scaler hyperparameters.
func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"feature_range": m.featureRange,
	}
}

// SetParams sets the scaler hyperparameters.
func (m *MinMaxScaler) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "feature_range":
			v, ok := value.([2]float64)
			if !ok {
				return fmt.Errorf("parameter feature_range: expected [2]float64, got %T", value)
			}
			m.featureRange = v
		default:
			return fmt.Errorf("unknown parameter: %s", key)
		}
	}
	return nil
}

// String returns the transformer description.
func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=[%g, %g])", m.featureRange[0], m.featureRange[1])
}
