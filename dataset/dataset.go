// Package dataset provides immutable feature/label datasets, deterministic
// train/test splitting, and loaders for CSV and synthetic data.
package dataset

import (
	"math/rand/v2"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// Dataset is an ordered, immutable collection of (feature vector, label)
// pairs. Partitions produced by Split share no mutable state with their
// parent.
type Dataset struct {
	x *mat.Dense
	y *mat.Dense // n x 1 column of labels or regression targets
}

// New creates a Dataset from a feature matrix and a label column. The data is
// copied so later mutation of the inputs cannot affect the dataset.
func New(X mat.Matrix, y mat.Matrix) (*Dataset, error) {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return nil, errors.NewValueError("dataset.New", "empty feature matrix")
	}
	if ry != r {
		return nil, errors.NewDimensionError("dataset.New", r, ry, 0)
	}
	if cy != 1 {
		return nil, errors.NewValueError("dataset.New", "y must be a column vector")
	}

	x := mat.NewDense(r, c, nil)
	x.Copy(X)
	labels := mat.NewDense(r, 1, nil)
	labels.Copy(y)

	return &Dataset{x: x, y: labels}, nil
}

// FromSlices creates a Dataset from row-major feature slices and labels.
func FromSlices(features [][]float64, labels []float64) (*Dataset, error) {
	if len(features) == 0 {
		return nil, errors.NewValueError("dataset.FromSlices", "no samples")
	}
	if len(features) != len(labels) {
		return nil, errors.NewDimensionError("dataset.FromSlices", len(features), len(labels), 0)
	}

	cols := len(features[0])
	x := mat.NewDense(len(features), cols, nil)
	for i, row := range features {
		if len(row) != cols {
			return nil, errors.NewDimensionError("dataset.FromSlices", cols, len(row), 1)
		}
		x.SetRow(i, row)
	}

	return &Dataset{x: x, y: mat.NewDense(len(labels), 1, labels)}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	r, _ := d.x.Dims()
	return r
}

// NumFeatures returns the number of feature columns.
func (d *Dataset) NumFeatures() int {
	_, c := d.x.Dims()
	return c
}

// X returns the feature matrix.
func (d *Dataset) X() mat.Matrix { return d.x }

// Y returns the label column.
func (d *Dataset) Y() mat.Matrix { return d.y }

// Row returns the i-th feature vector and its label. The slice is a copy.
func (d *Dataset) Row(i int) ([]float64, float64) {
	return mat.Row(nil, i, d.x), d.y.At(i, 0)
}

// Iterate calls fn for every (feature vector, label) pair in order.
func (d *Dataset) Iterate(fn func(i int, x []float64, label float64)) {
	n := d.Len()
	for i := 0; i < n; i++ {
		x, label := d.Row(i)
		fn(i, x, label)
	}
}

// Subset returns a new Dataset containing the given rows, in the given order.
func (d *Dataset) Subset(indices []int) *Dataset {
	_, c := d.x.Dims()
	x := mat.NewDense(len(indices), c, nil)
	y := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		x.SetRow(i, mat.Row(nil, idx, d.x))
		y.Set(i, 0, d.y.At(idx, 0))
	}
	return &Dataset{x: x, y: y}
}

// classIndices groups sample indices by label, preserving dataset order
// within each class.
func (d *Dataset) classIndices() map[float64][]int {
	groups := make(map[float64][]int)
	n := d.Len()
	for i := 0; i < n; i++ {
		label := d.y.At(i, 0)
		groups[label] = append(groups[label], i)
	}
	return groups
}

// Split partitions the dataset once into disjoint train and test sets. The
// shuffle is deterministic for a given seed. With stratify, each class keeps
// its proportion in both partitions; every class must then have at least two
// samples.
func (d *Dataset) Split(testRatio float64, seed uint64, stratify bool) (train, test *Dataset, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, errors.NewValueError("dataset.Split", "testRatio must be in (0, 1)")
	}

	rng := rand.New(rand.NewPCG(seed, seed))

	if !stratify {
		n := d.Len()
		indices := rng.Perm(n)
		nTest := int(float64(n) * testRatio)
		if nTest == 0 || nTest == n {
			return nil, nil, errors.NewValueError("dataset.Split", "split would leave a partition empty")
		}
		return d.Subset(indices[nTest:]), d.Subset(indices[:nTest]), nil
	}

	groups := d.classIndices()
	labels := make([]float64, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Float64s(labels) // fixed class order keeps the split deterministic per seed

	var trainIdx, testIdx []int
	for _, label := range labels {
		indices := groups[label]
		if len(indices) < 2 {
			return nil, nil, errors.NewInsufficientDataError(2, len(indices),
				strconv.FormatFloat(label, 'g', -1, 64))
		}
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		nTest := int(float64(len(indices)) * testRatio)
		if nTest == 0 {
			nTest = 1
		}
		testIdx = append(testIdx, indices[:nTest]...)
		trainIdx = append(trainIdx, indices[nTest:]...)
	}

	return d.Subset(trainIdx), d.Subset(testIdx), nil
}
