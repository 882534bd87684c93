package modelselect

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// Fold is one train/test partition of the sample indices.
type Fold struct {
	Train []int
	Test  []int
}

// Splitter partitions n samples into cross-validation folds. Implementations
// must place every index in exactly one Test set, and fail with
// InsufficientDataError before any training when the data cannot support the
// requested fold count.
type Splitter interface {
	Split(n int, y mat.Matrix) ([]Fold, error)
}

// KFold splits samples into k folds of near-equal size.
type KFold struct {
	NSplits int
	// Shuffle randomizes the assignment of samples to folds using Seed.
	// Without it folds are contiguous index blocks.
	Shuffle bool
	Seed    uint64
}

// NewKFold creates a non-shuffling k-fold splitter.
func NewKFold(nSplits int) *KFold {
	return &KFold{NSplits: nSplits}
}

// Split partitions [0, n) into NSplits folds. y is ignored.
func (kf *KFold) Split(n int, y mat.Matrix) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValueError("KFold.Split",
			fmt.Sprintf("need at least 2 folds, got %d", kf.NSplits))
	}
	if kf.NSplits > n {
		return nil, errors.NewInsufficientDataError(kf.NSplits, n, "")
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		rng := rand.New(rand.NewPCG(kf.Seed, kf.Seed))
		rng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	// The first n % k folds take one extra sample.
	folds := make([]Fold, kf.NSplits)
	base := n / kf.NSplits
	extra := n % kf.NSplits

	start := 0
	for f := 0; f < kf.NSplits; f++ {
		size := base
		if f < extra {
			size++
		}
		test := indices[start : start+size]
		start += size

		folds[f].Test = append([]int(nil), test...)
	}
	fillTrainSets(folds, n)

	return folds, nil
}

// StratifiedKFold splits samples into k folds while keeping each fold's
// class proportions close to the full dataset's. Labels are read from the
// single column of y.
type StratifiedKFold struct {
	NSplits int
	Shuffle bool
	Seed    uint64
}

// NewStratifiedKFold creates a non-shuffling stratified k-fold splitter.
func NewStratifiedKFold(nSplits int) *StratifiedKFold {
	return &StratifiedKFold{NSplits: nSplits}
}

// Split partitions [0, n) into NSplits folds stratified by the labels in y.
func (skf *StratifiedKFold) Split(n int, y mat.Matrix) ([]Fold, error) {
	if skf.NSplits < 2 {
		return nil, errors.NewValueError("StratifiedKFold.Split",
			fmt.Sprintf("need at least 2 folds, got %d", skf.NSplits))
	}
	if y == nil {
		return nil, errors.NewValueError("StratifiedKFold.Split", "labels are required for stratification")
	}
	ry, cy := y.Dims()
	if ry != n || cy != 1 {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", n, ry, 0)
	}

	byClass := map[float64][]int{}
	for i := 0; i < n; i++ {
		label := y.At(i, 0)
		byClass[label] = append(byClass[label], i)
	}

	// Fixed class order keeps the fold layout deterministic per seed.
	labels := make([]float64, 0, len(byClass))
	for label := range byClass {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	for _, label := range labels {
		if count := len(byClass[label]); count < skf.NSplits {
			return nil, errors.NewInsufficientDataError(
				skf.NSplits, count, fmt.Sprintf("%g", label))
		}
	}

	var rng *rand.Rand
	if skf.Shuffle {
		rng = rand.New(rand.NewPCG(skf.Seed, skf.Seed))
	}

	folds := make([]Fold, skf.NSplits)
	for _, label := range labels {
		members := byClass[label]
		if rng != nil {
			rng.Shuffle(len(members), func(i, j int) {
				members[i], members[j] = members[j], members[i]
			})
		}
		// Round-robin keeps per-fold class counts within one of each other.
		for i, idx := range members {
			f := i % skf.NSplits
			folds[f].Test = append(folds[f].Test, idx)
		}
	}
	for f := range folds {
		sort.Ints(folds[f].Test)
	}
	fillTrainSets(folds, n)

	return folds, nil
}

// fillTrainSets derives each fold's Train set as the complement of its Test
// set over [0, n).
func fillTrainSets(folds []Fold, n int) {
	for f := range folds {
		inTest := make([]bool, n)
		for _, idx := range folds[f].Test {
			inTest[idx] = true
		}
		train := make([]int, 0, n-len(folds[f].Test))
		for i := 0; i < n; i++ {
			if !inTest[i] {
				train = append(train, i)
			}
		}
		folds[f].Train = train
	}
}
