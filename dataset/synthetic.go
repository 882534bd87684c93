package dataset

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// Blobs generates an isotropic Gaussian blob per class, the standard
// synthetic classification problem for exercising classifiers and searches.
// Blob centers are spaced along the diagonal; spread is the per-feature
// standard deviation. Deterministic for a given seed.
func Blobs(samplesPerClass, numFeatures, numClasses int, spread float64, seed uint64) (*Dataset, error) {
	if samplesPerClass < 1 || numFeatures < 1 || numClasses < 2 {
		return nil, errors.NewValueError("dataset.Blobs",
			"need samplesPerClass >= 1, numFeatures >= 1, numClasses >= 2")
	}

	src := rand.NewPCG(seed, seed)
	noise := distuv.Normal{Mu: 0, Sigma: spread, Src: src}

	n := samplesPerClass * numClasses
	features := make([][]float64, 0, n)
	labels := make([]float64, 0, n)

	for class := 0; class < numClasses; class++ {
		center := float64(class) * 4.0 // well-separated by default spreads
		for s := 0; s < samplesPerClass; s++ {
			row := make([]float64, numFeatures)
			for j := range row {
				row[j] = center + noise.Rand()
			}
			features = append(features, row)
			labels = append(labels, float64(class))
		}
	}

	return FromSlices(features, labels)
}
