package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// SaveModel saves a model to a file using gob encoding.
//
// Example:
//
//	var knn neighbors.KNNClassifier
//	// ... train ...
//	err := model.SaveModel(&knn, "knn.gob")
func SaveModel(model interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(model); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	return nil
}

// LoadModel loads a model from a file into the given pointer.
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(model); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}

	return nil
}

// SaveModelToWriter saves a model to an io.Writer.
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// LoadModelFromReader loads a model from an io.Reader into the given pointer.
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	return nil
}

// ModelCache stores fitted models on disk keyed by a digest of the training
// data and the hyperparameter configuration that produced them. A change to
// either yields a different key, so a stale artifact is never silently
// reused. Save is idempotent: re-saving under the same key overwrites the
// file with identical content.
type ModelCache struct {
	Dir string
}

// NewModelCache creates a cache rooted at dir, creating it if needed.
func NewModelCache(dir string) (*ModelCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &ModelCache{Dir: dir}, nil
}

// CacheKey computes the digest for a training matrix, target and parameter
// set. Parameter order does not affect the key.
func CacheKey(X, y mat.Matrix, params map[string]interface{}) string {
	h := sha256.New()

	hashMatrix(h, X)
	if y != nil {
		hashMatrix(h, y)
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h, "%s=%v;", name, params[name])
	}

	return hex.EncodeToString(h.Sum(nil))
}

func hashMatrix(h io.Writer, m mat.Matrix) {
	r, c := m.Dims()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(r))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(c))
	h.Write(buf[:])
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(m.At(i, j)))
			h.Write(buf[:])
		}
	}
}

// Save stores a model under the given key.
func (c *ModelCache) Save(model interface{}, key string) error {
	return SaveModel(model, c.path(key))
}

// Load retrieves the model stored under key into the given pointer. It
// returns os.ErrNotExist (wrapped) when no artifact exists for the key.
func (c *ModelCache) Load(model interface{}, key string) error {
	return LoadModel(model, c.path(key))
}

// Contains reports whether an artifact exists for the key.
func (c *ModelCache) Contains(key string) bool {
	_, err := os.Stat(c.path(key))
	return err == nil
}

func (c *ModelCache) path(key string) string {
	return filepath.Join(c.Dir, key+".gob")
}
