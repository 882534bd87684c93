package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// ReadCSV parses a headered CSV of numeric columns where the last column is
// the label. Use ReadRecords for typed rows with named columns.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "dataset.ReadCSV: reading header")
	}
	if len(header) < 2 {
		return nil, errors.NewValueError("dataset.ReadCSV", "need at least one feature column and a label column")
	}

	var features [][]float64
	var labels []float64
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "dataset.ReadCSV: line %d", line)
		}
		line++

		row := make([]float64, len(record)-1)
		for j, field := range record[:len(record)-1] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "dataset.ReadCSV: line %d, column %q", line, header[j])
			}
			row[j] = v
		}
		label, err := strconv.ParseFloat(record[len(record)-1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "dataset.ReadCSV: line %d, label column %q", line, header[len(header)-1])
		}

		features = append(features, row)
		labels = append(labels, label)
	}

	return FromSlices(features, labels)
}

// ReadCSVFile is ReadCSV over a file path.
func ReadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "dataset.ReadCSVFile")
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadRecords decodes a CSV with gocsv into typed records carrying `csv:`
// tags, then projects each record onto a feature vector and label. It suits
// files with named, heterogeneous columns where only some map to features.
//
//	type passenger struct {
//	    Age  float64 `csv:"age"`
//	    Fare float64 `csv:"fare"`
//	    Died int     `csv:"died"`
//	}
//	ds, err := dataset.ReadRecords(f, func(p passenger) ([]float64, float64) {
//	    return []float64{p.Age, p.Fare}, float64(p.Died)
//	})
func ReadRecords[T any](r io.Reader, sample func(T) (features []float64, label float64)) (*Dataset, error) {
	var records []T
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, errors.Wrap(err, "dataset.ReadRecords")
	}
	if len(records) == 0 {
		return nil, errors.NewValueError("dataset.ReadRecords", "no records")
	}

	features := make([][]float64, len(records))
	labels := make([]float64, len(records))
	for i, rec := range records {
		features[i], labels[i] = sample(rec)
	}

	return FromSlices(features, labels)
}
