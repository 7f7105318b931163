package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/urisense/platform/pkg/normalizer"
	"github.com/urisense/platform/pkg/serving/predictor"
)

const DefaultTargetColumn = "Diagnosis"

// Dataset holds normalized training rows. Labels are 1 for the positive class.
type Dataset struct {
	Names  []string
	X      [][]float64
	Y      []float64
	Schema normalizer.Schema
}

func (d *Dataset) Len() int {
	return len(d.Y)
}

func (d *Dataset) Positives() int {
	n := 0
	for _, y := range d.Y {
		if y == 1 {
			n++
		}
	}
	return n
}

// LoadDataset reads a CSV export with a header row. Every row goes through the
// same normalizer the serving path uses, so training and inference vectors
// share one layout.
func LoadDataset(r io.Reader, schema normalizer.Schema, targetColumn string) (*Dataset, error) {
	if targetColumn == "" {
		targetColumn = DefaultTargetColumn
	}
	n, err := normalizer.New(schema, normalizer.PolicyDefault)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	target := -1
	present := make(map[string]struct{}, len(header))
	for i, column := range header {
		present[column] = struct{}{}
		if column == targetColumn {
			target = i
		}
	}
	if target < 0 {
		return nil, fmt.Errorf("target column %q not found", targetColumn)
	}
	for _, name := range schema.Names() {
		if _, ok := present[name]; !ok {
			return nil, fmt.Errorf("schema field %q not found in dataset", name)
		}
	}

	ds := &Dataset{Names: schema.Names(), Schema: n.Schema()}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		label, err := parseLabel(row[target])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		record := make(normalizer.FeatureRecord, len(header))
		for i, column := range header {
			if i != target {
				record[column] = row[i]
			}
		}
		vector, err := n.Normalize(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds.X = append(ds.X, vector)
		ds.Y = append(ds.Y, label)
	}
	if ds.Len() == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}

func parseLabel(raw string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case predictor.DiagnosisPositive:
		return 1, nil
	case predictor.DiagnosisNegative:
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown diagnosis %q", raw)
	}
}

// Split partitions the dataset into train and test sets, keeping the class
// ratio in both.
func Split(d *Dataset, testFraction float64, seed int64) (train, test *Dataset) {
	rng := rand.New(rand.NewSource(seed))
	var byClass [2][]int
	for i, y := range d.Y {
		c := 0
		if y == 1 {
			c = 1
		}
		byClass[c] = append(byClass[c], i)
	}

	train = &Dataset{Names: d.Names, Schema: d.Schema}
	test = &Dataset{Names: d.Names, Schema: d.Schema}
	for _, idx := range byClass {
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		cut := int(float64(len(idx))*testFraction + 0.5)
		for k, i := range idx {
			dst := train
			if k < cut {
				dst = test
			}
			dst.X = append(dst.X, d.X[i])
			dst.Y = append(dst.Y, d.Y[i])
		}
	}
	return train, test
}
