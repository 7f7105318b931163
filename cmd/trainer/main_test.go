package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urisense/platform/pkg/serving/predictor"
)

func writeDataset(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Age,pH,Specific Gravity,WBC,RBC,Protein,Bacteria,Diagnosis\n")
	for i := 0; i < 60; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&b, "%d,6.0,1.020,TNTC,3-5,2+,LOADED,POSITIVE\n", 20+i)
		} else {
			fmt.Fprintf(&b, "%d,6.0,1.010,0-2,0-2,NEGATIVE,RARE,NEGATIVE\n", 20+i)
		}
	}
	path := filepath.Join(t.TempDir(), "urinalysis.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTrainAndInspect(t *testing.T) {
	data := writeDataset(t)
	artifact := filepath.Join(t.TempDir(), "model.json")

	out, err := run(t, "train", "--data", data, "--out", artifact, "--trees", "10", "--max-depth", "4", "--version", "v-test")
	require.NoError(t, err)
	assert.Contains(t, out, `"accuracy": 1`)

	loaded, err := predictor.LoadArtifact(artifact)
	require.NoError(t, err)
	assert.Equal(t, "v-test", loaded.Version)
	assert.Equal(t, predictor.AlgorithmRandomForest, loaded.Algorithm)
	assert.Len(t, loaded.Forest.Trees, 10)

	out, err = run(t, "inspect", artifact)
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "v-test"`)
}

func TestTrainMissingDataset(t *testing.T) {
	_, err := run(t, "train", "--data", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestInspectRejectsMismatchedSchema(t *testing.T) {
	data := writeDataset(t)
	artifact := filepath.Join(t.TempDir(), "model.json")
	_, err := run(t, "train", "--data", data, "--out", artifact, "--trees", "3", "--algorithm", "logistic")
	require.NoError(t, err)

	schema := filepath.Join(t.TempDir(), "schema.yaml")
	content := "fields:\n  - name: Age\n    kind: numeric\n"
	require.NoError(t, os.WriteFile(schema, []byte(content), 0o644))

	_, err = run(t, "inspect", artifact, "--schema", schema)
	assert.ErrorIs(t, err, predictor.ErrIncompatibleArtifact)
}
