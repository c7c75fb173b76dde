package infrastructure

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTXTFileWriter_WriteVectorFormatted(t *testing.T) {
	dir := t.TempDir()
	w := NewTXTFileWriter(zap.NewNop())
	path := filepath.Join(dir, "nested", "out", "mean.dat")
	format := func(v float64) string { return strconv.FormatFloat(v, 'e', 2, 64) }

	require.NoError(t, w.WriteVectorFormatted(path, []float64{1, -0.5, 1234}, format))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1.00e+00\n-5.00e-01\n1.23e+03\n", string(data))

	// overwrite replaces the content and leaves no temporary files behind
	require.NoError(t, w.WriteVectorFormatted(path, []float64{2}, format))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2.00e+00\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mean.dat", entries[0].Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestTXTFileWriter_EmptyVector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dat")
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 0, 64) }
	require.NoError(t, NewTXTFileWriter(zap.NewNop()).WriteVectorFormatted(path, nil, format))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}
