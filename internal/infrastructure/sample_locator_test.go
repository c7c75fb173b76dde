package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gp-gam-emulation/internal/domain"
)

func newTestLocator() *SampleLocator {
	logger := zap.NewNop()
	return NewSampleLocator(logger, NewTXTFileReader(logger), testSampleConfig())
}

func TestSampleLocator_Strategies(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"preferred wins over others", []string{"constrained_sample.dat", "constrained_multi_million_sample.dat.gz", "other.dat"}, "constrained_multi_million_sample.dat.gz"},
		{"preferred format order", []string{"constrained_sample.dat.lz4", "constrained_sample.dat"}, "constrained_sample.dat"},
		{"unique substring", []string{"my_constrained_draws.dat.zst", "notes.dat"}, "my_constrained_draws.dat.zst"},
		{"only file", []string{"draws.dat.s2", "readme.txt"}, "draws.dat.s2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, dir, f, "")
			}
			got, err := newTestLocator().Locate(dir)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.want), got)
		})
	}
}

func TestSampleLocator_Failures(t *testing.T) {
	l := newTestLocator()

	_, err := l.Locate(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, domain.ErrSampleNotFound)

	empty := t.TempDir()
	_, err = l.Locate(empty)
	require.ErrorIs(t, err, domain.ErrSampleNotFound)

	ambiguous := t.TempDir()
	writeFile(t, ambiguous, "constrained_a.dat", "")
	writeFile(t, ambiguous, "constrained_b.dat", "")
	_, err = l.Locate(ambiguous)
	require.ErrorIs(t, err, domain.ErrSampleNotFound)
	assert.Contains(t, err.Error(), "ambiguous")

	several := t.TempDir()
	writeFile(t, several, "a.dat", "")
	writeFile(t, several, "b.dat", "")
	_, err = l.Locate(several)
	require.ErrorIs(t, err, domain.ErrSampleNotFound)
}

func TestSampleLocator_LoadSample(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "constrained_sample.dat.gz", rawTable(5, domain.RawParameterCount))

	sample, err := newTestLocator().LoadSample(dir, domain.DefaultGAMSchema(), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, sample.Available)

	head, err := newTestLocator().LoadSample(dir, domain.DefaultGAMSchema(), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, head.Available)
	assert.Equal(t, filepath.Join(dir, "constrained_sample.dat.gz"), sample.Source)

	_, cols := sample.Matrix.Dims()
	assert.Equal(t, len(domain.DefaultGAMSchema().Names()), cols)
}
