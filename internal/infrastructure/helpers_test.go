package infrastructure

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"

	"gp-gam-emulation/internal/domain"
)

// rawTable renders rows×cols values r*100+c separated by spaces.
func rawTable(rows, cols int) string {
	var b strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d", r*100+c)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// writeFile stores content at dir/name, compressing it by extension.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	var buf bytes.Buffer
	var w io.WriteCloser
	switch {
	case strings.HasSuffix(name, ".gz"):
		w = gzip.NewWriter(&buf)
	case strings.HasSuffix(name, ".zst"):
		enc, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		w = enc
	case strings.HasSuffix(name, ".lz4"):
		w = lz4.NewWriter(&buf)
	case strings.HasSuffix(name, ".s2"):
		w = s2.NewWriter(&buf)
	}
	if w != nil {
		_, err := io.WriteString(w, content)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	} else {
		buf.WriteString(content)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func testSampleConfig() domain.SampleConfig {
	return domain.SampleConfig{
		Candidates: []string{"constrained_multi_million_sample", "constrained_sample"},
		Formats:    []string{".dat", ".dat.zst", ".dat.gz", ".dat.lz4", ".dat.s2"},
		Substring:  "constrained",
	}
}
