package infrastructure

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// ManifestEntry describes one input file.
type ManifestEntry struct {
	Filename    string
	Bytes       int64
	Checksum    string
	ModifiedUTC time.Time
}

// BuildManifest hashes every .dat file of dir with xxhash64.
func BuildManifest(logger *zap.Logger, dir string) ([]ManifestEntry, error) {
	names, err := datFiles(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]ManifestEntry, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		sum, size, err := hashFile(path)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ManifestEntry{
			Filename:    name,
			Bytes:       size,
			Checksum:    fmt.Sprintf("%016x", sum),
			ModifiedUTC: info.ModTime().UTC(),
		})
		logger.Info("Input file",
			zap.String("file", name),
			zap.Int64("bytes", size),
			zap.String("xxhash64", entries[len(entries)-1].Checksum))
	}
	return entries, nil
}

func hashFile(path string) (uint64, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	h := xxhash.New()
	n, err := io.Copy(h, file)
	if err != nil {
		return 0, 0, err
	}
	return h.Sum64(), n, nil
}

// WriteManifest writes entries as manifest.csv into dir.
func WriteManifest(dir string, entries []ManifestEntry) (string, error) {
	path := filepath.Join(dir, "manifest.csv")
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"filename", "bytes", "xxhash64", "modified_utc"}); err != nil {
		return "", err
	}
	for _, e := range entries {
		record := []string{e.Filename, strconv.FormatInt(e.Bytes, 10), e.Checksum, e.ModifiedUTC.Format(time.RFC3339)}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return path, w.Error()
}
