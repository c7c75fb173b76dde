package infrastructure

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FmtFunc renders one value per output line.
type FmtFunc = func(float64) string

type TXTFileWriter struct {
	logger *zap.Logger
}

func NewTXTFileWriter(logger *zap.Logger) *TXTFileWriter {
	return &TXTFileWriter{logger: logger}
}

// WriteVectorFormatted creates the parent directories and replaces path
// atomically: the data goes to a temporary file in the same directory which
// is renamed over path only after a successful flush.
func (w *TXTFileWriter) WriteVectorFormatted(path string, values []float64, formatter FmtFunc) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := file.Name()
	defer os.Remove(tmp)

	writer := bufio.NewWriter(file)
	for _, v := range values {
		if _, err := writer.WriteString(formatter(v)); err != nil {
			file.Close()
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			file.Close()
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	w.logger.Info("Successfully written result",
		zap.String("file", path),
		zap.Int("values", len(values)))
	return nil
}
