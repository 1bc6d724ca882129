// Package writer encodes heap images and writes them to sinks. An image is
// the raw bytes of a region from its start up to the bump tip, preceded by
// a header recording the addresses and a checksum.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives a heap image.
type Sink interface {
	WriteImage(img Image) error
}

// FileWriter writes images to a filesystem path atomically.
type FileWriter struct {
	Path string
}

// WriteImage encodes img and writes it to the configured path via temp file +
// rename, so a reader never sees a partially written image.
func (w *FileWriter) WriteImage(img Image) error {
	raw, err := img.MarshalBinary()
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.Path)
	tmpFile, err := os.CreateTemp(dir, ".heapkit-img-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(raw); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, w.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// ReadImage loads and checks an image written by FileWriter.
func ReadImage(path string) (Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}
	img, err := ParseImage(raw)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

var _ Sink = (*FileWriter)(nil)
