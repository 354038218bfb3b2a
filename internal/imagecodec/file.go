package imagecodec

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReadFile loads an image from disk as a data URL.
func ReadFile(path string) (string, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("imagecodec: read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return "", "", fmt.Errorf("imagecodec: %s is empty", path)
	}
	payload, mime := FromBytes(raw)
	return payload, mime, nil
}

// WriteFile decodes payload into path. When path has no extension one is
// derived from the payload MIME type. The written path is returned.
func WriteFile(path, payload string) (string, error) {
	blob, mime, err := Decode(payload)
	if err != nil {
		return "", err
	}
	if filepath.Ext(path) == "" {
		path += Extension(mime)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("imagecodec: ensure directory: %w", err)
		}
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return "", fmt.Errorf("imagecodec: write %s: %w", path, err)
	}
	return path, nil
}
