// Package filex contains filesystem helpers shared by the CLI.
package filex

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrTooLarge = errors.New("file too large")
	ErrNotImage = errors.New("not an image")
)

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// ReadImage reads at most maxSize bytes of an image file and sniffs its
// content type.
func ReadImage(path string, maxSize int64) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxSize {
		return nil, "", fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, path, maxSize)
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, "", fmt.Errorf("%w: %s is %s", ErrNotImage, path, ct)
	}
	return data, ct, nil
}
