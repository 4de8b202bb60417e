// Package safeio bounds what docdiff reads from callers and backends:
// file paths named by MCP clients and response bodies of remote services.
package safeio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrPathTraversal is returned when a path resolves outside its root.
	ErrPathTraversal = errors.New("safeio: path escapes root")
	// ErrTooLarge is returned when input exceeds its byte budget.
	ErrTooLarge = errors.New("safeio: input too large")
)

// Confine resolves input against root and rejects results outside root.
// Relative inputs are joined to root. An empty root only cleans the path.
func Confine(root, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("safeio: empty path")
	}
	if root == "" {
		return filepath.Clean(input), nil
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("safeio: root: %w", err)
	}
	p := input
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, input)
	}
	return p, nil
}

// ReadAll reads at most maxBytes from r.
func ReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// ReadFile reads a regular file of at most maxBytes.
func ReadFile(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("safeio: %s is not a regular file", path)
	}
	if info.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrTooLarge, path, info.Size(), maxBytes)
	}
	return ReadAll(f, maxBytes)
}

// Snippet returns up to 512 bytes of r for error messages.
func Snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
