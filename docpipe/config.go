package docpipe

import (
	"log/slog"

	"github.com/hazyhaar/docdiff/capability"
	"github.com/hazyhaar/docdiff/ocr"
)

// Config configures the document pipeline.
type Config struct {
	// MaxFileSize is the maximum input size (default: 100 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// MinNativeChars: a PDF whose native text is shorter is re-read with
	// OCR (default: 100).
	MinNativeChars int `json:"min_native_chars" yaml:"min_native_chars"`

	// FilesRoot confines the paths accepted by docdiff_extract. Empty
	// allows any readable path.
	FilesRoot string `json:"-" yaml:"-"`

	// Renderer produces page rasters. Nil disables the visual path.
	Renderer capability.Renderer `json:"-" yaml:"-"`

	// OCR reads scanned pages. Nil leaves scanned inputs without text.
	OCR ocr.Engine `json:"-" yaml:"-"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.MinNativeChars <= 0 {
		c.MinNativeChars = 100
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
