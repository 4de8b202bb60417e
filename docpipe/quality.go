package docpipe

import (
	"strings"
	"unicode"
)

// ExtractionQuality describes how usable the native text of a PDF is.
type ExtractionQuality struct {
	PageCount       int     `json:"page_count"`
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	WordlikeRatio   float64 `json:"wordlike_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
}

// NeedsOCR reports whether the native text is too thin or too garbled to
// trust: a scanned page carries images and almost no text, and fonts with
// custom encodings decode to unprintable or word-less output.
func (q *ExtractionQuality) NeedsOCR() bool {
	if q.CharsPerPage < 50 && q.HasImageStreams {
		return true
	}
	return q.PrintableRatio < 0.85 || (q.CharsPerPage > 0 && q.WordlikeRatio < 0.5)
}

// computePrintableRatio returns the ratio of printable characters in text.
// Excludes PUA U+E000-U+F8FF, control chars < U+0020 (except \n\r\t), U+FFFD.
func computePrintableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total := 0
	printable := 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	// Private Use Area
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	// Replacement character
	if r == 0xFFFD {
		return true
	}
	// Control chars except whitespace
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// computeWordlikeRatio returns the ratio of word-like tokens (length 2-15) to total tokens.
func computeWordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		n := len([]rune(f))
		if n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}
