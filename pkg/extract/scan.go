package extract

import (
	"strings"
	"unicode/utf8"
)

// DefaultScanMinRun is the run length a printable stretch must exceed to be
// reported by Scan.
const DefaultScanMinRun = 10

// Scan splits data on bytes that cannot appear in text and returns every
// printable run longer than minRun bytes that is valid UTF-8, trimmed.
//
// Unlike Walk it assumes nothing about the encoding of data. It is the
// fallback for inputs that are not protobuf at all.
func Scan(data []byte, minRun int) []string {
	var out []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		run := data[start:end]
		start = -1
		if len(run) <= minRun || !utf8.Valid(run) {
			return
		}
		if s := strings.TrimSpace(string(run)); s != "" {
			out = append(out, s)
		}
	}

	for i, c := range data {
		if isRunByte(c) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(data))
	return out
}

// isRunByte reports whether c may be part of a printable run: printable
// ASCII, tab, LF, CR, or any byte of a multi-byte UTF-8 sequence.
func isRunByte(c byte) bool {
	return c == '\t' || c == '\n' || c == '\r' || (c >= 0x20 && c <= 0x7E) || c >= 0x80
}
