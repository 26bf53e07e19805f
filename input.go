package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoInput is returned when neither a file nor --latest was given.
var ErrNoInput = errors.New("no input file given")

// conversationExt is the suffix --latest looks for.
const conversationExt = ".pb"

// latestFile returns the most recently modified regular file in dir whose
// name ends in ext. Ties go to the lexically greater name.
func latestFile(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
	}

	var (
		best     string
		bestTime int64
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		mod := info.ModTime().UnixNano()
		if best == "" || mod > bestTime || (mod == bestTime && entry.Name() > filepath.Base(best)) {
			best = filepath.Join(dir, entry.Name())
			bestTime = mod
		}
	}

	if best == "" {
		return "", fmt.Errorf("no %s files in %s", ext, dir)
	}
	return best, nil
}

// resolveInput picks the file to read from a positional argument and an
// optional --latest directory.
func resolveInput(file, latestDir string) (string, error) {
	if latestDir != "" {
		return latestFile(latestDir, conversationExt)
	}
	if file == "" {
		return "", ErrNoInput
	}
	return file, nil
}
