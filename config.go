package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"Sift/pkg/decompress"
	"Sift/pkg/extract"
)

// ========================================
// Configuration
// ========================================

// Config holds the tunables that may come from the config file. Command-line
// flags override it.
type Config struct {
	MaxDepth      int     `json:"maxDepth"`
	MinLength     int     `json:"minLength"`
	MaxNoiseRatio float64 `json:"maxNoiseRatio"`
	ScanMinRun    int     `json:"scanMinRun"`
	Mode          string  `json:"mode"`              // "walk" or "scan"
	Decompress    string  `json:"decompress"`        // see decompress.ParseFormat
	MaxUnpacked   int     `json:"maxDecompressSize"` // bytes, 0 for the package default
	Tail          int     `json:"tail"`
	Script        string  `json:"script,omitempty"`
	Store         string  `json:"store,omitempty"`
	LogLevel      string  `json:"logLevel"`
	LogFile       string  `json:"logFile,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth:      extract.DefaultMaxDepth,
		MinLength:     extract.DefaultMinLength,
		MaxNoiseRatio: extract.DefaultMaxNoiseRatio,
		ScanMinRun:    extract.DefaultScanMinRun,
		Mode:          string(extract.ModeWalk),
		Decompress:    string(decompress.Auto),
		LogLevel:      "warn",
	}
}

// DefaultConfigPath is sift/config.json under the user config directory, or
// "" when that directory is unknown.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "sift", "config.json")
}

// LoadConfig reads path over the defaults. A missing file is an error only
// when required is set.
func LoadConfig(path string, required bool) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := config.merge(data); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return config, nil
}

// merge overlays the keys present in data.
func (c *Config) merge(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return errors.New("top level must be an object")
	}

	ints := map[string]*int{
		"maxDepth":   &c.MaxDepth,
		"minLength":  &c.MinLength,
		"scanMinRun": &c.ScanMinRun,
		"tail":       &c.Tail,

		"maxDecompressSize": &c.MaxUnpacked,
	}
	for key, dst := range ints {
		if v := doc.Get(key); v.Exists() {
			if v.Type != gjson.Number {
				return fmt.Errorf("%s: expected a number", key)
			}
			*dst = int(v.Int())
		}
	}

	if v := doc.Get("maxNoiseRatio"); v.Exists() {
		if v.Type != gjson.Number {
			return errors.New("maxNoiseRatio: expected a number")
		}
		c.MaxNoiseRatio = v.Float()
	}

	strs := map[string]*string{
		"mode":       &c.Mode,
		"decompress": &c.Decompress,
		"script":     &c.Script,
		"store":      &c.Store,
		"logLevel":   &c.LogLevel,
		"logFile":    &c.LogFile,
	}
	for key, dst := range strs {
		if v := doc.Get(key); v.Exists() {
			if v.Type != gjson.String {
				return fmt.Errorf("%s: expected a string", key)
			}
			*dst = v.String()
		}
	}

	return nil
}

// Validate checks values that the extraction packages would otherwise
// silently coerce.
func (c *Config) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("maxDepth must not be negative, got %d", c.MaxDepth)
	}
	if c.MinLength < 0 {
		return fmt.Errorf("minLength must not be negative, got %d", c.MinLength)
	}
	if c.MaxNoiseRatio < 0 || c.MaxNoiseRatio > 1 {
		return fmt.Errorf("maxNoiseRatio must be within [0, 1], got %g", c.MaxNoiseRatio)
	}
	if c.ScanMinRun < 0 {
		return fmt.Errorf("scanMinRun must not be negative, got %d", c.ScanMinRun)
	}
	if c.MaxUnpacked < 0 {
		return fmt.Errorf("maxDecompressSize must not be negative, got %d", c.MaxUnpacked)
	}
	if c.Tail < 0 {
		return fmt.Errorf("tail must not be negative, got %d", c.Tail)
	}
	if _, ok := extract.ParseMode(c.Mode); !ok {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if _, err := decompress.ParseFormat(c.Decompress); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Options converts c to extraction options.
func (c *Config) Options() extract.Options {
	mode, _ := extract.ParseMode(c.Mode)
	return extract.Options{
		Mode:          mode,
		MaxDepth:      c.MaxDepth,
		MinLength:     c.MinLength,
		MaxNoiseRatio: c.MaxNoiseRatio,
		ScanMinRun:    c.ScanMinRun,
		Tail:          c.Tail,
	}
}

// Format returns the configured decompression format.
func (c *Config) Format() decompress.Format {
	f, err := decompress.ParseFormat(c.Decompress)
	if err != nil {
		return decompress.Auto
	}
	return f
}
