package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"Sift/pkg/decompress"
	"Sift/pkg/extract"
	"Sift/pkg/script"
	"Sift/pkg/types"
)

// version is overridden at link time.
var version = "dev"

// headerDumpLen is how much of each input is hex-dumped at debug level.
const headerDumpLen = 64

// ErrNoStore is returned by history operations when no store is configured.
var ErrNoStore = errors.New("no history store configured (set --store or \"store\" in the config file)")

// App runs extractions with one configuration. It owns the optional script
// filter and history store.
type App struct {
	config    *Config
	unwrapper *decompress.Unwrapper
	filter    *script.Filter
	store     *HistoryStore
	version   string
}

// NewApp validates config, loads the script filter and opens the history
// store when configured.
func NewApp(config *Config) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	unwrapper := decompress.New()
	unwrapper.Logger = ModuleLogger("decompress")
	if config.MaxUnpacked > 0 {
		unwrapper.MaxSize = int64(config.MaxUnpacked)
	}

	a := &App{
		config:    config,
		unwrapper: unwrapper,
		version:   version,
	}

	if config.Script != "" {
		f, err := script.LoadFile(config.Script, script.WithLogger(ModuleLogger("script")))
		if err != nil {
			return nil, fmt.Errorf("failed to load script: %w", err)
		}
		a.filter = f
		LogInfo("app").Str("script", f.Name()).Msg("script filter loaded")
	}

	if config.Store != "" {
		store, err := OpenHistoryStore(config.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		a.store = store
	}

	return a, nil
}

// Close releases the history store.
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// GetAppVersion returns the build version.
func (a *App) GetAppVersion() string {
	return a.version
}

// HasHistory reports whether runs are being persisted.
func (a *App) HasHistory() bool {
	return a.store != nil
}

// ExtractFile reads path fully and extracts from it with the configured
// options.
func (a *App) ExtractFile(ctx context.Context, path string) (*types.Result, error) {
	return a.extractFile(ctx, path, a.config.Options(), a.config.Format())
}

// Extract runs one request, with its fields overriding the configuration.
func (a *App) Extract(ctx context.Context, req types.ExtractRequest) (*types.Result, error) {
	opts := a.config.Options()
	format := a.config.Format()

	if req.Mode != "" {
		mode, ok := extract.ParseMode(req.Mode)
		if !ok {
			return nil, fmt.Errorf("unknown mode %q", req.Mode)
		}
		opts.Mode = mode
	}
	if req.Decompress != "" {
		f, err := decompress.ParseFormat(req.Decompress)
		if err != nil {
			return nil, err
		}
		format = f
	}
	if req.Tail < 0 {
		return nil, fmt.Errorf("tail must not be negative, got %d", req.Tail)
	}
	if req.Tail > 0 {
		opts.Tail = req.Tail
	}

	if req.Path != "" {
		return a.extractFile(ctx, req.Path, opts, format)
	}
	return a.extractBytes(ctx, "-", req.Data, opts, format)
}

func (a *App) extractFile(ctx context.Context, path string, opts extract.Options, format decompress.Format) (*types.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return a.extractBytes(ctx, path, data, opts, format)
}

func (a *App) extractBytes(ctx context.Context, source string, data []byte, opts extract.Options, format decompress.Format) (*types.Result, error) {
	head := data
	if len(head) > headerDumpLen {
		head = head[:headerDumpLen]
	}
	LogDebug("app").Str("source", source).Int("size", len(data)).Hex("head", head).Msg("input loaded")

	payload, detected, err := a.unwrapper.Unwrap(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap %s: %w", source, err)
	}
	if detected != decompress.Raw {
		LogDebug("app").Str("format", string(detected)).Int("size", len(payload)).Msg("input unwrapped")
	}

	// The script sees every filtered string; tail applies to what it keeps.
	tail := opts.Tail
	if a.filter != nil {
		opts.Tail = 0
	}

	out := extract.Run(payload, opts)
	strs := out.Strings
	if a.filter != nil {
		strs, err = a.filter.Apply(ctx, source, strs)
		if err != nil {
			return nil, fmt.Errorf("script filter failed: %w", err)
		}
		strs = extract.Tail(strs, tail)
	}

	result := &types.Result{
		ID:         uuid.New().String(),
		Source:     source,
		Format:     string(detected),
		Mode:       string(opts.Mode),
		Strings:    strs,
		Candidates: out.Candidates,
		Bytes:      len(payload),
		CreatedAt:  time.Now().UnixMilli(),
	}

	LogInfo("app").
		Str("source", source).
		Int("candidates", out.Candidates).
		Int("kept", len(strs)).
		Msg("extraction finished")

	if a.store != nil {
		if err := a.store.SaveRun(ctx, result); err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
	}
	return result, nil
}

// ListRuns returns stored runs, newest first.
func (a *App) ListRuns(ctx context.Context, limit int) ([]types.RunSummary, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	return a.store.ListRuns(ctx, limit)
}

// GetRun returns a stored run.
func (a *App) GetRun(ctx context.Context, id string) (*types.Result, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	return a.store.GetRun(ctx, id)
}
