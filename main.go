package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
)

// CLI is the command tree. Extract is the default, so "sift FILE" works. A
// bare argument naming a subcommand selects that subcommand; a file called
// "watch" is read with "sift extract watch" or "sift ./watch".
type CLI struct {
	Globals

	Extract ExtractCmd `cmd:"" default:"withargs" help:"Print the readable strings in a protobuf file as a JSON array (default)."`
	Watch   WatchCmd   `cmd:"" help:"Re-extract whenever the input changes, one JSON array per line."`
	History HistoryCmd `cmd:"" help:"Inspect stored extraction runs."`
	MCP     MCPCmd     `cmd:"" name:"mcp" help:"Serve extraction tools over the Model Context Protocol on stdio."`
}

// Globals are flags accepted by every command.
type Globals struct {
	Config   string           `short:"c" placeholder:"FILE" help:"Config file (default: sift/config.json in the user config directory)."`
	LogLevel string           `placeholder:"LEVEL" help:"Log level: debug, info, warn, error."`
	LogFile  string           `placeholder:"PATH" help:"Also write logs to PATH."`
	Version  kong.VersionFlag `short:"V" help:"Print the version and exit."`
}

// Env is bound into every command's Run method.
type Env struct {
	Ctx    context.Context
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Config *Config
}

// exitCode carries kong's requested exit status out of Parse.
type exitCode int

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			c, ok := r.(exitCode)
			if !ok {
				panic(r)
			}
			code = int(c)
		}
	}()

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("sift"),
		kong.Description("Recover human-readable text from protobuf data without a schema.\n\n"+
			"A FILE named like a subcommand must be given as \"sift extract FILE\" or with a path prefix such as ./watch."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(c int) { panic(exitCode(c)) }),
		kong.Vars{"version": version},
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		fmt.Fprintf(stderr, "sift: %v\n", err)
		return 2
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "sift: %v\n", err)
		fmt.Fprintln(stderr, "Run 'sift --help' for usage.")
		return 2
	}

	config, err := cli.Globals.load()
	if err != nil {
		fmt.Fprintf(stderr, "sift: %v\n", err)
		return 1
	}
	if err := cli.Globals.initLogging(config, stderr); err != nil {
		fmt.Fprintf(stderr, "sift: %v\n", err)
		return 1
	}
	defer CloseLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := &Env{
		Ctx:    ctx,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		Config: config,
	}
	if err := kctx.Run(env); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		fmt.Fprintf(stderr, "sift: %v\n", err)
		return 1
	}
	return 0
}

// load reads the config file named by --config, or the default one if it
// exists, and applies the global logging overrides.
func (g *Globals) load() (*Config, error) {
	path, required := g.Config, true
	if path == "" {
		path, required = DefaultConfigPath(), false
	}

	config, err := LoadConfig(path, required)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		config.LogLevel = g.LogLevel
	}
	if g.LogFile != "" {
		config.LogFile = g.LogFile
	}
	return config, nil
}

func (g *Globals) initLogging(config *Config, stderr io.Writer) error {
	level, err := ParseLogLevel(config.LogLevel)
	if err != nil {
		return err
	}

	logConfig := DefaultLogConfig()
	logConfig.Level = level
	logConfig.Out = stderr
	logConfig.NoColor = true
	if f, ok := stderr.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		logConfig.NoColor = false
	}
	if config.LogFile != "" {
		logConfig.File = true
		logConfig.FilePath = config.LogFile
	}
	return InitLogger(logConfig)
}

// writeJSON writes v as one line without HTML escaping.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
