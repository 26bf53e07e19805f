package main

// ExtractFlags tune a single extraction. Unset flags leave the config file
// value in place.
type ExtractFlags struct {
	Mode       string `short:"m" placeholder:"MODE" help:"Candidate search: walk (protobuf wire walk) or scan (printable runs)."`
	Decompress string `short:"d" placeholder:"FORMAT" help:"Container format: auto, none, gzip, zlib, zstd, snappy, brotli."`
	Tail       int    `short:"n" default:"-1" placeholder:"N" help:"Keep only the last N strings (0 keeps all)."`
	Latest     string `placeholder:"DIR" help:"Read the most recently modified .pb file in DIR instead of FILE."`
	Script     string `placeholder:"FILE" help:"JavaScript post-filter defining filter.keep(s, ctx)."`
	Store      string `placeholder:"PATH" help:"Record each run in the SQLite database at PATH."`
	MaxDepth   int    `default:"-1" placeholder:"N" help:"Nesting depth beyond which fields are not descended into."`
}

// apply returns a copy of config with the set flags applied.
func (f *ExtractFlags) apply(config *Config) *Config {
	c := *config
	if f.Mode != "" {
		c.Mode = f.Mode
	}
	if f.Decompress != "" {
		c.Decompress = f.Decompress
	}
	if f.Tail >= 0 {
		c.Tail = f.Tail
	}
	if f.Script != "" {
		c.Script = f.Script
	}
	if f.Store != "" {
		c.Store = f.Store
	}
	if f.MaxDepth >= 0 {
		c.MaxDepth = f.MaxDepth
	}
	return &c
}

// ExtractCmd prints the strings found in one file.
type ExtractCmd struct {
	File string `arg:"" optional:"" placeholder:"FILE" help:"Protobuf file to read. Prefix with ./ if it is named like a subcommand."`

	ExtractFlags `embed:""`
}

func (c *ExtractCmd) Run(env *Env) error {
	path, err := resolveInput(c.File, c.Latest)
	if err != nil {
		return err
	}

	app, err := NewApp(c.apply(env.Config))
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.ExtractFile(env.Ctx, path)
	if err != nil {
		return err
	}
	return writeJSON(env.Stdout, result.Strings)
}
