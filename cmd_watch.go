package main

import (
	"Sift/pkg/types"
)

// WatchCmd re-extracts a file every time it changes.
type WatchCmd struct {
	File string `arg:"" optional:"" placeholder:"FILE" help:"Protobuf file to watch."`

	ExtractFlags `embed:""`
}

func (c *WatchCmd) Run(env *Env) error {
	app, err := NewApp(c.apply(env.Config))
	if err != nil {
		return err
	}
	defer app.Close()

	var writeErr error
	w, err := NewFileWatcher(app, c.File, c.Latest, func(r *types.Result) {
		if err := writeJSON(env.Stdout, r.Strings); err != nil && writeErr == nil {
			writeErr = err
			LogError("watch").Err(err).Msg("Failed to write result")
		}
	})
	if err != nil {
		return err
	}

	if err := w.Run(env.Ctx); err != nil {
		return err
	}
	return writeErr
}
