package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"Sift/pkg/types"
)

// HistoryCmd groups the run-history subcommands.
type HistoryCmd struct {
	List HistoryListCmd `cmd:"" default:"withargs" help:"List stored runs, newest first (default)."`
	Show HistoryShowCmd `cmd:"" help:"Print the strings of one run as a JSON array."`
}

// HistoryListCmd lists stored runs.
type HistoryListCmd struct {
	HistoryFlags `embed:""`

	Limit int  `short:"l" default:"20" help:"Maximum runs to list (0 lists all)."`
	JSON  bool `help:"Print the listing as JSON."`
}

// HistoryShowCmd prints one stored run.
type HistoryShowCmd struct {
	HistoryFlags `embed:""`

	ID     string `arg:"" help:"Run ID, or \"latest\"."`
	Source string `placeholder:"FILE" help:"With \"latest\", only consider runs of FILE."`
	Full   bool   `help:"Print the whole run record instead of only its strings."`
}

// HistoryFlags locate the run database.
type HistoryFlags struct {
	Store string `placeholder:"PATH" help:"SQLite database to read (default: \"store\" from the config file)."`
}

func (h *HistoryFlags) open(env *Env) (*HistoryStore, error) {
	path := h.Store
	if path == "" {
		path = env.Config.Store
	}
	if path == "" {
		return nil, ErrNoStore
	}
	return OpenHistoryStore(path)
}

func (c *HistoryListCmd) Run(env *Env) error {
	store, err := c.open(env)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(env.Ctx, c.Limit)
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(env.Stdout, runs)
	}
	return printRuns(env.Stdout, runs)
}

func (c *HistoryShowCmd) Run(env *Env) error {
	store, err := c.open(env)
	if err != nil {
		return err
	}
	defer store.Close()

	var result *types.Result
	if c.ID == "latest" {
		result, err = store.LatestRun(env.Ctx, c.Source)
	} else {
		result, err = store.GetRun(env.Ctx, c.ID)
	}
	if errors.Is(err, ErrRunNotFound) {
		return fmt.Errorf("%w: %s", err, c.ID)
	}
	if err != nil {
		return err
	}

	if c.Full {
		return writeJSON(env.Stdout, result)
	}
	return writeJSON(env.Stdout, result.Strings)
}

func printRuns(w io.Writer, runs []types.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tFORMAT\tMODE\tSTRINGS\tCANDIDATES")
	for _, r := range runs {
		created := time.UnixMilli(r.CreatedAt).Format("2006-01-02 15:04:05")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, created, r.Source, r.Format, r.Mode, r.Count, r.Candidates)
	}
	return tw.Flush()
}
