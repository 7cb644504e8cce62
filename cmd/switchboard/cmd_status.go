package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/chr1sbest/switchboard/internal/config"
	"github.com/chr1sbest/switchboard/internal/logger"
	"github.com/chr1sbest/switchboard/internal/store"
	"github.com/chr1sbest/switchboard/internal/tracker"
)

func statusCmd(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configFile := fs.String("config", "switchboard.json", "Path to config file")
	limit := fs.Int("limit", 10, "How many runs to show")
	fs.Parse(args)

	loader := config.NewLoader(filepath.Dir(*configFile))
	cfg, err := loader.LoadFile(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	runs := store.New(cfg.StatePath, logger.NewNoopLogger()).Load()
	renderRuns(os.Stdout, runs, *limit)
	return 0
}

func renderRuns(w io.Writer, runs []store.RunRecord, limit int) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	fmt.Fprintf(w, "%-8s  %-8s  %-19s  %s\n", "RUN", "STATUS", "STARTED", "SUMMARY")
	for _, r := range runs {
		started := time.UnixMilli(r.StartedAtMs).Format("2006-01-02 15:04:05")
		fmt.Fprintf(w, "%-8s  %-8s  %-19s  %s\n",
			tracker.ShortID(r.RunID), r.Status, started, r.Summary)
	}
}
