package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"tilestream/internal/config"
	"tilestream/internal/rules"
	"tilestream/internal/storage"
	"tilestream/internal/world"
)

const usage = `usage: tilestream <command> [flags]

commands:
  generate     synthesize one chunk and print its stats
  stream       walk a viewer through a world and stream chunks around it
  fetch-rules  download a rule definition file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "generate":
		err = runGenerate(args)
	case "stream":
		err = runStream(args)
	case "fetch-rules":
		err = runFetchRules(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, "tilestream:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// loadRules reads a rule file; no path means every terrain renders as is.
func loadRules(path string, log *slog.Logger) (*rules.Table, error) {
	if path == "" {
		return rules.NewTable(), nil
	}
	return rules.LoadFile(path, log)
}

// openPersistence opens the configured back end. The returned close
// function is never nil.
func openPersistence(s config.Storage, log *slog.Logger) (world.Persistence, func() error, error) {
	noop := func() error { return nil }
	switch s.Backend {
	case "file":
		fs, err := storage.NewFileStore(s.Dir, log)
		if err != nil {
			return nil, noop, err
		}
		return fs, noop, nil
	case "sqlite":
		db, err := storage.OpenSQLite(s.SQLitePath, log)
		if err != nil {
			return nil, noop, err
		}
		return db, db.Close, nil
	default:
		return nil, noop, nil
	}
}
