package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"tilestream/internal/rules"
)

func runFetchRules(args []string) error {
	fs := flag.NewFlagSet("fetch-rules", flag.ContinueOnError)
	src := fs.String("src", "", "source (path, URL, git::, s3:: ...)")
	dst := fs.String("dst", "rules.json", "destination file")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *src == "" {
		return fmt.Errorf("fetch-rules: -src is required")
	}
	log := newLogger(*verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := rules.Fetch(ctx, *src, *dst); err != nil {
		return err
	}

	// reject a download that is not a usable rule file
	table, err := rules.LoadFile(*dst, log)
	if err != nil {
		return err
	}
	log.Info("fetched rules", "dst", *dst, "inputs", table.Len())
	return nil
}
