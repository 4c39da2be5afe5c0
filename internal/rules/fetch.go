package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	getter "github.com/hashicorp/go-getter"
)

// Fetch downloads a single rule definition file from any go-getter source
// (local path, file::, http(s)://, git::, s3:: ...) to dst.
func Fetch(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("fetch rules: create directory: %w", err)
	}
	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("fetch rules: %w", err)
	}
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("fetch rules %s: %w", src, err)
	}
	return nil
}
