package main

import (
	"flag"
	"fmt"

	"tilestream/internal/preview"
	"tilestream/internal/world"
)

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file (defaults are embedded)")
	rulesPath := fs.String("rules", "", "rule definition JSON")
	seed := fs.Int64("seed", 1, "world seed")
	x := fs.Int("x", 0, "world x inside the chunk")
	y := fs.Int("y", 0, "world y inside the chunk")
	z := fs.Int("z", 0, "world z inside the chunk")
	out := fs.String("preview", "", "write a top-down PNG of the chunk")
	scale := fs.Int("scale", 8, "preview pixels per cell")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := newLogger(*verbose)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	table, err := loadRules(*rulesPath, log)
	if err != nil {
		return err
	}
	meta, err := world.GenerateMetadata("generate", *seed, world.Vec3i{}, cfg.Generation)
	if err != nil {
		return err
	}

	gen := world.NewGenerator(meta, table, cfg.Generation, log)
	pos := world.WorldToChunk(world.Vec3i{X: *x, Y: *y, Z: *z}, gen.Size())
	chunk := gen.Generate(*seed, pos)
	st := gen.Stats()

	fmt.Printf("chunk %v size %v\n", chunk.Position, chunk.Size)
	fmt.Printf("resolved=%d culled=%d rule_applications=%d cap_hits=%d gaps=%d decorated=%d\n",
		st.Resolved, st.Culled, st.RuleApplications, st.CapHits, st.Gaps, st.Decorated)

	if *out != "" {
		if err := preview.WritePNG(*out, preview.RenderTopFaces(chunk, *scale)); err != nil {
			return err
		}
		log.Info("wrote preview", "path", *out)
	}
	return nil
}
