package rules

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoRules is returned for documents without a top-level rules array.
var ErrNoRules = errors.New("rules: document has no rules array")

//go:embed rule.schema.json
var ruleSchemaJSON string

var ruleSchema = jsonschema.MustCompileString("rule.schema.json", ruleSchemaJSON)

const (
	typeAutoTile4 = "autotile_4_sides"
	typeAutoTile8 = "autotile_8_sides"
	typeUniform   = "uniform_distribution"
	typeRootAT4   = "root_autotile_4_sides"

	categoryRoot    = "root"
	categoryTerrain = "terrain"
)

type entry struct {
	Type      string          `json:"type"`
	Category  string          `json:"category"`
	Input     uint32          `json:"input"`
	Label     string          `json:"label"`
	Neighbor  uint32          `json:"neighbor"`
	Source    *uint32         `json:"source"`
	FrontFace uint32          `json:"front_face_id"`
	Output    json.RawMessage `json:"output"`
}

type bitmaskOutput struct {
	Bitmask int    `json:"bitmask"`
	Value   uint32 `json:"value"`
}

type candidateOutput struct {
	Value       uint32  `json:"value"`
	Probability float64 `json:"probability"`
	Placement   string  `json:"placement"`
}

// LoadFile reads a rule definition file. See Load.
func LoadFile(path string, logger *slog.Logger) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	defer f.Close()
	t, err := Load(f, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Load reads {"rules": [...]} from r. An entry's category picks its
// namespace: "root" rules apply to raw generated ids, "terrain" rules (and
// entries without a category) to everything after. Entries that fail
// validation or have an unknown type are logged and skipped; only an
// unreadable document is an error.
func Load(r io.Reader, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var doc struct {
		Rules *[]json.RawMessage `json:"rules"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("rules: decode: %w", err)
	}
	if doc.Rules == nil {
		return nil, ErrNoRules
	}

	t := NewTable()
	for i, raw := range *doc.Rules {
		rule, category, err := parseEntry(raw, logger)
		if err != nil {
			logger.Warn("skipping rule entry", "index", i, "err", err)
			continue
		}
		if category == categoryRoot {
			add(t.root, rule)
			continue
		}
		add(t.terrain, rule)
	}
	logger.Debug("rules loaded", "entries", len(*doc.Rules), "inputs", t.Len())
	return t, nil
}

func parseEntry(raw json.RawMessage, logger *slog.Logger) (Rule, string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, "", err
	}
	switch head.Type {
	case typeAutoTile4, typeAutoTile8, typeUniform, typeRootAT4:
	default:
		return nil, "", fmt.Errorf("unknown rule type %q", head.Type)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, "", err
	}
	if err := ruleSchema.Validate(v); err != nil {
		return nil, "", err
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, "", err
	}
	if e.Category == "" {
		e.Category = categoryTerrain
	}

	var (
		r   Rule
		err error
	)
	switch e.Type {
	case typeAutoTile4, typeRootAT4:
		r, err = parseAutoTile4(e)
	case typeAutoTile8:
		r, err = parseAutoTile8(e, logger)
	default:
		r, err = parseUniform(e)
	}
	return r, e.Category, err
}

func parseAutoTile4(e entry) (Rule, error) {
	var outs []bitmaskOutput
	if err := json.Unmarshal(e.Output, &outs); err != nil {
		return nil, err
	}
	r := AutoTile4{Input: e.Input, Neighbor: e.Neighbor, Label: e.Label, FrontFace: e.FrontFace}
	for _, o := range outs {
		r.Output[o.Bitmask] = o.Value
	}
	return r, nil
}

func parseAutoTile8(e entry, logger *slog.Logger) (Rule, error) {
	var outs []bitmaskOutput
	if err := json.Unmarshal(e.Output, &outs); err != nil {
		return nil, err
	}
	r := AutoTile8{Input: e.Input, Neighbor: e.Neighbor, Source: e.Input, Label: e.Label}
	if e.Source != nil {
		r.Source = *e.Source
	}
	for _, o := range outs {
		idx, ok := AuthoringIndex(o.Bitmask)
		if !ok {
			logger.Debug("skipping 8-sided output", "input", e.Input, "bitmask", o.Bitmask)
			continue
		}
		r.Output[idx] = o.Value
	}
	return r, nil
}

func parseUniform(e entry) (Rule, error) {
	var outs []candidateOutput
	if err := json.Unmarshal(e.Output, &outs); err != nil {
		return nil, err
	}
	r := UniformDistribution{Input: e.Input, Label: e.Label}
	for _, o := range outs {
		c := Candidate{Value: o.Value, Probability: o.Probability}
		if o.Placement == "decoration" {
			c.Placement = PlaceDecoration
		}
		r.Candidates = append(r.Candidates, c)
	}
	return r, nil
}
