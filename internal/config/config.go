// Package config loads and validates genesis documents.
//
// A genesis may be written as CUE, YAML or JSON. Whatever the format, the
// document is unified with the embedded #Genesis schema, so defaults and
// constraints are the same for all three.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ao20/internal/ledger"
)

//go:embed schema.cue
var schemaSource string

// Format identifies a genesis document encoding.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported genesis format %q (want .cue, .yaml, .yml or .json)", filepath.Ext(path))
	}
}

// LoadGenesis reads, validates and decodes the genesis document at path.
func LoadGenesis(path string) (ledger.Genesis, error) {
	format, err := FormatFor(path)
	if err != nil {
		return ledger.Genesis{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ledger.Genesis{}, fmt.Errorf("read genesis: %w", err)
	}
	return ParseGenesis(path, data, format)
}

// ParseGenesis validates and decodes one genesis document. name is used
// for error positions only.
func ParseGenesis(name string, data []byte, format Format) (ledger.Genesis, error) {
	ctx := cuecontext.New()

	var doc cue.Value
	switch format {
	case FormatCUE, FormatJSON:
		// JSON is valid CUE.
		doc = ctx.CompileBytes(data, cue.Filename(name))
	case FormatYAML:
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return ledger.Genesis{}, fmt.Errorf("parse genesis %s: %w", name, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
		doc = ctx.Encode(raw)
	default:
		return ledger.Genesis{}, fmt.Errorf("unsupported genesis format %q", format)
	}
	if err := doc.Err(); err != nil {
		return ledger.Genesis{}, newError(name, err)
	}

	return decode(ctx, name, doc)
}

// GenesisFromValue validates an already decoded document, such as the
// inline genesis of a test scenario.
func GenesisFromValue(name string, v any) (ledger.Genesis, error) {
	ctx := cuecontext.New()
	doc := ctx.Encode(v)
	if err := doc.Err(); err != nil {
		return ledger.Genesis{}, newError(name, err)
	}
	return decode(ctx, name, doc)
}

func decode(ctx *cue.Context, name string, doc cue.Value) (ledger.Genesis, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return ledger.Genesis{}, fmt.Errorf("compile genesis schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Genesis")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return ledger.Genesis{}, newError(name, err)
	}

	var g ledger.Genesis
	if err := unified.Decode(&g); err != nil {
		return ledger.Genesis{}, fmt.Errorf("decode genesis %s: %w", name, err)
	}
	if g.Balances == nil {
		g.Balances = map[string]string{}
	}
	return g, nil
}

// Problem is one schema violation.
type Problem struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// Error reports every schema violation found in one document.
type Error struct {
	File     string    `json:"file"`
	Problems []Problem `json:"problems"`
}

func (e *Error) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("invalid genesis %s: %s", e.File, e.Problems[0])
	}
	return fmt.Sprintf("invalid genesis %s: %d problems, first: %s", e.File, len(e.Problems), e.Problems[0])
}

func (p Problem) String() string {
	var b strings.Builder
	if p.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", p.Line)
	}
	if p.Path != "" {
		b.WriteString(p.Path)
		b.WriteString(": ")
	}
	b.WriteString(p.Message)
	return b.String()
}

func newError(file string, err error) *Error {
	e := &Error{File: file}
	for _, ce := range cueerrors.Errors(err) {
		format, args := ce.Msg()
		p := Problem{
			Path:    strings.Join(ce.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		if pos := ce.Position(); pos.IsValid() && pos.Filename() == file {
			p.Line = pos.Line()
		}
		e.Problems = append(e.Problems, p)
	}
	if len(e.Problems) == 0 {
		e.Problems = []Problem{{Message: err.Error()}}
	}
	return e
}
