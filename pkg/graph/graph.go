package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	mlerrors "github.com/matzehuels/mlateration/pkg/errors"
	"github.com/matzehuels/mlateration/pkg/lateration"
	"github.com/matzehuels/mlateration/pkg/lateration/solver"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", mlerrors.New(mlerrors.ErrCodeInvalidFormat,
		"cannot infer format of %q (use .json, .toml, .yaml or .yml)", path)
}

// ReadGraph decodes a graph document in the given format.
func ReadGraph(r io.Reader, format string) (*Graph, error) {
	var g Graph
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&g)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&g)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&g)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return nil, mlerrors.ValidateFormat(format, Formats...)
	}
	if err != nil {
		return nil, mlerrors.Wrap(mlerrors.ErrCodeInvalidFormat, err, "decode %s graph", format)
	}
	return &g, nil
}

// ReadGraphFile reads a graph document, inferring the format from the
// file extension.
func ReadGraphFile(path string) (*Graph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, mlerrors.Wrap(mlerrors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	g, err := ReadGraph(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// WriteGraph encodes g in the given format.
func WriteGraph(g *Graph, w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	case FormatTOML:
		return toml.NewEncoder(w).Encode(g)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return err
		}
		return enc.Close()
	}
	return mlerrors.ValidateFormat(format, Formats...)
}

// WriteGraphFile writes g to path in the format given by its extension.
func WriteGraphFile(g *Graph, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf, format); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// MarshalGraph returns the compact JSON of g's canonical form. The output
// is stable across input order and format, which makes it suitable as a
// hashing input.
func MarshalGraph(g *Graph) ([]byte, error) {
	c := g.Canonical()
	return json.Marshal(&c)
}

// =============================================================================
// Conversion
// =============================================================================

// Build validates g and loads it into a new lateration graph. Errors name
// the offending anchor or edge.
func Build(g *Graph, opts ...lateration.Option) (*lateration.Graph, error) {
	lg := lateration.New(opts...)
	for _, a := range g.Anchors {
		if err := lg.AddPosition(a.ID, solver.Point{X: a.X, Y: a.Y}); err != nil {
			return nil, fmt.Errorf("anchor %q: %w", a.ID, err)
		}
	}
	for i, e := range g.Edges {
		if err := lg.AddEdge(e.From, e.To, e.Distance); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return lg, nil
}
