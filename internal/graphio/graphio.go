// Package graphio loads and saves person graphs as JSON or YAML files. The
// on-disk format is the serialized tree.Graph; derived fields are recomputed
// on load and referential integrity is checked so downstream passes can
// assume every referenced id resolves.
package graphio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/kinsync/kinsync/pkg/errors"
	"github.com/kinsync/kinsync/pkg/tree"
)

// Format identifies a graph file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat infers the encoding from a file extension, defaulting to JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads a graph file, recomputes derived fields, and verifies
// referential integrity.
func Load(path string) (*tree.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data, DetectFormat(path), path)
}

// Parse decodes graph data in the given format. The name is used in error
// messages only.
func Parse(data []byte, format Format, name string) (*tree.Graph, error) {
	g := tree.NewGraph()
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, g); err != nil {
			return nil, errors.WrapParse("yaml", name, err)
		}
	default:
		if err := json.Unmarshal(data, g); err != nil {
			return nil, errors.WrapParse("json", name, err)
		}
	}
	if g.Persons == nil {
		g.Persons = make(map[tree.PersonID]*tree.Person)
	}
	if g.Families == nil {
		g.Families = make(map[tree.FamilyID]*tree.Family)
	}

	// Map keys are authoritative; a record's own id field may be omitted in
	// hand-written files.
	for id, p := range g.Persons {
		if p == nil {
			return nil, errors.NewParseError(string(format), name, fmt.Sprintf("person %q has no record", id), nil)
		}
		p.ID = id
	}
	for id, f := range g.Families {
		if f == nil {
			return nil, errors.NewParseError(string(format), name, fmt.Sprintf("family %q has no record", id), nil)
		}
		f.ID = id
	}

	if err := checkIntegrity(g, name); err != nil {
		return nil, err
	}
	g.Normalize()
	return g, nil
}

// Save writes a graph to a file, choosing the encoding from the extension.
func Save(path string, g *tree.Graph) error {
	var (
		data []byte
		err  error
	)
	switch DetectFormat(path) {
	case FormatYAML:
		data, err = yaml.Marshal(g)
	default:
		data, err = json.MarshalIndent(g, "", "  ")
	}
	if err != nil {
		return errors.WrapParse(string(DetectFormat(path)), path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// checkIntegrity verifies that every person and family reference resolves.
func checkIntegrity(g *tree.Graph, name string) error {
	person := func(owner string, id tree.PersonID) error {
		if id == "" {
			return nil
		}
		if g.Person(id) == nil {
			return errors.NewValidationError("graph", name, fmt.Sprintf("%s references unknown person %q", owner, id))
		}
		return nil
	}

	for _, p := range g.PersonList() {
		owner := fmt.Sprintf("person %q", p.ID)
		refs := []tree.PersonID{p.FatherID, p.MotherID}
		refs = append(refs, p.SpouseIDs...)
		refs = append(refs, p.ChildIDs...)
		refs = append(refs, p.SiblingIDs...)
		for _, id := range refs {
			if err := person(owner, id); err != nil {
				return err
			}
		}
	}
	for _, f := range g.FamilyList() {
		owner := fmt.Sprintf("family %q", f.ID)
		refs := []tree.PersonID{f.HusbandID, f.WifeID}
		refs = append(refs, f.ChildIDs...)
		for _, id := range refs {
			if err := person(owner, id); err != nil {
				return err
			}
		}
	}
	return nil
}
