package tpg

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/fedtpg/program"
)

// ErrInvalidDefinition is returned when a GraphDefinition cannot describe a valid graph.
var ErrInvalidDefinition = errors.New("tpg: invalid graph definition")

// GraphDefinition represents a serializable graph definition
type GraphDefinition struct {
	Name     string             `json:"name,omitempty" yaml:"name,omitempty"`
	Vertices []VertexDefinition `json:"vertices" yaml:"vertices"`
	Edges    []EdgeDefinition   `json:"edges" yaml:"edges"`
	// Programs is indexed by EdgeDefinition.Program. Edges sharing a program share an index.
	Programs []*program.Program `json:"programs" yaml:"programs"`
	Metadata map[string]string  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// VertexDefinition represents a serializable vertex
type VertexDefinition struct {
	Kind     string `json:"kind" yaml:"kind"`
	ActionID uint64 `json:"action_id,omitempty" yaml:"action_id,omitempty"`
}

// EdgeDefinition represents a serializable edge. Source and Destination are
// indices into GraphDefinition.Vertices.
type EdgeDefinition struct {
	Source      int `json:"source" yaml:"source"`
	Destination int `json:"destination" yaml:"destination"`
	Program     int `json:"program" yaml:"program"`
}

// Export captures the structure of g. Vertex and edge order is preserved.
func Export(g *Graph) *GraphDefinition {
	def := &GraphDefinition{
		Vertices: make([]VertexDefinition, 0, len(g.vertices)),
		Edges:    make([]EdgeDefinition, 0, len(g.edges)),
	}

	index := make(map[*Vertex]int, len(g.vertices))
	for i, v := range g.vertices {
		index[v] = i
		vd := VertexDefinition{Kind: v.kind.String()}
		if v.kind == KindAction {
			vd.ActionID = v.actionID
		}
		def.Vertices = append(def.Vertices, vd)
	}

	programs := make(map[*program.Program]int)
	for _, e := range g.edges {
		p, ok := programs[e.program]
		if !ok {
			p = len(def.Programs)
			programs[e.program] = p
			def.Programs = append(def.Programs, e.program.Clone())
		}
		def.Edges = append(def.Edges, EdgeDefinition{
			Source:      index[e.source],
			Destination: index[e.destination],
			Program:     p,
		})
	}
	return def
}

// Import builds a new graph from def. Programs referenced by several edges
// are shared again in the resulting graph.
func Import(def *GraphDefinition) (*Graph, error) {
	if err := ValidateGraphDefinition(def); err != nil {
		return nil, err
	}

	g := NewGraph()
	vertices := make([]*Vertex, len(def.Vertices))
	for i, vd := range def.Vertices {
		kind, _ := ParseKind(vd.Kind)
		if kind == KindTeam {
			vertices[i] = g.AddTeam()
			continue
		}
		v, err := g.AddAction(vd.ActionID)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		vertices[i] = v
	}

	programs := make([]*program.Program, len(def.Programs))
	for i, p := range def.Programs {
		programs[i] = p.Clone()
	}
	for i, ed := range def.Edges {
		if _, err := g.AddEdge(vertices[ed.Source], vertices[ed.Destination], programs[ed.Program]); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return g, nil
}

// ValidateGraphDefinition checks indices, kinds and action uniqueness.
func ValidateGraphDefinition(def *GraphDefinition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}

	actions := make(map[uint64]bool)
	kinds := make([]Kind, len(def.Vertices))
	for i, vd := range def.Vertices {
		kind, err := ParseKind(vd.Kind)
		if err != nil {
			return fmt.Errorf("%w: vertex %d: %v", ErrInvalidDefinition, i, err)
		}
		kinds[i] = kind
		if kind == KindAction {
			if actions[vd.ActionID] {
				return fmt.Errorf("%w: vertex %d: duplicate action %d", ErrInvalidDefinition, i, vd.ActionID)
			}
			actions[vd.ActionID] = true
		}
	}

	for i, p := range def.Programs {
		if p == nil {
			return fmt.Errorf("%w: program %d is null", ErrInvalidDefinition, i)
		}
	}

	n := len(def.Vertices)
	for i, ed := range def.Edges {
		if ed.Source < 0 || ed.Source >= n {
			return fmt.Errorf("%w: edge %d: source %d out of range", ErrInvalidDefinition, i, ed.Source)
		}
		if ed.Destination < 0 || ed.Destination >= n {
			return fmt.Errorf("%w: edge %d: destination %d out of range", ErrInvalidDefinition, i, ed.Destination)
		}
		if ed.Program < 0 || ed.Program >= len(def.Programs) {
			return fmt.Errorf("%w: edge %d: program %d out of range", ErrInvalidDefinition, i, ed.Program)
		}
		if kinds[ed.Source] == KindAction {
			return fmt.Errorf("%w: edge %d: %v", ErrInvalidDefinition, i, ErrActionSource)
		}
	}
	return nil
}

// ToJSON converts the definition to a JSON string
func (d *GraphDefinition) ToJSON() (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(data), nil
}

// ToYAML converts the definition to a YAML string
func (d *GraphDefinition) ToYAML() (string, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return string(data), nil
}

// FromJSON parses and validates a GraphDefinition from a JSON string
func FromJSON(jsonStr string) (*GraphDefinition, error) {
	var def GraphDefinition
	if err := json.Unmarshal([]byte(jsonStr), &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal from JSON: %w", err)
	}
	if err := ValidateGraphDefinition(&def); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &def, nil
}

// FromYAML parses and validates a GraphDefinition from a YAML string
func FromYAML(yamlStr string) (*GraphDefinition, error) {
	var def GraphDefinition
	if err := yaml.Unmarshal([]byte(yamlStr), &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal from YAML: %w", err)
	}
	if err := ValidateGraphDefinition(&def); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &def, nil
}

// LoadFromFile reads a definition, choosing the decoder from the extension
// (.yaml/.yml for YAML, anything else for JSON).
func LoadFromFile(filename string) (*GraphDefinition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if isYAMLFile(filename) {
		return FromYAML(string(data))
	}
	return FromJSON(string(data))
}

// SaveToFile writes the definition, choosing the encoder from the extension.
func (d *GraphDefinition) SaveToFile(filename string) error {
	var (
		out string
		err error
	)
	if isYAMLFile(filename) {
		out, err = d.ToYAML()
	} else {
		out, err = d.ToJSON()
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func isYAMLFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
