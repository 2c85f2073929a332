// Package loader reads graph documents: one program version with its class
// metadata and the dependence graph of every method, as delivered by the
// graph-construction front end.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ritzau/pdg-diff/pkg/edit"
)

// ErrInvalidDocument wraps decoding and validation failures
var ErrInvalidDocument = errors.New("invalid graph document")

// validate is a singleton validator instance
var validate = validator.New()

// Program is one version of a class: its metadata and the graphs of its methods
type Program struct {
	Class     string   `json:"class" yaml:"class" validate:"required"`
	Modifiers []string `json:"modifiers" yaml:"modifiers"`
	Line      int      `json:"line" yaml:"line" validate:"gte=0"`

	Fields  []FieldDoc  `json:"fields" yaml:"fields" validate:"dive"`
	Methods []MethodDoc `json:"methods" yaml:"methods" validate:"dive"`

	// Source is the text of the file the graphs were built from
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	// SourcePath names that file, relative to the document, when Source is empty
	SourcePath string `json:"source_path,omitempty" yaml:"source_path,omitempty"`

	lines []string
}

// FieldDoc is a field declaration
type FieldDoc struct {
	Name      string   `json:"name" yaml:"name" validate:"required"`
	Type      string   `json:"type" yaml:"type" validate:"required"`
	Modifiers []string `json:"modifiers" yaml:"modifiers"`
	Signature string   `json:"signature,omitempty" yaml:"signature,omitempty"`
	Line      int      `json:"line" yaml:"line" validate:"gte=0"`
}

// MethodDoc is a method declaration and its dependence graph
type MethodDoc struct {
	Name        string       `json:"name" yaml:"name" validate:"required"`
	Signature   string       `json:"signature,omitempty" yaml:"signature,omitempty"`
	Modifiers   []string     `json:"modifiers" yaml:"modifiers"`
	ReturnType  string       `json:"return_type" yaml:"return_type"`
	Parameters  []edit.Token `json:"parameters" yaml:"parameters" validate:"dive"`
	Annotations []edit.Token `json:"annotations" yaml:"annotations" validate:"dive"`
	Throws      []string     `json:"throws" yaml:"throws"`
	StartLine   int          `json:"start_line" yaml:"start_line" validate:"gte=0"`
	EndLine     int          `json:"end_line" yaml:"end_line" validate:"gte=0"`

	// Start is the id of the entry node
	Start *int64    `json:"start" yaml:"start"`
	Nodes []NodeDoc `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges []EdgeDoc `json:"edges" yaml:"edges" validate:"dive"`
}

// NodeDoc is a graph node. Category and attribute are checked when the graph
// is built so that one bad node does not reject the whole document.
type NodeDoc struct {
	ID        int64  `json:"id" yaml:"id" validate:"gte=0"`
	Category  string `json:"category" yaml:"category" validate:"required"`
	Attribute string `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Label     string `json:"label" yaml:"label"`
	Line      int    `json:"line" yaml:"line"`
	Region    int    `json:"region,omitempty" yaml:"region,omitempty"`
}

// EdgeDoc is a labeled dependency
type EdgeDoc struct {
	From int64  `json:"from" yaml:"from"`
	To   int64  `json:"to" yaml:"to"`
	Type string `json:"type" yaml:"type" validate:"required"`
}

// Parse decodes a JSON or YAML document and validates it
func Parse(data []byte) (*Program, error) {
	var p Program
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w: %w", ErrInvalidDocument, err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, formatValidationError(err))
	}
	p.setSource(p.Source)
	return &p, nil
}

func (p *Program) setSource(text string) {
	p.Source = text
	p.lines = nil
	if text != "" {
		p.lines = strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	}
}

// SnippetFor returns the source text of a 1-based line, or "" when unknown
func (p *Program) SnippetFor(line int) string {
	if line < 1 || line > len(p.lines) {
		return ""
	}
	return p.lines[line-1]
}

// Snippets adapts SnippetFor for script generation
func (p *Program) Snippets() edit.Snippets {
	return p.SnippetFor
}

// ClassInfo returns the class metadata used for field and modifier diffs
func (p *Program) ClassInfo() edit.Class {
	c := edit.Class{
		Name:      p.Class,
		Modifiers: p.Modifiers,
		Line:      p.Line,
	}
	if p.Line > 0 {
		c.Declaration = strings.TrimSpace(p.SnippetFor(p.Line))
	}
	for _, f := range p.Fields {
		decl := f.Signature
		if decl == "" && f.Line > 0 {
			decl = strings.TrimSpace(p.SnippetFor(f.Line))
		}
		c.Fields = append(c.Fields, edit.Field{
			Name:        f.Name,
			Type:        f.Type,
			Modifiers:   f.Modifiers,
			Line:        f.Line,
			Declaration: decl,
		})
	}
	return c
}

// Declaration returns the signature of the method. The declaration is taken
// to occupy StartLine only.
func (m MethodDoc) Declaration() edit.Signature {
	return edit.Signature{
		Name:        m.Name,
		ReturnType:  m.ReturnType,
		Modifiers:   m.Modifiers,
		Parameters:  m.Parameters,
		Annotations: m.Annotations,
		Throws:      m.Throws,
		Line:        m.StartLine,
		EndLine:     m.StartLine,
	}
}

// formatValidationError flattens the first validation failure into a readable message
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}
