package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ritzau/pdg-diff/pkg/logging"
)

// Source delivers one program version.
// Implementations should respect the context for cancellation.
type Source interface {
	// Name identifies the source in logs and reports
	Name() string

	// Load reads and validates the document
	Load(ctx context.Context) (*Program, error)
}

// FileSource reads a graph document from disk
type FileSource struct {
	Path string
}

// NewFileSource creates a source for the document at path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string {
	return s.Path
}

// Load parses the document. When it names its source file instead of
// embedding the text, the file is read relative to the document.
func (s *FileSource) Load(ctx context.Context) (*Program, error) {
	logger := logging.New("loader.file")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	if p.Source == "" && p.SourcePath != "" {
		path := p.SourcePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(s.Path), path)
		}
		text, err := os.ReadFile(path)
		if err != nil {
			// Snippets fall back to node labels
			logger.Warn("Source file not readable", "document", s.Path, "source", path, "error", err)
		} else {
			p.setSource(string(text))
		}
	}

	logger.Debug("Loaded document", "path", s.Path, "class", p.Class, "methods", len(p.Methods))
	return p, nil
}

// BytesSource serves a document already held in memory, e.g. an HTTP request body
type BytesSource struct {
	Label string
	Data  []byte
}

func (s *BytesSource) Name() string {
	return s.Label
}

func (s *BytesSource) Load(ctx context.Context) (*Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := Parse(s.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Label, err)
	}
	return p, nil
}
