// Package plugin implements the importer/exporter contract: plugin
// interfaces, a registry with format auto-detection, directory discovery,
// and format-dispatch. Format-specific plugin bodies (parsing an actual
// ChatGPT export, writing actual Markdown, etc.) are left to callers —
// this package only defines and wires the contract.
package plugin

import (
	"fmt"
	"io"
)

// ImporterPlugin converts an external format into conversation data. The
// actual return type is left to callers of this package (it would be
// *conversation.ConversationTree in the full system); this package only
// standardizes format identification and dispatch.
type ImporterPlugin interface {
	Name() string
	Extensions() []string
	Detect(sample []byte) bool
	Import(r io.Reader) (interface{}, error)
}

// ExporterPlugin converts conversation data into an external format.
type ExporterPlugin interface {
	Name() string
	Extensions() []string
	Export(w io.Writer, data interface{}) error
}

// Registry holds a set of registered importer/exporter plugins. It is an
// explicit value type rather than a package-level singleton — generalized
// from the single global var plugins []Plugin pattern in
// other_examples/44f895fd_chirino-memory-service, per REDESIGN FLAGS'
// guidance that a library should not force one global registry per
// process.
type Registry struct {
	importers  []ImporterPlugin
	exporters  []ExporterPlugin
	discovered map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterImporter adds p to the registry's import list, in registration
// order — the order auto-detection probes plugins.
func (r *Registry) RegisterImporter(p ImporterPlugin) {
	r.importers = append(r.importers, p)
}

// RegisterExporter adds p to the registry's export list.
func (r *Registry) RegisterExporter(p ExporterPlugin) {
	r.exporters = append(r.exporters, p)
}

// ImporterNames returns the names of every registered importer, in
// registration order.
func (r *Registry) ImporterNames() []string {
	names := make([]string, len(r.importers))
	for i, p := range r.importers {
		names[i] = p.Name()
	}
	return names
}

// ExporterNames returns the names of every registered exporter, in
// registration order.
func (r *Registry) ExporterNames() []string {
	names := make([]string, len(r.exporters))
	for i, p := range r.exporters {
		names[i] = p.Name()
	}
	return names
}

// ErrUnknownFormat is returned when no registered plugin matches a
// requested or auto-detected format name.
type ErrUnknownFormat struct {
	Format string
	Known  []string
}

func (e ErrUnknownFormat) Error() string {
	return fmt.Sprintf("unknown format %q; known formats: %v", e.Format, e.Known)
}

// SelectImporter returns the importer registered under name, or
// ErrUnknownFormat listing the known names.
func (r *Registry) SelectImporter(name string) (ImporterPlugin, error) {
	for _, p := range r.importers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, ErrUnknownFormat{Format: name, Known: r.ImporterNames()}
}

// SelectExporter returns the exporter registered under name, or
// ErrUnknownFormat listing the known names.
func (r *Registry) SelectExporter(name string) (ExporterPlugin, error) {
	for _, p := range r.exporters {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, ErrUnknownFormat{Format: name, Known: r.ExporterNames()}
}

// DetectImporter probes every registered importer's Detect against sample
// in registration order and returns the first match.
func (r *Registry) DetectImporter(sample []byte) (ImporterPlugin, error) {
	for _, p := range r.importers {
		if p.Detect(sample) {
			return p, nil
		}
	}
	return nil, ErrUnknownFormat{Format: "<auto-detected>", Known: r.ImporterNames()}
}

// Import reads sample followed by rest through the named (or, if name is
// "", the auto-detected from sample) importer.
func (r *Registry) Import(name string, sample []byte, rest io.Reader) (interface{}, error) {
	var p ImporterPlugin
	var err error
	if name != "" {
		p, err = r.SelectImporter(name)
	} else {
		p, err = r.DetectImporter(sample)
	}
	if err != nil {
		return nil, err
	}
	return p.Import(io.MultiReader(newByteReader(sample), rest))
}

func newByteReader(b []byte) io.Reader { return &byteReader{data: b} }

type byteReader struct {
	data []byte
	pos  int
}

func (br *byteReader) Read(p []byte) (int, error) {
	if br.pos >= len(br.data) {
		return 0, io.EOF
	}
	n := copy(p, br.data[br.pos:])
	br.pos += n
	return n, nil
}

// Export writes data through the named exporter.
func (r *Registry) Export(name string, w io.Writer, data interface{}) error {
	p, err := r.SelectExporter(name)
	if err != nil {
		return err
	}
	return p.Export(w, data)
}
