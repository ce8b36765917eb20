// Package assets stages the portal's template files: a fixed manifest of
// remote files is fetched into a staging directory, validated by content
// shape, and only then promoted for injection and deployment.
package assets

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var manifestRawData []byte

// Entry is one portal file the backend serves.
type Entry struct {
	Name       string `yaml:"name"`
	Required   bool   `yaml:"required"`
	EntryPoint bool   `yaml:"entrypoint,omitempty"`
}

// manifestFile is the top-level structure of the embedded YAML.
type manifestFile struct {
	Entries []Entry `yaml:"entries"`
}

// Manifest provides lazy-loaded access to the embedded portal file list.
type Manifest struct {
	once    sync.Once
	entries []Entry
	err     error
}

// NewManifest creates a Manifest that parses the embedded YAML on first access.
func NewManifest() *Manifest {
	return &Manifest{}
}

// Entries returns a copy of all manifest entries.
func (m *Manifest) Entries() ([]Entry, error) {
	m.once.Do(m.load)
	if m.err != nil {
		return nil, m.err
	}
	cp := make([]Entry, len(m.entries))
	copy(cp, m.entries)
	return cp, nil
}

// EntryPoint returns the name of the portal's entry-point file.
func (m *Manifest) EntryPoint() (string, error) {
	entries, err := m.Entries()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.EntryPoint {
			return e.Name, nil
		}
	}
	return "", fmt.Errorf("manifest declares no entry point")
}

// load parses the embedded YAML manifest data.
func (m *Manifest) load() {
	var f manifestFile
	if err := yaml.Unmarshal(manifestRawData, &f); err != nil {
		m.err = fmt.Errorf("manifest: parse yaml: %w", err)
		return
	}
	m.entries = f.Entries
}
