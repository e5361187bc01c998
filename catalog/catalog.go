// Package catalog loads achievement definitions from YAML or JSON files.
package catalog

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"achievekit/core"
)

// File is the on-disk shape of a catalogue.
type File struct {
	Achievements []core.Definition `yaml:"achievements" json:"achievements"`
}

// Load reads and validates the catalogue at path. JSON files parse as YAML.
func Load(path string) (core.Catalogue, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return core.Catalogue{}, fmt.Errorf("read catalogue %s: %w", path, err)
	}
	cat, err := Parse(b)
	if err != nil {
		return core.Catalogue{}, fmt.Errorf("catalogue %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a catalogue document, rejecting unknown fields.
func Parse(b []byte) (core.Catalogue, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return core.Catalogue{}, fmt.Errorf("decode: %w", err)
	}
	if len(f.Achievements) == 0 {
		return core.Catalogue{}, fmt.Errorf("no achievements defined")
	}
	return core.NewCatalogue(f.Achievements)
}

// Default returns the demo catalogue used when no file is configured.
func Default() core.Catalogue {
	return core.MustCatalogue(
		core.Definition{ID: "first-visit", Label: "First Contact", Description: "Initialized session for the first time."},
		core.Definition{ID: "returning", Label: "Persistent Agent", Description: "Returned for a subsequent session."},
		core.Definition{ID: "night-owl", Label: "Night Protocol", Description: "Operating between 00:00 and 05:00.", Hidden: true},
		core.Definition{ID: "click-frenzy", Label: "Input Overflow", Description: "Registered 50 consecutive inputs.", MaxProgress: 50},
		core.Definition{ID: "explorer", Label: "Full Traversal", Description: "Accessed all system modules.", MaxProgress: 3},
		core.Definition{ID: "scanner", Label: "Network Scanner", Description: "Scanned 2 unique network nodes.", MaxProgress: 2},
		// max is installed at runtime once the node count is known
		core.Definition{ID: "full-coverage", Label: "Full Coverage", Description: "Scanned every node in the network."},
	)
}
