package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ID uniquely identifies an achievement within a catalogue.
type ID string

// Masked presentation values for hidden achievements that are still locked.
const (
	MaskedID          = "CLASSIFIED"
	MaskedLabel       = "???"
	MaskedDescription = "Condition unknown. Keep exploring."
)

// Definition is the static, caller-supplied description of an achievement.
// A positive MaxProgress marks the achievement as progress-tracked; zero means
// it can only be unlocked manually unless a runtime max is installed.
type Definition struct {
	ID          ID     `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`
	Hidden      bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Hint        bool   `json:"hint,omitempty" yaml:"hint,omitempty"`
	MaxProgress int    `json:"max_progress,omitempty" yaml:"max_progress,omitempty"`
}

// Tracked reports whether the definition carries a static max progress.
// A zero MaxProgress is untracked, never an immediate unlock.
func (d Definition) Tracked() bool { return d.MaxProgress > 0 }

// Visible returns the definition as it should be shown to a player.
// Hidden achievements hide their identity until unlocked, hint achievements
// hide only their description.
func (d Definition) Visible(unlocked bool) Definition {
	if unlocked {
		return d
	}
	out := d
	switch {
	case d.Hidden:
		out.ID = MaskedID
		out.Label = MaskedLabel
		out.Description = MaskedDescription
	case d.Hint:
		out.Description = MaskedDescription
	}
	return out
}

// Catalogue is an ordered, immutable list of definitions indexed by id.
type Catalogue struct {
	defs  []Definition
	index map[ID]int
}

// NewCatalogue validates defs and builds a catalogue preserving their order.
func NewCatalogue(defs []Definition) (Catalogue, error) {
	c := Catalogue{
		defs:  make([]Definition, 0, len(defs)),
		index: make(map[ID]int, len(defs)),
	}
	var errs []string
	for i, d := range defs {
		if strings.TrimSpace(string(d.ID)) == "" {
			errs = append(errs, fmt.Sprintf("definitions[%d]: empty id", i))
			continue
		}
		if _, dup := c.index[d.ID]; dup {
			errs = append(errs, fmt.Sprintf("definitions[%d]: duplicate id %q", i, d.ID))
			continue
		}
		if d.MaxProgress < 0 {
			errs = append(errs, fmt.Sprintf("definitions[%d]: max_progress must be >= 0", i))
			continue
		}
		c.index[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	if len(errs) > 0 {
		return Catalogue{}, errors.New(strings.Join(errs, "; "))
	}
	return c, nil
}

// MustCatalogue is like NewCatalogue but panics on invalid input.
func MustCatalogue(defs ...Definition) Catalogue {
	c, err := NewCatalogue(defs)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of definitions.
func (c Catalogue) Len() int { return len(c.defs) }

// Contains reports whether id is part of the catalogue.
func (c Catalogue) Contains(id ID) bool {
	_, ok := c.index[id]
	return ok
}

// Lookup returns the definition for id.
func (c Catalogue) Lookup(id ID) (Definition, bool) {
	i, ok := c.index[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Definitions returns a copy of all definitions in declaration order.
func (c Catalogue) Definitions() []Definition {
	return append([]Definition(nil), c.defs...)
}

// Position returns the declaration index of id, or -1.
func (c Catalogue) Position(id ID) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// State is an immutable snapshot of the engine state.
// Producers must hand out deep copies so holders can never observe later mutation.
type State struct {
	Unlocked   map[ID]struct{} `json:"unlocked"`
	Progress   map[ID]int      `json:"progress"`
	Items      map[ID][]string `json:"items"`
	ToastQueue []ID            `json:"toast_queue"`
}

// Clone returns a deep copy of the state to uphold immutability.
func (s State) Clone() State {
	cp := State{
		Unlocked:   make(map[ID]struct{}, len(s.Unlocked)),
		Progress:   make(map[ID]int, len(s.Progress)),
		Items:      make(map[ID][]string, len(s.Items)),
		ToastQueue: append([]ID{}, s.ToastQueue...),
	}
	for k := range s.Unlocked {
		cp.Unlocked[k] = struct{}{}
	}
	for k, v := range s.Progress {
		cp.Progress[k] = v
	}
	for k, v := range s.Items {
		cp.Items[k] = append([]string{}, v...)
	}
	return cp
}

// UnlockedIDs returns the unlocked ids sorted for stable output.
func (s State) UnlockedIDs() []ID {
	out := make([]ID, 0, len(s.Unlocked))
	for id := range s.Unlocked {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clamp bounds v to [0, max].
func Clamp(v, max int) int {
	if v > max {
		v = max
	}
	if v < 0 {
		return 0
	}
	return v
}
