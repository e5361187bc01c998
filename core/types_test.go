package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogue(t *testing.T) {
	c, err := NewCatalogue([]Definition{
		{ID: "basic", Label: "Basic"},
		{ID: "many", Label: "Many", MaxProgress: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Contains("many"))
	assert.False(t, c.Contains("nope"))
	assert.Equal(t, 1, c.Position("many"))
	assert.Equal(t, -1, c.Position("nope"))

	d, ok := c.Lookup("many")
	require.True(t, ok)
	assert.True(t, d.Tracked())

	_, ok = c.Lookup("nope")
	assert.False(t, ok)
}

func TestNewCatalogueRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
		want string
	}{
		{"empty id", []Definition{{ID: " "}}, "empty id"},
		{"duplicate", []Definition{{ID: "a"}, {ID: "a"}}, "duplicate id"},
		{"negative max", []Definition{{ID: "a", MaxProgress: -1}}, "max_progress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalogue(tt.defs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCatalogueDefinitionsIsCopy(t *testing.T) {
	c := MustCatalogue(Definition{ID: "a", Label: "A"})
	defs := c.Definitions()
	defs[0].Label = "changed"
	d, _ := c.Lookup("a")
	assert.Equal(t, "A", d.Label)
}

func TestDefinitionVisible(t *testing.T) {
	hidden := Definition{ID: "night-owl", Label: "Night", Description: "Late", Hidden: true}
	v := hidden.Visible(false)
	assert.Equal(t, ID(MaskedID), v.ID)
	assert.Equal(t, MaskedLabel, v.Label)
	assert.Equal(t, MaskedDescription, v.Description)
	assert.Equal(t, hidden, hidden.Visible(true))

	hint := Definition{ID: "h", Label: "H", Description: "secret", Hint: true}
	v = hint.Visible(false)
	assert.Equal(t, ID("h"), v.ID)
	assert.Equal(t, "H", v.Label)
	assert.Equal(t, MaskedDescription, v.Description)
}

func TestStateClone(t *testing.T) {
	s := State{
		Unlocked:   map[ID]struct{}{"a": {}},
		Progress:   map[ID]int{"b": 2},
		Items:      map[ID][]string{"c": {"x"}},
		ToastQueue: []ID{"a"},
	}
	cp := s.Clone()
	cp.Unlocked["z"] = struct{}{}
	cp.Progress["b"] = 9
	cp.Items["c"][0] = "y"
	cp.ToastQueue[0] = "q"

	assert.Len(t, s.Unlocked, 1)
	assert.Equal(t, 2, s.Progress["b"])
	assert.Equal(t, "x", s.Items["c"][0])
	assert.Equal(t, ID("a"), s.ToastQueue[0])
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-5, 10))
	assert.Equal(t, 10, Clamp(50, 10))
	assert.Equal(t, 4, Clamp(4, 10))
}
