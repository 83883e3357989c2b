package factory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct{ Path string }

type sampleConf struct {
	Path  string `json:"path"`
	Limit int    `json:"limit"`
}

func TestRegistryCreate(t *testing.T) {
	reg := NewRegistry[*sample]()
	require.NoError(t, reg.Register("file", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{Path: c.Path}, nil
	}))
	inst, err := reg.Create(ModuleConfig{Type: "file", Conf: map[string]any{"path": "catalog.yaml"}})
	require.NoError(t, err)
	assert.Equal(t, "catalog.yaml", inst.Path)
	assert.True(t, reg.Has("file"))
	assert.False(t, reg.Has("other"))
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("x", func(map[string]any) (int, error) { return 1, nil }))
	assert.Error(t, reg.Register("x", func(map[string]any) (int, error) { return 2, nil }), "duplicate")
	assert.Error(t, reg.Register("y", nil), "nil factory")
	_, err := reg.Create(ModuleConfig{Type: "y"})
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry[int]()
	for _, n := range []string{"free", "demo", "hexavalent"} {
		require.NoError(t, reg.Register(n, func(map[string]any) (int, error) { return 0, nil }))
	}
	assert.Equal(t, []string{"demo", "free", "hexavalent"}, reg.Names())
}

func TestDecodeWeakTypes(t *testing.T) {
	var c sampleConf
	require.NoError(t, Decode(map[string]any{"limit": "12", "path": "p"}, &c))
	assert.Equal(t, 12, c.Limit)
}
