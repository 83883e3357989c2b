package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vaxcal/core/factory"
	"github.com/kilianp07/vaxcal/core/model"
)

func byName(t *testing.T, vs []*model.Vaccine, name string) *model.Vaccine {
	t.Helper()
	for _, v := range vs {
		if v.Name() == name {
			return v
		}
	}
	t.Fatalf("vaccine %q not found", name)
	return nil
}

func TestFreeSchedule(t *testing.T) {
	vs := Free(model.NewIDSource(0))
	checks := []struct {
		name string
		want []int
	}{
		{"BCG", []int{0}},
		{"HBV", []int{0, 42, 180}},
		{"DTPw", []int{42, 102, 162, 480}},
		{"DTaP", []int{2190}},
		{"dTpa", []int{5110}},
		{"Td", []int{6935}},
	}
	for _, c := range checks {
		v := byName(t, vs, c.name)
		assert.Equal(t, c.want, v.Offsets(), c.name)
		assert.True(t, v.Selected(), c.name)
	}
	assert.False(t, byName(t, vs, "RV").Selected(), "rotavirus is optional")
	assert.Equal(t, "DTPw booster", byName(t, vs, "DTPw").DoseName(3))

	seen := map[int]bool{}
	for _, v := range vs {
		assert.False(t, seen[v.ID()], "duplicate id %d", v.ID())
		seen[v.ID()] = true
	}
}

func TestHexavalentReplacesSeparateShots(t *testing.T) {
	vs := Hexavalent(model.NewIDSource(0))
	hexa := byName(t, vs, "DTaP-IPV-Hib-HBV")
	parts := []string{"HBV series", "IPV", "Hib", "DTaP"}
	require.True(t, hexa.Selected())
	for _, n := range parts {
		assert.False(t, byName(t, vs, n).Selected(), n)
	}

	require.NoError(t, hexa.SetSelected(false))
	for _, n := range parts {
		assert.True(t, byName(t, vs, n).Selected(), n)
	}

	_ = byName(t, vs, "IPV").SetSelected(false)
	require.NoError(t, hexa.SetSelected(true))
	require.NoError(t, hexa.SetSelected(false))
	assert.False(t, byName(t, vs, "IPV").Selected(), "only previously selected parts come back")
	assert.True(t, byName(t, vs, "Hib").Selected())
}

func TestReplacesIgnoresRepeatedSelection(t *testing.T) {
	ids := model.NewIDSource(1)
	combo := model.New(ids, "Combo")
	a := model.New(ids, "A", model.WithSelected(true))
	b := model.New(ids, "B", model.WithSelected(true))
	Replaces(combo, a, b)

	require.NoError(t, combo.SetSelected(true))
	require.NoError(t, combo.SetSelected(true))
	assert.False(t, a.Selected())
	assert.False(t, b.Selected())

	require.NoError(t, combo.SetSelected(false))
	require.NoError(t, combo.SetSelected(false))
	assert.True(t, a.Selected(), "parts come back after a repeated select")
	assert.True(t, b.Selected())
}

func TestHexavalentDelaysMenBWithPCV(t *testing.T) {
	vs := Hexavalent(model.NewIDSource(0))
	menb := byName(t, vs, "MenB")
	pcv := byName(t, vs, "PCV")
	require.True(t, pcv.Selected())

	require.NoError(t, menb.SetSelected(true))
	assert.Equal(t, []int{70, 126, 409}, menb.Offsets())

	require.NoError(t, pcv.SetSelected(false))
	assert.Equal(t, []int{56, 112, 395}, menb.Offsets())

	require.NoError(t, pcv.SetSelected(true))
	require.NoError(t, pcv.SetSelected(true))
	assert.Equal(t, []int{70, 126, 409}, menb.Offsets(), "repeated toggles do not stack")
}

func TestHexavalentMMRFollowsDateOfBirth(t *testing.T) {
	vs := Hexavalent(model.NewIDSource(0))
	mmr := byName(t, vs, "MMR")

	mmr.ApplyFormSubmitted(model.FormValues{model.FormDateOfBirth: "2018-06-01"})
	assert.Equal(t, []int{395, 3650}, mmr.Offsets())

	mmr.ApplyFormSubmitted(model.FormValues{model.FormDateOfBirth: "2020-06-01"})
	assert.Equal(t, []int{395, 2190}, mmr.Offsets())

	mmr.ApplyFormSubmitted(model.FormValues{})
	assert.Equal(t, []int{395, 2190}, mmr.Offsets(), "missing date leaves offsets alone")
}

func TestDemo(t *testing.T) {
	vs := Demo(model.NewIDSource(0))
	require.Len(t, vs, 5)
	assert.Equal(t, []int{0, 3, 9, 17, 25}, vs[1].Offsets())
	assert.True(t, vs[0].Selected())
	assert.False(t, vs[1].Selected())
	assert.Equal(t, "Demo C", vs[2].Name())
}

func TestNewSource(t *testing.T) {
	for _, s := range Schemes() {
		src, err := NewSource(factory.ModuleConfig{Type: s.ID})
		require.NoError(t, err, s.ID)
		assert.NotEmpty(t, src.Vaccines(model.NewIDSource(0)), s.ID)
	}
	_, err := NewSource(factory.ModuleConfig{Type: "nope"})
	assert.True(t, errors.Is(err, ErrUnknownScheme))

	_, err = NewSource(factory.ModuleConfig{Type: SchemeFile})
	assert.True(t, errors.Is(err, ErrInvalidCatalog), "file source without path")

	src, err := NewSource(factory.ModuleConfig{Type: SchemeFile, Conf: map[string]any{"path": "testdata/custom.yaml"}})
	require.NoError(t, err)
	assert.Len(t, src.Vaccines(model.NewIDSource(0)), 4)
	assert.Contains(t, Registered(), SchemeFile)
}

func TestSchemesDefault(t *testing.T) {
	defaults := 0
	for _, s := range Schemes() {
		if s.Default {
			defaults++
			assert.Equal(t, SchemeFree, s.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestLoadFileWiresDependencies(t *testing.T) {
	f, err := LoadFile("testdata/custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, "custom", f.Scheme.ID)

	vs := f.Vaccines(model.NewIDSource(0))
	hbv, combo := byName(t, vs, "HBV"), byName(t, vs, "Combo")
	menb, pcv := byName(t, vs, "MenB"), byName(t, vs, "PCV")

	assert.True(t, hbv.Selected())
	assert.False(t, combo.Selected())
	assert.Equal(t, "Combo 2", combo.DoseName(1))
	assert.Len(t, pcv.DisplayBoxes(), 1)

	require.NoError(t, combo.SetSelected(true))
	assert.False(t, hbv.Selected())

	require.NoError(t, pcv.SetSelected(true))
	assert.Equal(t, []int{67, 127}, menb.Offsets())
}

func TestFileBuildsDefinitions(t *testing.T) {
	f := &File{
		Scheme: Scheme{ID: "inline"},
		Definitions: []Definition{
			{Name: "HBV", Offsets: []int{0, 30}, Selected: true},
			{Name: "Combo", Offsets: []int{0}, Replaces: []string{"HBV"}},
		},
	}
	require.NoError(t, f.Validate())

	vs := f.Vaccines(model.NewIDSource(1))
	require.Len(t, vs, 2)
	assert.Equal(t, 1, vs[0].ID())
	assert.Equal(t, []int{0, 30}, vs[0].Offsets())
	require.NoError(t, vs[1].SetSelected(true))
	assert.False(t, vs[0].Selected())
}

func TestDecodeValidation(t *testing.T) {
	checks := []struct {
		name string
		body string
		is   error
	}{
		{"empty", `{"vaccines": []}`, ErrInvalidCatalog},
		{"variants", `{"vaccines": [{"name": "a", "offsets": [1, 2], "variants": ["x"]}]}`, model.ErrVariantLength},
		{"duplicate", `{"vaccines": [{"name": "a"}, {"name": "a"}]}`, ErrInvalidCatalog},
		{"negative", `{"vaccines": [{"name": "a", "offsets": [-1]}]}`, ErrInvalidCatalog},
		{"replaces", `{"vaccines": [{"name": "a", "replaces": ["b"]}]}`, ErrInvalidCatalog},
		{"delays", `{"vaccines": [{"name": "a", "delays": [{"with": "b", "days": 3}]}]}`, ErrInvalidCatalog},
	}
	for _, c := range checks {
		_, err := Decode(strings.NewReader(c.body), "json")
		assert.True(t, errors.Is(err, c.is), c.name)
	}

	f, err := Decode(strings.NewReader("vaccines:\n  - name: a\n    offsets: [3]\n"), "yaml")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, f.Definitions[0].Offsets)

	_, err = Decode(strings.NewReader(""), "toml")
	assert.Error(t, err)
	_, err = LoadFile("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestProviderChangeScheme(t *testing.T) {
	p, err := NewProvider(SchemeDemo)
	require.NoError(t, err)
	assert.Equal(t, SchemeDemo, p.Scheme())
	assert.Equal(t, []int{1, 3, 5}, p.Selected())

	v, ok := p.Vaccine(2)
	require.True(t, ok)
	assert.Equal(t, "Demo B", v.Name())

	require.NoError(t, p.ChangeScheme(SchemeFree))
	assert.Equal(t, SchemeFree, p.Scheme())
	assert.Equal(t, 6, p.Vaccines()[0].ID(), "ids continue across schemes")
	_, ok = p.Vaccine(2)
	assert.False(t, ok)

	assert.True(t, errors.Is(p.ChangeScheme("nope"), ErrUnknownScheme))
	assert.Equal(t, SchemeFree, p.Scheme(), "failed change keeps the scheme")

	_, err = NewProvider("nope")
	assert.Error(t, err)

	custom := NewProviderFrom("custom", SourceFunc(Demo), nil)
	assert.Len(t, custom.Vaccines(), 5)
}

func TestRegisterFile(t *testing.T) {
	f, err := LoadFile("testdata/custom.yaml")
	require.NoError(t, err)
	require.NoError(t, RegisterFile(f))
	assert.ErrorIs(t, RegisterFile(f), factory.ErrDuplicate)

	var found bool
	for _, s := range Schemes() {
		if s.ID == "custom" {
			found = true
			assert.Equal(t, "Clinic schedule", s.Name)
		}
	}
	assert.True(t, found)
	assert.Equal(t, SchemeFree, DefaultScheme())

	p, err := NewProvider("custom")
	require.NoError(t, err)
	assert.Len(t, p.Vaccines(), len(f.Definitions))

	f.Scheme.ID = ""
	assert.ErrorIs(t, RegisterFile(f), ErrInvalidCatalog)
}
