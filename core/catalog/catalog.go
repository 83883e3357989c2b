package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/vaxcal/core/factory"
	"github.com/kilianp07/vaxcal/core/model"
)

// ErrUnknownScheme is returned when a scheme id has no registered source.
var ErrUnknownScheme = errors.New("unknown vaccination scheme")

// Scheme identifies a selectable vaccination scheme.
type Scheme struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Default bool   `json:"default" yaml:"default"`
}

// Source builds the definitions of one scheme. Every call returns fresh
// definitions with ids taken from ids.
type Source interface {
	Vaccines(ids *model.IDSource) []*model.Vaccine
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ids *model.IDSource) []*model.Vaccine

func (f SourceFunc) Vaccines(ids *model.IDSource) []*model.Vaccine { return f(ids) }

// Scheme ids of the built-in sources.
const (
	SchemeFree       = "free"
	SchemeHexavalent = "hexavalent"
	SchemeDemo       = "demo"
	SchemeFile       = "file"
)

var (
	registry = factory.NewRegistry[Source]()

	customMu sync.RWMutex
	custom   []Scheme
)

func init() {
	_ = registry.Register(SchemeFree, func(map[string]any) (Source, error) {
		return SourceFunc(Free), nil
	})
	_ = registry.Register(SchemeHexavalent, func(map[string]any) (Source, error) {
		return SourceFunc(Hexavalent), nil
	})
	_ = registry.Register(SchemeDemo, func(map[string]any) (Source, error) {
		return SourceFunc(Demo), nil
	})
	_ = registry.Register(SchemeFile, newFileSource)
}

// Register adds a custom source factory under name.
func Register(name string, f factory.Factory[Source]) error {
	return registry.Register(name, f)
}

// NewSource instantiates the source described by cfg.
func NewSource(cfg factory.ModuleConfig) (Source, error) {
	if !registry.Has(cfg.Type) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, cfg.Type)
	}
	return registry.Create(cfg)
}

// RegisterFile makes a loaded catalog selectable under its scheme id.
func RegisterFile(f *File) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Scheme.ID == "" {
		return fmt.Errorf("%w: scheme id is required", ErrInvalidCatalog)
	}
	if err := registry.Register(f.Scheme.ID, func(map[string]any) (Source, error) { return f, nil }); err != nil {
		return err
	}
	s := f.Scheme
	if s.Name == "" {
		s.Name = s.ID
	}
	customMu.Lock()
	custom = append(custom, s)
	customMu.Unlock()
	return nil
}

// Schemes lists the built-in schemes in display order followed by the
// registered catalog files. The free schedule is the default unless a file
// claims it.
func Schemes() []Scheme {
	customMu.RLock()
	defer customMu.RUnlock()
	out := []Scheme{
		{ID: SchemeFree, Name: "Government-funded schedule", Default: true},
		{ID: SchemeHexavalent, Name: "6-in-1 combination schedule"},
		{ID: SchemeDemo, Name: "Demo schedule"},
	}
	for _, s := range custom {
		if s.Default {
			out[0].Default = false
		}
		out = append(out, s)
	}
	return out
}

// DefaultScheme returns the id of the default scheme.
func DefaultScheme() string {
	id := SchemeFree
	for _, s := range Schemes() {
		if s.Default {
			id = s.ID
		}
	}
	return id
}

// Registered returns every registered source name, including custom ones.
func Registered() []string { return registry.Names() }
