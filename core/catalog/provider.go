package catalog

import (
	"github.com/kilianp07/vaxcal/core/factory"
	"github.com/kilianp07/vaxcal/core/model"
)

// Provider serves the definitions of the active scheme. The returned
// definitions are live: selection toggles and hooks mutate them in place.
// A Provider is owned by a single session and is not safe for concurrent use.
type Provider struct {
	ids      *model.IDSource
	scheme   string
	vaccines []*model.Vaccine
}

// NewProvider builds a provider for the registered scheme. Ids start at 1 so
// the zero id never names a vaccine.
func NewProvider(scheme string) (*Provider, error) {
	p := &Provider{ids: model.NewIDSource(1)}
	if err := p.ChangeScheme(scheme); err != nil {
		return nil, err
	}
	return p, nil
}

// NewProviderFrom builds a provider around an explicit source. A nil ids
// starts at 1.
func NewProviderFrom(scheme string, src Source, ids *model.IDSource) *Provider {
	if ids == nil {
		ids = model.NewIDSource(1)
	}
	return &Provider{ids: ids, scheme: scheme, vaccines: src.Vaccines(ids)}
}

// ChangeScheme replaces every definition with a fresh set from the named
// source. Ids keep increasing across changes.
func (p *Provider) ChangeScheme(scheme string) error {
	src, err := NewSource(factory.ModuleConfig{Type: scheme})
	if err != nil {
		return err
	}
	p.Use(scheme, src)
	return nil
}

// Use switches to src under the given scheme id.
func (p *Provider) Use(scheme string, src Source) {
	p.scheme = scheme
	p.vaccines = src.Vaccines(p.ids)
}

func (p *Provider) Scheme() string { return p.scheme }

// Vaccines returns the live definitions in catalog order.
func (p *Provider) Vaccines() []*model.Vaccine { return p.vaccines }

// Vaccine looks up a definition by id.
func (p *Provider) Vaccine(id int) (*model.Vaccine, bool) {
	for _, v := range p.vaccines {
		if v.ID() == id {
			return v, true
		}
	}
	return nil, false
}

// Selected returns the ids of the selected definitions.
func (p *Provider) Selected() []int {
	var ids []int
	for _, v := range p.vaccines {
		if v.Selected() {
			ids = append(ids, v.ID())
		}
	}
	return ids
}
