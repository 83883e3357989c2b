package model

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrVariantLength is returned when variant names do not pair up with offsets.
	ErrVariantLength = errors.New("variant names do not match offsets")
	// ErrSelectionCycle is returned when a selection hook chain re-enters a
	// vaccine whose hooks are already running.
	ErrSelectionCycle = errors.New("selection hook cycle")
)

// SelectionHook reacts to a selection change. Hooks typically close over
// other vaccines and rewrite their offsets or selection.
type SelectionHook func()

// FormHook reacts to a submitted form.
type FormHook func(FormContext)

// DisplayBox is one cell of the recommendation table shown next to a vaccine.
// Filled cells mark the recommended window for a dose.
type DisplayBox struct {
	Filled bool   `json:"filled" yaml:"filled"`
	Span   int    `json:"span" yaml:"span"`
	Color  string `json:"color" yaml:"color"`
}

// Vaccine is a catalog entry. Offsets are days from the anchor date, one per
// dose. Two vaccines are the same iff their ids are equal.
type Vaccine struct {
	id       int
	name     string
	disease  string
	offsets  []int
	variants []string
	selected bool
	boxes    []DisplayBox

	onSelection []SelectionHook
	onForm      []FormHook
	firing      bool
}

// Option configures a Vaccine at construction.
type Option func(*Vaccine)

func WithDisease(d string) Option { return func(v *Vaccine) { v.disease = d } }

func WithOffsets(offsets ...int) Option {
	return func(v *Vaccine) { v.offsets = slices.Clone(offsets) }
}

// WithVariantNames sets per-dose display names, paired with offsets by index.
func WithVariantNames(names ...string) Option {
	return func(v *Vaccine) { v.variants = slices.Clone(names) }
}

func WithSelected(selected bool) Option { return func(v *Vaccine) { v.selected = selected } }

func WithDisplayBoxes(boxes ...DisplayBox) Option {
	return func(v *Vaccine) { v.boxes = slices.Clone(boxes) }
}

// New creates a vaccine and assigns it the next id from ids.
func New(ids *IDSource, name string, opts ...Option) *Vaccine {
	v := &Vaccine{id: ids.Next(), name: name}
	for _, o := range opts {
		o(v)
	}
	return v
}

// NewChecked is New but rejects variant names whose count differs from the
// number of offsets.
func NewChecked(ids *IDSource, name string, opts ...Option) (*Vaccine, error) {
	v := New(ids, name, opts...)
	if len(v.variants) > 0 && len(v.variants) != len(v.offsets) {
		return nil, fmt.Errorf("%w: %s has %d offsets and %d names", ErrVariantLength, name, len(v.offsets), len(v.variants))
	}
	return v, nil
}

func (v *Vaccine) ID() int         { return v.id }
func (v *Vaccine) Name() string    { return v.name }
func (v *Vaccine) Disease() string { return v.disease }
func (v *Vaccine) Selected() bool  { return v.selected }
func (v *Vaccine) Offsets() []int  { return slices.Clone(v.offsets) }
func (v *Vaccine) DoseCount() int  { return len(v.offsets) }
func (v *Vaccine) Variants() []string {
	return slices.Clone(v.variants)
}
func (v *Vaccine) DisplayBoxes() []DisplayBox { return slices.Clone(v.boxes) }

// DoseName returns the display name of dose i. Missing variant names fall
// back to the vaccine name.
func (v *Vaccine) DoseName(i int) string {
	if i >= 0 && i < len(v.variants) && v.variants[i] != "" {
		return v.variants[i]
	}
	return v.name
}

// SetOffsets replaces the dose offsets. No hook fires.
func (v *Vaccine) SetOffsets(offsets ...int) {
	v.offsets = slices.Clone(offsets)
}

// OnSelectionChanged registers h. Hooks run in registration order.
func (v *Vaccine) OnSelectionChanged(h SelectionHook) {
	v.onSelection = append(v.onSelection, h)
}

// OnFormSubmitted registers h. Hooks run in registration order.
func (v *Vaccine) OnFormSubmitted(h FormHook) {
	v.onForm = append(v.onForm, h)
}

// SetSelected stores the flag and runs every selection hook synchronously.
// When called from inside one of this vaccine's own hook chains the flag is
// stored but hooks are not run again and ErrSelectionCycle is returned.
func (v *Vaccine) SetSelected(selected bool) error {
	v.selected = selected
	if v.firing {
		return fmt.Errorf("%w: %s", ErrSelectionCycle, v.name)
	}
	v.firing = true
	defer func() { v.firing = false }()
	for _, h := range v.onSelection {
		h()
	}
	return nil
}

// ApplyFormSubmitted runs every form hook with form.
func (v *Vaccine) ApplyFormSubmitted(form FormContext) {
	for _, h := range v.onForm {
		h(form)
	}
}

// Snapshot returns a copy carrying the same id and data but no hooks.
func (v *Vaccine) Snapshot() *Vaccine {
	return &Vaccine{
		id:       v.id,
		name:     v.name,
		disease:  v.disease,
		offsets:  slices.Clone(v.offsets),
		variants: slices.Clone(v.variants),
		selected: v.selected,
		boxes:    slices.Clone(v.boxes),
	}
}

// Same reports whether v and o denote the same vaccine.
func (v *Vaccine) Same(o *Vaccine) bool {
	return v != nil && o != nil && v.id == o.id
}
