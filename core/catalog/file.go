package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/vaxcal/core/factory"
	"github.com/kilianp07/vaxcal/core/model"
)

// ErrInvalidCatalog is returned when a catalog file fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Delay postpones a definition while another one is selected.
type Delay struct {
	With string `json:"with" yaml:"with"`
	Days int    `json:"days" yaml:"days"`
}

// Definition is the serialized form of one vaccine.
type Definition struct {
	Name     string             `json:"name" yaml:"name"`
	Disease  string             `json:"disease" yaml:"disease"`
	Offsets  []int              `json:"offsets" yaml:"offsets"`
	Variants []string           `json:"variants,omitempty" yaml:"variants,omitempty"`
	Selected bool               `json:"selected" yaml:"selected"`
	Boxes    []model.DisplayBox `json:"boxes,omitempty" yaml:"boxes,omitempty"`
	// Replaces lists definitions deselected while this one is selected.
	Replaces []string `json:"replaces,omitempty" yaml:"replaces,omitempty"`
	Delays   []Delay  `json:"delays,omitempty" yaml:"delays,omitempty"`
}

// File is a catalog read from disk. It implements Source.
type File struct {
	Scheme      Scheme       `json:"scheme" yaml:"scheme"`
	Definitions []Definition `json:"vaccines" yaml:"vaccines"`
}

type fileConf struct {
	Path string `json:"path"`
}

func newFileSource(conf map[string]any) (Source, error) {
	var c fileConf
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.Path == "" {
		return nil, fmt.Errorf("%w: file source requires a path", ErrInvalidCatalog)
	}
	return LoadFile(c.Path)
}

// LoadFile loads a catalog from a JSON or YAML file.
func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var f File
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &f)
	case ".json":
		err = json.Unmarshal(b, &f)
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", ext)
	}
	if err != nil {
		return nil, err
	}
	return &f, f.Validate()
}

// Decode reads a catalog from r.
func Decode(r io.Reader, format string) (*File, error) {
	var f File
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&f); err != nil {
			return nil, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return &f, f.Validate()
}

// Validate checks names are unique, offsets are non-negative, variant names
// pair up with offsets and every cross reference resolves.
func (f *File) Validate() error {
	if len(f.Definitions) == 0 {
		return fmt.Errorf("%w: no vaccines", ErrInvalidCatalog)
	}
	names := make(map[string]bool, len(f.Definitions))
	for _, d := range f.Definitions {
		if d.Name == "" {
			return fmt.Errorf("%w: vaccine without name", ErrInvalidCatalog)
		}
		if names[d.Name] {
			return fmt.Errorf("%w: duplicate vaccine %q", ErrInvalidCatalog, d.Name)
		}
		names[d.Name] = true
		for _, o := range d.Offsets {
			if o < 0 {
				return fmt.Errorf("%w: %s has negative offset %d", ErrInvalidCatalog, d.Name, o)
			}
		}
		if len(d.Variants) > 0 && len(d.Variants) != len(d.Offsets) {
			return fmt.Errorf("%w: %s: %w", ErrInvalidCatalog, d.Name, model.ErrVariantLength)
		}
	}
	for _, d := range f.Definitions {
		for _, r := range d.Replaces {
			if !names[r] {
				return fmt.Errorf("%w: %s replaces unknown vaccine %q", ErrInvalidCatalog, d.Name, r)
			}
		}
		for _, dl := range d.Delays {
			if !names[dl.With] {
				return fmt.Errorf("%w: %s delayed by unknown vaccine %q", ErrInvalidCatalog, d.Name, dl.With)
			}
		}
	}
	return nil
}

// Vaccines builds the definitions and wires their declared dependencies.
// Selection flags are taken as written; declaring a replacement does not
// deselect anything until the replacing definition is toggled.
func (f *File) Vaccines(ids *model.IDSource) []*model.Vaccine {
	out := make([]*model.Vaccine, 0, len(f.Definitions))
	byName := make(map[string]*model.Vaccine, len(f.Definitions))
	for _, d := range f.Definitions {
		opts := []model.Option{
			model.WithDisease(d.Disease),
			model.WithOffsets(d.Offsets...),
			model.WithSelected(d.Selected),
		}
		if len(d.Variants) > 0 {
			opts = append(opts, model.WithVariantNames(d.Variants...))
		}
		if len(d.Boxes) > 0 {
			opts = append(opts, model.WithDisplayBoxes(d.Boxes...))
		}
		v := model.New(ids, d.Name, opts...)
		out = append(out, v)
		byName[d.Name] = v
	}
	for _, d := range f.Definitions {
		v := byName[d.Name]
		if len(d.Replaces) > 0 {
			parts := make([]*model.Vaccine, 0, len(d.Replaces))
			for _, r := range d.Replaces {
				parts = append(parts, byName[r])
			}
			Replaces(v, parts...)
		}
		for _, dl := range d.Delays {
			DelayWhen(v, byName[dl.With], dl.Days)
		}
	}
	return out
}
