// Package decorators holds the preprocessors and decorators that can run around the bundle pass and
// the registry the bundler looks them up in.
//
// Preprocessors run before references are bundled, decorators run on the bundled document.
package decorators

import (
	"fmt"
	"slices"
	"sort"

	"github.com/speakeasy-api/refbundle/config"
	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/walk"
	"gopkg.in/yaml.v3"
)

const (
	// ErrUnknownDecorator is returned when configuration names an id that is not registered.
	ErrUnknownDecorator = errors.Error("unknown decorator")
	// ErrInvalidOptions is returned when a decorator cannot use the options it is configured with.
	ErrInvalidOptions = errors.Error("invalid decorator options")
)

// Kind tells whether a Decorator runs before or after the bundle pass.
type Kind string

const (
	KindPreprocessor Kind = "preprocessor"
	KindDecorator    Kind = "decorator"
)

// Decorator builds the visitor of one registered id.
type Decorator interface {
	ID() string
	Kind() Kind
	Description() string
	// Versions lists the major versions the decorator applies to, nil means all of them.
	Versions() []types.SpecMajorVersion
	Visitor(version types.SpecVersion, options map[string]any) (walk.Visitor, error)
}

// Registry holds registered decorators
type Registry struct {
	decorators map[string]Decorator
}

// NewRegistry creates a new decorator registry
func NewRegistry() *Registry {
	return &Registry{
		decorators: make(map[string]Decorator),
	}
}

// Default returns a registry holding every built-in preprocessor and decorator.
func Default() *Registry {
	r := NewRegistry()
	for _, d := range []Decorator{
		&removeUnusedComponents{},
		&removeXInternal{},
		&filterOut{},
		&mediaTypeExamplesOverride{},
	} {
		// built-in ids are unique
		_ = r.Register(d)
	}
	return r
}

// Register registers a decorator
func (r *Registry) Register(d Decorator) error {
	if _, exists := r.decorators[d.ID()]; exists {
		return fmt.Errorf("decorator %q already registered", d.ID())
	}
	r.decorators[d.ID()] = d
	return nil
}

// Get returns a decorator by ID
func (r *Registry) Get(id string) (Decorator, bool) {
	if r == nil {
		return nil, false
	}
	d, ok := r.decorators[id]
	return d, ok
}

// All returns all registered decorators
func (r *Registry) All() []Decorator {
	all := make([]Decorator, 0, len(r.decorators))
	for _, d := range r.decorators {
		all = append(all, d)
	}
	// Sort for deterministic order
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID() < all[j].ID()
	})
	return all
}

// VisitorSet builds the entries configured by settings for one kind and version, ordered by id.
// Settings that are off or name a decorator not applying to version are skipped.
func (r *Registry) VisitorSet(settings config.RuleSettings, kind Kind, version types.SpecVersion) (walk.VisitorSet, error) {
	var set walk.VisitorSet
	for _, id := range settings.IDs() {
		setting := settings[id]
		if setting.Severity == walk.SeverityOff {
			continue
		}

		d, ok := r.Get(id)
		if !ok {
			return nil, ErrUnknownDecorator.Wrap(fmt.Errorf("%s %q is not registered", kind, id))
		}
		if d.Kind() != kind {
			return nil, ErrUnknownDecorator.Wrap(fmt.Errorf("%q is a %s, configured as a %s", id, d.Kind(), kind))
		}
		if !appliesTo(d, version) {
			continue
		}

		v, err := d.Visitor(version, setting.Options)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind, id, err)
		}

		severity := setting.Severity
		if severity == "" {
			severity = walk.SeverityError
		}
		set = append(set, walk.Entry{RuleID: id, Severity: severity, Visitor: v})
	}
	return set, nil
}

func appliesTo(d Decorator, version types.SpecVersion) bool {
	versions := d.Versions()
	return versions == nil || slices.Contains(versions, version.Major())
}

// decodeOptions converts the loosely typed options of a rule setting into out.
func decodeOptions(options map[string]any, out any) error {
	if len(options) == 0 {
		return nil
	}
	data, err := yaml.Marshal(options)
	if err != nil {
		return ErrInvalidOptions.Wrap(err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return ErrInvalidOptions.Wrap(err)
	}
	return nil
}
