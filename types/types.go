// Package types describes the shape of API description documents per specification version.
//
// A raw table maps type names to NodeType descriptors that reference each other by name.
// Normalize links those names into a graph of Type values so traversals never look
// types up by name while walking.
package types

import (
	"fmt"
	"slices"
	"strings"

	"github.com/speakeasy-api/refbundle/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ErrUnknownType is returned when a descriptor references a type name missing from the table.
	ErrUnknownType = errors.Error("unknown type")
	// ErrUnmarkedTypeCycle is returned when the type graph loops through types none of which is marked Recursive.
	ErrUnmarkedTypeCycle = errors.Error("type cycle without recursive type")
)

// ScalarName is the name of the built-in type used for plain value slots.
const ScalarName = "scalar"

// Selector picks the concrete type name for a polymorphic value from the value itself,
// the node that holds it and the key it is stored under. Returning "" leaves the value untyped.
type Selector func(parent, value *yaml.Node, key string) string

type propKind int

const (
	propScalar propKind = iota
	propNamed
	propSelect
	propDirect
	propNotResolvable
)

// Prop describes the type of a property value. The zero value is a scalar slot:
// any value, where a `$ref` mapping is still resolved.
type Prop struct {
	kind     propKind
	name     string
	selector Selector
	variants []string
}

// Named types the value as the named type.
func Named(name string) Prop {
	return Prop{kind: propNamed, name: name}
}

// Select types the value with the variant returned by fn. Every name fn can return must be listed in variants.
func Select(fn Selector, variants ...string) Prop {
	return Prop{kind: propSelect, selector: fn, variants: variants}
}

// DirectResolveAs marks a string value that is itself a reference (such as a discriminator mapping entry)
// whose target is of the named type.
func DirectResolveAs(name string) Prop {
	return Prop{kind: propDirect, name: name}
}

// NotResolvable marks a value whose content is never walked or resolved.
func NotResolvable() Prop {
	return Prop{kind: propNotResolvable}
}

// Property is a named property of a NodeType. Properties are walked in declaration order.
type Property struct {
	Name string
	Type Prop
}

// NodeType is the raw, name-linked descriptor of one document node shape.
type NodeType struct {
	Properties           []Property
	AdditionalProperties *Prop
	Items                *Prop
	Required             []string
	ExtensionsPrefix     string
	// Recursive marks types that are expected to reach themselves through the type graph.
	Recursive bool
}

// Property returns the descriptor of the named property.
func (n *NodeType) Property(name string) (Prop, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Type, true
		}
	}
	return Prop{}, false
}

// SetProperty replaces the named property or appends it when it is not declared yet.
func (n *NodeType) SetProperty(name string, prop Prop) {
	for i, p := range n.Properties {
		if p.Name == name {
			n.Properties[i].Type = prop
			return
		}
	}
	n.Properties = append(n.Properties, Property{Name: name, Type: prop})
}

// ListOf returns a list type whose items are of the named type.
func ListOf(name string) *NodeType {
	items := Named(name)
	return &NodeType{Items: &items}
}

// MapOf returns a map type whose values are of the named type.
func MapOf(name string) *NodeType {
	values := Named(name)
	return &NodeType{AdditionalProperties: &values}
}

// ChildProp is a normalized Prop.
type ChildProp struct {
	Type          *Type
	Direct        bool
	NotResolvable bool
	selector      Selector
	variants      map[string]*Type
}

func (p *ChildProp) resolve(parent, value *yaml.Node, key string) (*Type, bool) {
	if p == nil || p.NotResolvable {
		return nil, false
	}
	if p.selector != nil {
		name := p.selector(parent, value, key)
		if name == "" {
			return nil, false
		}
		return p.variants[name], false
	}
	return p.Type, p.Direct
}

// Type is a normalized node type with direct links to the types of its children.
type Type struct {
	Name                 string
	Properties           []*TypedProperty
	AdditionalProperties *ChildProp
	Items                *ChildProp
	Required             []string
	ExtensionsPrefix     string
	Recursive            bool

	propIndex map[string]int
}

// TypedProperty is a normalized Property.
type TypedProperty struct {
	Name string
	Prop *ChildProp
}

// Scalar is the type of plain value slots. It has no children.
var Scalar = &Type{Name: ScalarName}

// SpecExtension is the type of specification extension values (`x-` keys). It has no children.
var SpecExtension = &Type{Name: "SpecExtension"}

// PropertyNames returns the declared property names in order.
func (t *Type) PropertyNames() []string {
	names := make([]string, 0, len(t.Properties))
	for _, p := range t.Properties {
		names = append(names, p.Name)
	}
	return names
}

// IsList reports whether the type describes a sequence.
func (t *Type) IsList() bool {
	return t.Items != nil
}

// ChildType returns the type of value stored under key (or at index key for lists) in parent.
// direct reports that value is a bare reference string whose target has the returned type.
// A nil type means the value is not walked.
func (t *Type) ChildType(parent, value *yaml.Node, key string) (child *Type, direct bool) {
	if t == nil {
		return nil, false
	}
	if t.Items != nil {
		return t.Items.resolve(parent, value, key)
	}

	if idx, ok := t.propIndex[key]; ok {
		return t.Properties[idx].Prop.resolve(parent, value, key)
	}
	if t.ExtensionsPrefix != "" && strings.HasPrefix(key, t.ExtensionsPrefix) {
		return SpecExtension, false
	}
	if t.AdditionalProperties != nil {
		return t.AdditionalProperties.resolve(parent, value, key)
	}
	return nil, false
}

// HasProperty reports whether key is a declared property of the type.
func (t *Type) HasProperty(key string) bool {
	_, ok := t.propIndex[key]
	return ok
}

// Types is a normalized type table.
type Types struct {
	Root  *Type
	types map[string]*Type
}

// Get returns the normalized type with the given name.
func (t *Types) Get(name string) (*Type, bool) {
	if name == ScalarName {
		return Scalar, true
	}
	typ, ok := t.types[name]
	return typ, ok
}

// Names returns the names of every type in the table, sorted.
func (t *Types) Names() []string {
	names := make([]string, 0, len(t.types))
	for name := range t.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Normalize links the raw table into a type graph rooted at rootName.
func Normalize(raw map[string]*NodeType, rootName string) (*Types, error) {
	out := &Types{types: make(map[string]*Type, len(raw))}
	for name := range raw {
		out.types[name] = &Type{Name: name}
	}

	lookup := func(owner, name string) (*Type, error) {
		if typ, ok := out.Get(name); ok {
			return typ, nil
		}
		return nil, ErrUnknownType.Wrap(fmt.Errorf("%s references %s", owner, name))
	}

	normalizeProp := func(owner string, p Prop) (*ChildProp, error) {
		switch p.kind {
		case propScalar:
			return &ChildProp{Type: Scalar}, nil
		case propNotResolvable:
			return &ChildProp{NotResolvable: true}, nil
		case propNamed, propDirect:
			typ, err := lookup(owner, p.name)
			if err != nil {
				return nil, err
			}
			return &ChildProp{Type: typ, Direct: p.kind == propDirect}, nil
		case propSelect:
			cp := &ChildProp{selector: p.selector, variants: make(map[string]*Type, len(p.variants))}
			for _, v := range p.variants {
				typ, err := lookup(owner, v)
				if err != nil {
					return nil, err
				}
				cp.variants[v] = typ
			}
			return cp, nil
		default:
			return nil, fmt.Errorf("%s: unsupported property kind %d", owner, p.kind)
		}
	}

	for name, nt := range raw {
		if nt == nil {
			return nil, fmt.Errorf("type %s is nil", name)
		}
		typ := out.types[name]
		typ.Required = nt.Required
		typ.ExtensionsPrefix = nt.ExtensionsPrefix
		typ.Recursive = nt.Recursive
		typ.propIndex = make(map[string]int, len(nt.Properties))

		for _, p := range nt.Properties {
			cp, err := normalizeProp(name+"."+p.Name, p.Type)
			if err != nil {
				return nil, err
			}
			typ.propIndex[p.Name] = len(typ.Properties)
			typ.Properties = append(typ.Properties, &TypedProperty{Name: p.Name, Prop: cp})
		}
		if nt.AdditionalProperties != nil {
			cp, err := normalizeProp(name+".*", *nt.AdditionalProperties)
			if err != nil {
				return nil, err
			}
			typ.AdditionalProperties = cp
		}
		if nt.Items != nil {
			cp, err := normalizeProp(name+"[]", *nt.Items)
			if err != nil {
				return nil, err
			}
			typ.Items = cp
		}
	}

	root, ok := out.types[rootName]
	if !ok {
		return nil, ErrUnknownType.Wrap(fmt.Errorf("root type %s", rootName))
	}
	out.Root = root

	if err := checkTypeCycles(out); err != nil {
		return nil, err
	}

	return out, nil
}

func (p *ChildProp) targets() []*Type {
	if p == nil {
		return nil
	}
	if p.selector != nil {
		targets := make([]*Type, 0, len(p.variants))
		for _, t := range p.variants {
			targets = append(targets, t)
		}
		return targets
	}
	if p.Type != nil {
		return []*Type{p.Type}
	}
	return nil
}

func (t *Type) edges() []*Type {
	var out []*Type
	for _, p := range t.Properties {
		out = append(out, p.Prop.targets()...)
	}
	out = append(out, t.AdditionalProperties.targets()...)
	out = append(out, t.Items.targets()...)
	return out
}

// checkTypeCycles fails when a cycle remains after removing every Recursive type from the graph.
func checkTypeCycles(types *Types) error {
	const (
		visiting = iota + 1
		done
	)
	state := make(map[*Type]int, len(types.types))
	var stack []string

	var visit func(t *Type) error
	visit = func(t *Type) error {
		if t.Recursive || t == Scalar || t == SpecExtension {
			return nil
		}
		switch state[t] {
		case visiting:
			start := slices.Index(stack, t.Name)
			cycle := append(slices.Clone(stack[start:]), t.Name)
			return ErrUnmarkedTypeCycle.Wrap(fmt.Errorf("%s", strings.Join(cycle, " -> ")))
		case done:
			return nil
		}

		state[t] = visiting
		stack = append(stack, t.Name)
		for _, child := range t.edges() {
			if err := visit(child); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[t] = done
		return nil
	}

	for _, name := range types.Names() {
		if err := visit(types.types[name]); err != nil {
			return err
		}
	}
	return nil
}
