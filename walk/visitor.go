package walk

import (
	"github.com/speakeasy-api/refbundle/types"
	"gopkg.in/yaml.v3"
)

// NodeFunc is called for a node of the document being walked.
type NodeFunc func(node *yaml.Node, ctx *UserContext)

// NodeVisitor pairs the hooks called before and after the children of a node are walked.
type NodeVisitor struct {
	Enter NodeFunc
	Leave NodeFunc
}

// RefAction tells the walker what to do with the target of a reference after the Ref.Enter hooks ran.
type RefAction int

const (
	// SkipTarget leaves the target of the reference unwalked from this reference.
	SkipTarget RefAction = iota
	// DescendIntoTarget walks the target at its own location before the Ref.Leave hooks run.
	DescendIntoTarget
)

// RefEnterFunc is called when the walker reaches a reference node.
type RefEnterFunc func(node *yaml.Node, resolved ResolveResult, ctx *UserContext) RefAction

// RefLeaveFunc is called once the walker is done with a reference node.
type RefLeaveFunc func(node *yaml.Node, resolved ResolveResult, ctx *UserContext)

// RefVisitor holds the hooks called for `$ref` nodes.
type RefVisitor struct {
	Enter RefEnterFunc
	Leave RefLeaveFunc
}

// Visitor is the set of hooks a single rule, preprocessor or decorator installs.
// Any hooks run for every non-reference node, Types hooks only for nodes of the named type.
type Visitor struct {
	Any   NodeVisitor
	Ref   RefVisitor
	Types map[string]NodeVisitor
}

func (v Visitor) typeVisitor(t *types.Type) NodeVisitor {
	if v.Types == nil || t == nil {
		return NodeVisitor{}
	}
	return v.Types[t.Name]
}

// Entry is a Visitor registered under a rule id with the severity its problems are reported with.
type Entry struct {
	RuleID   string
	Severity Severity
	Visitor  Visitor
}

// VisitorSet is an ordered list of entries. Hooks of the same kind run in the order of the set.
type VisitorSet []Entry

// Active returns the entries whose severity is not SeverityOff.
func (s VisitorSet) Active() VisitorSet {
	active := make(VisitorSet, 0, len(s))
	for _, e := range s {
		if e.Severity == SeverityOff {
			continue
		}
		active = append(active, e)
	}
	return active
}
