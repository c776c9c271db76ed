// Package jsonpointer provides JSONPointer an implementation of RFC6901 https://datatracker.ietf.org/doc/html/rfc6901
// evaluated against YAML node trees. Pointers are accepted with or without the
// leading "#" used in URI fragments.
package jsonpointer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

const (
	// ErrNotFound is returned when the target is not found.
	ErrNotFound = errors.Error("not found")
	// ErrValidation is returned when the jsonpointer is invalid.
	ErrValidation = errors.Error("validation error")
)

// Root is the fragment pointer addressing a whole document.
const Root = "#/"

// JSONPointer represents a JSON Pointer value as defined by RFC6901 https://datatracker.ietf.org/doc/html/rfc6901
type JSONPointer string

// Validate will validate the JSONPointer is valid as per RFC6901.
func (j JSONPointer) Validate() error {
	_, err := j.Parts()
	return err
}

// Parts returns the unescaped reference tokens. Empty tokens are dropped, so
// "#/", "#", "/" and "" all address the document root.
func (j JSONPointer) Parts() ([]string, error) {
	s := strings.TrimPrefix(string(j), "#")
	if s == "" || s == "/" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, ErrValidation.Wrap(fmt.Errorf("jsonpointer must start with /: %s", string(j)))
	}

	raw := strings.Split(s[1:], "/")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		if part == "" {
			continue
		}
		unescaped, err := UnescapeString(part)
		if err != nil {
			return nil, ErrValidation.Wrap(fmt.Errorf("%w in %s", err, string(j)))
		}
		parts = append(parts, unescaped)
	}
	return parts, nil
}

// EscapeString escapes a single reference token.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

// UnescapeString reverses EscapeString, rejecting "~" not followed by 0 or 1.
func UnescapeString(s string) (string, error) {
	if !strings.Contains(s, "~") {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '~' {
			sb.WriteByte(s[i])
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("invalid escape sequence at end of %q", s)
		}
		switch s[i+1] {
		case '0':
			sb.WriteByte('~')
		case '1':
			sb.WriteByte('/')
		default:
			return "", fmt.Errorf("invalid escape sequence ~%c in %q", s[i+1], s)
		}
		i++
	}
	return sb.String(), nil
}

// PartsToJSONPointer will convert the exploded parts of a JSONPointer to a JSONPointer.
func PartsToJSONPointer(parts []string) JSONPointer {
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteByte('/')
		sb.WriteString(EscapeString(part))
	}
	return JSONPointer(sb.String())
}

// Join appends escaped tokens to a fragment pointer such as "#/" or "#/components".
func Join(base string, parts ...string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSuffix(base, "/"))
	if sb.Len() == 0 {
		sb.WriteByte('#')
	}
	for _, part := range parts {
		sb.WriteByte('/')
		sb.WriteString(EscapeString(part))
	}
	if len(parts) == 0 && !strings.HasSuffix(sb.String(), "/") {
		sb.WriteByte('/')
	}
	return sb.String()
}

// Child returns the direct child of node addressed by one unescaped token, or nil.
func Child(node *yaml.Node, token string) *yaml.Node {
	node = yml.ResolveAlias(node)
	if node == nil {
		return nil
	}

	switch node.Kind {
	case yaml.MappingNode:
		return yml.GetMapElement(node, token)
	case yaml.SequenceNode:
		index, err := strconv.Atoi(token)
		if err != nil || index < 0 || index >= len(node.Content) {
			return nil
		}
		return yml.ResolveAlias(node.Content[index])
	default:
		return nil
	}
}

// GetTarget will evaluate the JSONPointer against root and return the addressed node.
func GetTarget(root *yaml.Node, pointer JSONPointer) (*yaml.Node, error) {
	parts, err := pointer.Parts()
	if err != nil {
		return nil, err
	}

	target := yml.ResolveAlias(root)
	for i, part := range parts {
		target = Child(target, part)
		if target == nil {
			return nil, ErrNotFound.Wrap(fmt.Errorf("%s", PartsToJSONPointer(parts[:i+1])))
		}
	}
	return target, nil
}
