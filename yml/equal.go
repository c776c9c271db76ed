package yml

import (
	"math/big"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DeepEqual compares the data two nodes represent. Mapping key order, scalar
// styles, comments and positions are ignored, and numbers compare by value, so
// a JSON document and its YAML rendering are equal.
func DeepEqual(a, b *yaml.Node) bool {
	a = ResolveAlias(a)
	b = ResolveAlias(b)

	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case yaml.ScalarNode:
		return scalarEqual(a, b)
	case yaml.SequenceNode:
		if len(a.Content) != len(b.Content) {
			return false
		}
		for i := range a.Content {
			if !DeepEqual(a.Content[i], b.Content[i]) {
				return false
			}
		}
		return true
	case yaml.MappingNode:
		if len(a.Content) != len(b.Content) {
			return false
		}
		for i := 0; i+1 < len(a.Content); i += 2 {
			key := ResolveAlias(a.Content[i]).Value
			_, other, ok := GetMapElementNodes(b, key)
			if !ok || !DeepEqual(a.Content[i+1], other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func scalarEqual(a, b *yaml.Node) bool {
	aTag, bTag := a.ShortTag(), b.ShortTag()
	if isNumberTag(aTag) && isNumberTag(bTag) {
		ra, okA := parseNumber(a.Value)
		rb, okB := parseNumber(b.Value)
		if okA && okB {
			return ra.Cmp(rb) == 0
		}
		return a.Value == b.Value
	}
	if aTag != bTag {
		return false
	}

	switch aTag {
	case "!!null":
		return true
	case "!!bool":
		ba, errA := strconv.ParseBool(a.Value)
		bb, errB := strconv.ParseBool(b.Value)
		if errA == nil && errB == nil {
			return ba == bb
		}
	}
	return a.Value == b.Value
}

func isNumberTag(tag string) bool {
	return tag == "!!int" || tag == "!!float"
}

func parseNumber(s string) (*big.Rat, bool) {
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return new(big.Rat).SetInt64(i), true
	}
	r, ok := new(big.Rat).SetString(s)
	return r, ok
}
