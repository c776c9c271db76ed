// Package hashing computes structural hashes of YAML trees. Two nodes that
// yml.DeepEqual reports as equal always hash to the same value, which makes
// the hash a cheap pre-check before a full comparison.
package hashing

import (
	"hash"
	"hash/fnv"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

// Hash returns a 16 character hex digest of the data node represents.
func Hash(node *yaml.Node) string {
	hasher := fnv.New64a()
	writeNode(hasher, node, 0)
	return formatHash(hasher.Sum64())
}

// formatHash converts a uint64 hash to a zero-padded 16-character hex string
// without the allocation overhead of fmt.Sprintf.
func formatHash(h uint64) string {
	const hexDigits = "0123456789abcdef"
	var buf [16]byte
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[h&0xf]
		h >>= 4
	}
	return string(buf[:])
}

const maxDepth = 10000

func writeNode(h hash.Hash64, node *yaml.Node, depth int) {
	node = yml.ResolveAlias(node)
	if node == nil || depth > maxDepth {
		_, _ = h.Write([]byte{0})
		return
	}

	switch node.Kind {
	case yaml.ScalarNode:
		_, _ = h.Write([]byte("s"))
		_, _ = h.Write([]byte(scalarKey(node)))
		_, _ = h.Write([]byte{0})
	case yaml.SequenceNode:
		_, _ = h.Write([]byte("["))
		for _, child := range node.Content {
			writeNode(h, child, depth+1)
		}
		_, _ = h.Write([]byte("]"))
	case yaml.MappingNode:
		type pair struct {
			key   string
			value *yaml.Node
		}
		pairs := make([]pair, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			pairs = append(pairs, pair{key: yml.ResolveAlias(node.Content[i]).Value, value: node.Content[i+1]})
		}
		slices.SortFunc(pairs, func(a, b pair) int {
			return strings.Compare(a.key, b.key)
		})

		_, _ = h.Write([]byte("{"))
		for _, p := range pairs {
			_, _ = h.Write([]byte(p.key))
			_, _ = h.Write([]byte{0})
			writeNode(h, p.value, depth+1)
		}
		_, _ = h.Write([]byte("}"))
	}
}

func scalarKey(node *yaml.Node) string {
	switch tag := node.ShortTag(); tag {
	case "!!int", "!!float":
		if i, err := strconv.ParseInt(node.Value, 0, 64); err == nil {
			return "n" + new(big.Rat).SetInt64(i).RatString()
		}
		if r, ok := new(big.Rat).SetString(node.Value); ok {
			return "n" + r.RatString()
		}
		return "n" + node.Value
	case "!!bool":
		if b, err := strconv.ParseBool(node.Value); err == nil {
			return "b" + strconv.FormatBool(b)
		}
		return "b" + node.Value
	case "!!null":
		return "z"
	default:
		return tag + node.Value
	}
}
