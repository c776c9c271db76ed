package join

import (
	"fmt"
	"slices"
	"strings"

	"github.com/speakeasy-api/refbundle/sequencedmap"
)

// Conflict is a key defined differently by more than one entrypoint.
type Conflict struct {
	// Section is "tags", "paths", "webhooks" or "components".
	Section string
	// Scope is the path or webhook name, the component group, "operationIds" or "description".
	Scope string
	Key   string
	// Files lists the entrypoints defining the key, first definition first.
	Files []string
}

var _ error = Conflict{}

func (c Conflict) Error() string {
	return fmt.Sprintf("Conflict on %s => %s : %s in files: %s", c.Section, c.Scope, c.Key, strings.Join(c.Files, ","))
}

type conflictKey struct {
	section string
	scope   string
	key     string
}

type conflictSet struct {
	m *sequencedmap.Map[conflictKey, []string]
}

func newConflictSet() *conflictSet {
	return &conflictSet{m: sequencedmap.New[conflictKey, []string]()}
}

func (s *conflictSet) add(key conflictKey, files ...string) {
	existing, _ := s.m.Get(key)
	for _, f := range files {
		if !slices.Contains(existing, f) {
			existing = append(existing, f)
		}
	}
	s.m.Set(key, existing)
}

func (s *conflictSet) list() []Conflict {
	var out []Conflict
	for key, files := range s.m.All() {
		out = append(out, Conflict{Section: key.section, Scope: key.scope, Key: key.key, Files: files})
	}
	return out
}
