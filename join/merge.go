package join

import (
	"slices"
	"strings"

	"github.com/speakeasy-api/refbundle/jsonpointer"
	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/sequencedmap"
	"github.com/speakeasy-api/refbundle/walk"
	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

var methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// apiDocument is one bundled entrypoint.
type apiDocument struct {
	entrypoint string
	// api is the file name of the entrypoint, used for default tag prefixes and tag groups.
	api    string
	source *references.Source
	root   *yaml.Node
}

func (d *apiDocument) get(key string) *yaml.Node {
	return yml.ResolveAlias(yml.GetMapElement(d.root, key))
}

func (d *apiDocument) info() *yaml.Node {
	info := d.get("info")
	if !yml.IsMapping(info) {
		return nil
	}
	return info
}

type joiner struct {
	opts Options

	openapi *yaml.Node
	info    *yaml.Node
	servers *yaml.Node
	tags    *yaml.Node
	paths   *yaml.Node

	webhooksKey string
	webhooks    *yaml.Node
	components  *yaml.Node

	tagGroups *sequencedmap.Map[string, []string]

	// owners records which entrypoint defined a key first.
	owners    map[conflictKey]string
	conflicts *conflictSet
	problems  []walk.Problem
}

func newJoiner(opts Options) *joiner {
	return &joiner{
		opts:      opts,
		servers:   yml.CreateSequenceNode(),
		tags:      yml.CreateSequenceNode(),
		paths:     yml.CreateMapNode(),
		tagGroups: sequencedmap.New[string, []string](),
		owners:    map[conflictKey]string{},
		conflicts: newConflictSet(),
	}
}

// claim marks key as defined by entrypoint. When another entrypoint defined it first, its owner is returned.
func (j *joiner) claim(key conflictKey, entrypoint string) (string, bool) {
	if owner, ok := j.owners[key]; ok {
		return owner, owner != entrypoint
	}
	j.owners[key] = entrypoint
	return "", false
}

func (j *joiner) add(doc *apiDocument) error {
	info := doc.info()

	var tagsPrefix, componentsPrefix string
	var err error
	switch {
	case j.opts.PrefixTagsWithFilename:
		tagsPrefix = doc.api
	case j.opts.PrefixTagsWithInfoProp != "":
		if tagsPrefix, err = infoPrefix(info, j.opts.PrefixTagsWithInfoProp); err != nil {
			return err
		}
	}
	if j.opts.PrefixComponentsWithInfoProp != "" {
		if componentsPrefix, err = infoPrefix(info, j.opts.PrefixComponentsWithInfoProp); err != nil {
			return err
		}
		prefixComponentRefs(doc.root, componentsPrefix, map[*yaml.Node]bool{})
	}

	if yml.HasKey(doc.root, "x-tagGroups") {
		j.problems = append(j.problems, walk.Problem{
			Message:  "x-tagGroups already exists in the document and is replaced by the generated tag groups.",
			Severity: walk.SeverityWarn,
			RuleID:   RuleID,
			Location: references.NewLocation(doc.source, "#/x-tagGroups"),
		})
	}

	if tags := doc.get("tags"); yml.IsSequence(tags) {
		for _, tag := range tags.Content {
			if tag = yml.ResolveAlias(tag); yml.IsMapping(tag) {
				j.addTag(doc, tag, tagsPrefix)
			}
		}
	}

	appendServers(j.servers, doc.get("servers"))

	if paths := doc.get("paths"); yml.IsMapping(paths) {
		j.mergePathItems(doc, "paths", j.paths, paths, tagsPrefix, componentsPrefix)
	}
	for _, key := range []string{"webhooks", "x-webhooks"} {
		webhooks := doc.get(key)
		if !yml.IsMapping(webhooks) {
			continue
		}
		if j.webhooks == nil {
			j.webhooksKey = key
			j.webhooks = yml.CreateMapNode()
		}
		j.mergePathItems(doc, "webhooks", j.webhooks, webhooks, tagsPrefix, componentsPrefix)
	}

	j.addComponents(doc, componentsPrefix)
	return nil
}

// addTag adds tag under its prefixed name unless a tag of that name exists, and returns the prefixed name.
func (j *joiner) addTag(doc *apiDocument, tag *yaml.Node, prefix string) string {
	name, _ := yml.GetString(tag, "name")
	prefixed := addPrefix(name, prefix)
	key := conflictKey{section: "tags", scope: "description", key: prefixed}

	if existing := j.findTag(prefixed); existing == nil {
		if !yml.HasKey(tag, "x-displayName") {
			yml.SetMapElement(tag, "x-displayName", yml.CreateStringNode(name))
		}
		yml.SetMapElement(tag, "name", yml.CreateStringNode(prefixed))
		j.tags.Content = append(j.tags.Content, tag)
		j.claim(key, doc.entrypoint)
	} else if j.opts.WithoutXTagGroups && existing != tag {
		// without tag groups a tag shared by two documents must describe the same thing
		a, _ := yml.GetString(existing, "description")
		b, _ := yml.GetString(tag, "description")
		if b != "" && a != b {
			if owner, taken := j.claim(key, doc.entrypoint); taken {
				j.conflicts.add(key, owner, doc.entrypoint)
			}
		}
	}

	if !j.opts.WithoutXTagGroups {
		group, _ := j.tagGroups.Get(doc.api)
		if !slices.Contains(group, prefixed) {
			j.tagGroups.Set(doc.api, append(group, prefixed))
		}
	}

	return prefixed
}

func (j *joiner) findTag(name string) *yaml.Node {
	for _, tag := range j.tags.Content {
		if n, _ := yml.GetString(tag, "name"); n == name {
			return tag
		}
	}
	return nil
}

// mergePathItems merges the path items of items into into. section is "paths" or "webhooks".
func (j *joiner) mergePathItems(doc *apiDocument, section string, into, items *yaml.Node, tagsPrefix, componentsPrefix string) {
	for i := 0; i+1 < len(items.Content); i += 2 {
		name := yml.ResolveAlias(items.Content[i]).Value
		item := yml.ResolveAlias(items.Content[i+1])
		if !yml.IsMapping(item) {
			continue
		}

		joined := yml.EnsureMapElement(into, name)
		for k := 0; k+1 < len(item.Content); k += 2 {
			field := yml.ResolveAlias(item.Content[k]).Value
			value := yml.ResolveAlias(item.Content[k+1])

			switch {
			case slices.Contains(methods, field):
				j.addOperation(doc, section, name, field, joined, value, tagsPrefix, componentsPrefix)
			case field == "parameters":
				appendUnique(ensureSequence(joined, field), value, yml.DeepEqual)
			case field == "servers":
				appendServers(ensureSequence(joined, field), value)
			case yml.IsScalar(value):
				existing := yml.GetMapElement(joined, field)
				if existing == nil {
					yml.SetMapElement(joined, field, value)
					j.claim(conflictKey{section: section, scope: name, key: field}, doc.entrypoint)
				} else if !yml.DeepEqual(existing, value) {
					key := conflictKey{section: section, scope: name, key: field}
					if owner, taken := j.claim(key, doc.entrypoint); taken {
						j.conflicts.add(key, owner, doc.entrypoint)
					}
				}
			default:
				if !yml.HasKey(joined, field) {
					yml.SetMapElement(joined, field, value)
				}
			}
		}
	}
}

func (j *joiner) addOperation(doc *apiDocument, section, name, method string, joined, op *yaml.Node, tagsPrefix, componentsPrefix string) {
	key := conflictKey{section: section, scope: name, key: method}
	if owner, taken := j.claim(key, doc.entrypoint); taken {
		j.conflicts.add(key, owner, doc.entrypoint)
		return
	}
	yml.SetMapElement(joined, method, op)
	if !yml.IsMapping(op) {
		return
	}

	if id, ok := yml.GetString(op, "operationId"); ok && id != "" {
		idKey := conflictKey{section: section, scope: "operationIds", key: id}
		if owner, taken := j.claim(idKey, doc.entrypoint); taken {
			j.conflicts.add(idKey, owner, doc.entrypoint)
		}
	}

	if tags := yml.ResolveAlias(yml.GetMapElement(op, "tags")); yml.IsSequence(tags) && len(tags.Content) > 0 {
		for _, tag := range tags.Content {
			tag = yml.ResolveAlias(tag)
			if !yml.IsScalar(tag) {
				continue
			}
			tag.Value = j.addTag(doc, tagNode(tag.Value), tagsPrefix)
		}
	} else {
		prefix := tagsPrefix
		if prefix == "" {
			prefix = doc.api
		}
		name := j.addTag(doc, tagNode("other"), prefix)
		yml.SetMapElement(op, "tags", yml.CreateSequenceNode(yml.CreateStringNode(name)))
	}

	if componentsPrefix != "" {
		prefixSecurity(yml.GetMapElement(op, "security"), componentsPrefix)
	}
}

func (j *joiner) addComponents(doc *apiDocument, prefix string) {
	components := doc.get("components")
	if !yml.IsMapping(components) {
		return
	}
	if j.components == nil {
		j.components = yml.CreateMapNode()
	}

	for i := 0; i+1 < len(components.Content); i += 2 {
		group := yml.ResolveAlias(components.Content[i]).Value
		items := yml.ResolveAlias(components.Content[i+1])
		if !yml.IsMapping(items) {
			continue
		}

		joinedGroup := yml.EnsureMapElement(j.components, group)
		for k := 0; k+1 < len(items.Content); k += 2 {
			name := addPrefix(yml.ResolveAlias(items.Content[k]).Value, prefix)
			value := items.Content[k+1]
			key := conflictKey{section: "components", scope: group, key: name}

			existing := yml.GetMapElement(joinedGroup, name)
			if existing == nil {
				yml.SetMapElement(joinedGroup, name, value)
				j.claim(key, doc.entrypoint)
				continue
			}
			if !yml.DeepEqual(existing, value) {
				if owner, taken := j.claim(key, doc.entrypoint); taken {
					j.conflicts.add(key, owner, doc.entrypoint)
				}
			}
		}
	}
}

// build assembles the joined document.
func (j *joiner) build() *yaml.Node {
	root := yml.CreateMapNode()
	if j.openapi != nil {
		yml.SetMapElement(root, "openapi", j.openapi)
	}
	yml.SetMapElement(root, "info", j.info)
	if len(j.servers.Content) > 0 {
		yml.SetMapElement(root, "servers", j.servers)
	}
	if len(j.tags.Content) > 0 {
		yml.SetMapElement(root, "tags", j.tags)
	}
	yml.SetMapElement(root, "paths", j.paths)
	if j.webhooks != nil {
		yml.SetMapElement(root, j.webhooksKey, j.webhooks)
	}
	if j.components != nil {
		yml.SetMapElement(root, "components", j.components)
	}

	if !j.opts.WithoutXTagGroups && j.tagGroups.Len() > 0 {
		groups := yml.CreateSequenceNode()
		for name, tags := range j.tagGroups.All() {
			tagList := yml.CreateSequenceNode()
			for _, tag := range tags {
				tagList.Content = append(tagList.Content, yml.CreateStringNode(tag))
			}
			groups.Content = append(groups.Content, yml.CreateMapNode(
				yml.CreateStringNode("name"), yml.CreateStringNode(name),
				yml.CreateStringNode("tags"), tagList,
			))
		}
		yml.SetMapElement(root, "x-tagGroups", groups)
	}

	return root
}

func tagNode(name string) *yaml.Node {
	return yml.CreateMapNode(yml.CreateStringNode("name"), yml.CreateStringNode(name))
}

func ensureSequence(mapNode *yaml.Node, key string) *yaml.Node {
	if value := yml.ResolveAlias(yml.GetMapElement(mapNode, key)); yml.IsSequence(value) {
		return value
	}
	value := yml.CreateSequenceNode()
	yml.SetMapElement(mapNode, key, value)
	return value
}

// appendUnique appends the items of from to into, skipping items eq to one already present.
func appendUnique(into, from *yaml.Node, eq func(a, b *yaml.Node) bool) {
	if !yml.IsSequence(from) {
		return
	}
	for _, item := range from.Content {
		if !slices.ContainsFunc(into.Content, func(existing *yaml.Node) bool { return eq(existing, item) }) {
			into.Content = append(into.Content, item)
		}
	}
}

func appendServers(into, servers *yaml.Node) {
	appendUnique(into, servers, func(a, b *yaml.Node) bool {
		urlA, _ := yml.GetString(yml.ResolveAlias(a), "url")
		urlB, _ := yml.GetString(yml.ResolveAlias(b), "url")
		return urlA == urlB
	})
}

// prefixComponentRefs rewrites local references to components, including discriminator mappings, to the
// prefixed component names.
func prefixComponentRefs(node *yaml.Node, prefix string, seen map[*yaml.Node]bool) {
	node = yml.ResolveAlias(node)
	if node == nil || seen[node] {
		return
	}
	seen[node] = true

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := yml.ResolveAlias(node.Content[i]).Value
			value := yml.ResolveAlias(node.Content[i+1])

			switch {
			case key == references.RefKey && yml.IsScalar(value):
				value.Value = prefixRef(value.Value, prefix)
				continue
			case key == "discriminator" && yml.IsMapping(value):
				if mapping := yml.ResolveAlias(yml.GetMapElement(value, "mapping")); yml.IsMapping(mapping) && !seen[mapping] {
					seen[mapping] = true
					for k := 1; k < len(mapping.Content); k += 2 {
						if target := yml.ResolveAlias(mapping.Content[k]); yml.IsScalar(target) {
							target.Value = prefixRef(target.Value, prefix)
						}
					}
				}
			}
			prefixComponentRefs(value, prefix, seen)
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			prefixComponentRefs(item, prefix, seen)
		}
	}
}

func prefixRef(ref, prefix string) string {
	if !strings.HasPrefix(ref, "#/components/") {
		return ref
	}
	parts, err := jsonpointer.JSONPointer(ref).Parts()
	if err != nil || len(parts) < 3 {
		return ref
	}
	parts[2] = addPrefix(parts[2], prefix)
	return jsonpointer.Join(jsonpointer.Root, parts...)
}

// prefixSecurity renames the schemes of a security requirement list.
func prefixSecurity(security *yaml.Node, prefix string) {
	security = yml.ResolveAlias(security)
	if !yml.IsSequence(security) {
		return
	}
	for _, requirement := range security.Content {
		requirement = yml.ResolveAlias(requirement)
		if !yml.IsMapping(requirement) {
			continue
		}
		for i := 0; i < len(requirement.Content); i += 2 {
			requirement.Content[i] = yml.CreateStringNode(addPrefix(yml.ResolveAlias(requirement.Content[i]).Value, prefix))
		}
	}
}
