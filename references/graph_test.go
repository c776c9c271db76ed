package references

import (
	"context"
	"testing"

	"github.com/speakeasy-api/refbundle/errors"
	"github.com/speakeasy-api/refbundle/internal/testutils"
	"github.com/speakeasy-api/refbundle/types"
	"github.com/speakeasy-api/refbundle/yml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveFixture(t *testing.T, files map[string]string, rootPath string) (ResolvedRefMap, *Document, *Resolver) {
	t.Helper()

	fs := testutils.NewMapFS(files)
	r, err := NewResolver(WithVirtualFS(fs))
	require.NoError(t, err)

	doc, err := r.ResolveDocument(t.Context(), "", rootPath, true)
	require.NoError(t, err)

	version, err := types.DetectSpec(doc.Root)
	require.NoError(t, err)
	typs, err := types.Build(version, nil)
	require.NoError(t, err)

	refs, err := ResolveDocumentRefs(t.Context(), doc, typs.Root, r)
	require.NoError(t, err)
	return refs, doc, r
}

const graphRoot = `openapi: 3.0.0
info: {title: Pets, version: "1"}
paths:
  /pets:
    get:
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                $ref: ./schemas/pet.yaml
  /owners:
    $ref: ./paths/owners.yaml
components:
  schemas:
    Local:
      type: string
    Alias:
      $ref: '#/components/schemas/Local'
    Broken:
      $ref: ./missing.yaml
    Dangling:
      $ref: '#/components/schemas/Nope'
    Loop:
      $ref: '#/components/schemas/Loop'
    Dog:
      type: object
      discriminator:
        propertyName: kind
        mapping:
          cat: ./schemas/cat.yaml
`

func graphFiles() map[string]string {
	return map[string]string{
		"/specs/openapi.yaml": graphRoot,
		"/specs/schemas/pet.yaml": `type: object
properties:
  owner:
    $ref: ../schemas/owner.yaml#/Owner
  tags:
    type: array
    items:
      $ref: '#/definitions/Tag'
definitions:
  Tag:
    type: string
`,
		"/specs/schemas/owner.yaml": `Owner:
  type: object
  properties:
    pet:
      $ref: pet.yaml
`,
		"/specs/schemas/cat.yaml": "type: object\n",
		"/specs/paths/owners.yaml": `get:
  description:
    $ref: ../README.md
  responses:
    "200":
      description: ok
`,
		"/specs/README.md": "# Owners\n",
	}
}

func TestResolveDocumentRefs_Success(t *testing.T) {
	t.Parallel()

	refs, doc, r := resolveFixture(t, graphFiles(), "/specs/openapi.yaml")

	pet, ok := refs.Get("/specs/openapi.yaml", "./schemas/pet.yaml")
	require.True(t, ok)
	require.True(t, pet.Resolved)
	assert.True(t, pet.IsRemote)
	assert.Equal(t, "/specs/schemas/pet.yaml", pet.Document.Source.AbsoluteRef)
	assert.Equal(t, "#/", pet.NodePointer)

	owner, ok := refs.Get("/specs/schemas/pet.yaml", "../schemas/owner.yaml#/Owner")
	require.True(t, ok, "references inside remote documents are keyed by their own document")
	assert.True(t, owner.Resolved)
	assert.Equal(t, "#/Owner", owner.NodePointer)

	back, ok := refs.Get("/specs/schemas/owner.yaml", "pet.yaml")
	require.True(t, ok, "cycles are resolved once and not expanded again")
	assert.Same(t, pet.Node, back.Node)

	tag, ok := refs.Get("/specs/schemas/pet.yaml", "#/definitions/Tag")
	require.True(t, ok)
	assert.False(t, tag.IsRemote)
	assert.Equal(t, "string", yml.GetMapElement(tag.Node, "type").Value)

	alias, ok := refs.Get("/specs/openapi.yaml", "#/components/schemas/Alias")
	assert.False(t, ok, "Alias itself is never referenced")
	assert.Nil(t, alias)

	local, ok := refs.Get("/specs/openapi.yaml", "#/components/schemas/Local")
	require.True(t, ok)
	assert.False(t, local.IsRemote)
	assert.Same(t, doc, local.Document)

	mapping, ok := refs.Get("/specs/openapi.yaml", "./schemas/cat.yaml")
	require.True(t, ok, "discriminator mapping values are resolved directly")
	assert.True(t, mapping.Resolved)

	readme, ok := refs.Get("/specs/paths/owners.yaml", "../README.md")
	require.True(t, ok)
	assert.Equal(t, "# Owners\n", readme.Node.Value)

	assert.ElementsMatch(t, []string{
		"/specs/openapi.yaml",
		"/specs/schemas/pet.yaml",
		"/specs/schemas/owner.yaml",
		"/specs/paths/owners.yaml",
		"/specs/README.md",
		"/specs/schemas/cat.yaml",
	}, r.FileDependencies())
}

func TestResolveDocumentRefs_Unresolved(t *testing.T) {
	t.Parallel()

	refs, _, _ := resolveFixture(t, graphFiles(), "/specs/openapi.yaml")

	broken, ok := refs.Get("/specs/openapi.yaml", "./missing.yaml")
	require.True(t, ok)
	assert.False(t, broken.Resolved)
	assert.Nil(t, broken.Node)
	require.ErrorIs(t, broken.Error, errors.ErrFetchFailure)

	dangling, ok := refs.Get("/specs/openapi.yaml", "#/components/schemas/Nope")
	require.True(t, ok)
	assert.False(t, dangling.Resolved)
	require.ErrorIs(t, dangling.Error, errors.ErrUnresolvedPointer)

	loop, ok := refs.Get("/specs/openapi.yaml", "#/components/schemas/Loop")
	require.True(t, ok)
	assert.False(t, loop.Resolved)
	require.ErrorIs(t, loop.Error, errors.ErrCircularPointer)

	_, ok = loop.Location()
	assert.False(t, ok)
}

func TestResolveDocumentRefs_FollowsChains(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/api/openapi.yaml": `swagger: "2.0"
info: {title: t, version: "1"}
paths: {}
definitions:
  Pet:
    $ref: './models.yaml#/Pet'
  Name:
    $ref: '#/definitions/Pet/properties/name'
`,
		"/api/models.yaml": `Pet:
  $ref: '#/Animal'
Animal:
  type: object
  properties:
    name:
      type: string
`,
	}

	refs, _, _ := resolveFixture(t, files, "/api/openapi.yaml")

	pet, ok := refs.Get("/api/openapi.yaml", "./models.yaml#/Pet")
	require.True(t, ok)
	require.True(t, pet.Resolved)
	assert.Equal(t, "#/Animal", pet.NodePointer)

	name, ok := refs.Get("/api/openapi.yaml", "#/definitions/Pet/properties/name")
	require.True(t, ok)
	require.True(t, name.Resolved, name.Error)
	assert.Equal(t, "/api/models.yaml", name.Document.Source.AbsoluteRef)
	assert.Equal(t, "#/Animal/properties/name", name.NodePointer)
	assert.True(t, name.IsRemote)
}

func TestResolveDocumentRefs_RevisitsUnderOtherType(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/specs/openapi.yaml": `openapi: 3.0.0
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Shared:
      $ref: ./shared.yaml
    Node:
      $ref: ./a.yaml
  parameters:
    Limit:
      $ref: ./shared.yaml
`,
		"/specs/shared.yaml": `name: limit
in: query
schema:
  $ref: ./limit.yaml
`,
		"/specs/limit.yaml": "type: integer\n",
		"/specs/a.yaml": `type: object
properties:
  next:
    $ref: ./b.yaml
`,
		"/specs/b.yaml": `type: object
properties:
  prev:
    $ref: ./a.yaml
`,
	}

	refs, _, r := resolveFixture(t, files, "/specs/openapi.yaml")

	shared, ok := refs.Get("/specs/openapi.yaml", "./shared.yaml")
	require.True(t, ok)
	require.True(t, shared.Resolved)

	// schema is only walked once shared.yaml is seen as a Parameter
	limit, ok := refs.Get("/specs/shared.yaml", "./limit.yaml")
	require.True(t, ok)
	require.True(t, limit.Resolved, limit.Error)
	assert.Equal(t, "/specs/limit.yaml", limit.Document.Source.AbsoluteRef)

	next, ok := refs.Get("/specs/a.yaml", "./b.yaml")
	require.True(t, ok)
	assert.True(t, next.Resolved)
	prev, ok := refs.Get("/specs/b.yaml", "./a.yaml")
	require.True(t, ok)
	assert.True(t, prev.Resolved)

	assert.Contains(t, r.FileDependencies(), "/specs/limit.yaml")
}

func TestResolveDocumentRefs_CancelledContext(t *testing.T) {
	t.Parallel()

	fs := testutils.NewMapFS(graphFiles())
	r, err := NewResolver(WithVirtualFS(fs))
	require.NoError(t, err)
	doc, err := r.ResolveDocument(t.Context(), "", "/specs/openapi.yaml", true)
	require.NoError(t, err)
	typs, err := types.Build(types.OAS3_0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = ResolveDocumentRefs(ctx, doc, typs.Root, r)
	require.ErrorIs(t, err, context.Canceled)
}

func TestResolveDocumentRefs_NoDocument(t *testing.T) {
	t.Parallel()

	_, err := ResolveDocumentRefs(t.Context(), nil, types.Scalar, nil)
	require.ErrorIs(t, err, errors.ErrDocumentRequired)
}
