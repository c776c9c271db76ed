package join_test

import (
	"testing"

	"github.com/speakeasy-api/refbundle/internal/testutils"
	"github.com/speakeasy-api/refbundle/join"
	"github.com/speakeasy-api/refbundle/jsonpointer"
	"github.com/speakeasy-api/refbundle/references"
	"github.com/speakeasy-api/refbundle/yml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func resolvers(files map[string]string) func() (*references.Resolver, error) {
	return func() (*references.Resolver, error) {
		return references.NewResolver(references.WithVirtualFS(testutils.NewMapFS(files)))
	}
}

func run(t *testing.T, files map[string]string, opts join.Options) *join.Result {
	t.Helper()
	opts.NewResolver = resolvers(files)
	res, err := join.Join(t.Context(), opts)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func get(t *testing.T, root *yaml.Node, pointer string) *yaml.Node {
	t.Helper()
	node, err := jsonpointer.GetTarget(root, jsonpointer.JSONPointer(pointer))
	if err != nil {
		return nil
	}
	return node
}

func TestJoin_TwoFiles_Success(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/apis/foo.yaml": `openapi: 3.0.0
info:
  version: 1.0.0
  title: Example OpenAPI 3 definition.
  description: Information about API
  license:
    name: MIT
    url: https://opensource.org/licenses/MIT
servers:
  - url: https://redocly.com/v1
paths:
  /pets:
    get:
      summary: Test summary
      operationId: exampleFoo
      parameters:
        - name: limit
          in: query
          description: How many items to return at one time (max 100)
          required: false
          schema:
            type: integer
            format: int
      responses:
        '200':
          description: example description
`,
		"/apis/bar.yaml": `openapi: 3.0.0
info:
  version: 1.0.0
  title: Example OpenAPI 3 definition.
  description: Information about API
servers:
  - url: https://redocly.com/v1
paths:
  /pets/{petId}:
    post:
      summary: summary example
      operationId: exampleBar
      responses:
        '201':
          description: example description
`,
	}

	res := run(t, files, join.Options{Entrypoints: []string{"/apis/foo.yaml", "/apis/bar.yaml"}})
	assert.Empty(t, res.Problems)
	assert.Empty(t, res.Conflicts)
	assert.False(t, res.HasConflicts())
	assert.Equal(t, []string{"/apis/foo.yaml", "/apis/bar.yaml"}, res.FileDependencies)

	out, err := res.Marshal(yml.OutputFormatYAML, 2)
	require.NoError(t, err)
	assert.Equal(t, `openapi: 3.0.0
info:
  version: 1.0.0
  title: Example OpenAPI 3 definition.
  description: Information about API
  license:
    name: MIT
    url: https://opensource.org/licenses/MIT
servers:
  - url: https://redocly.com/v1
tags:
  - name: foo_other
    x-displayName: other
  - name: bar_other
    x-displayName: other
paths:
  /pets:
    get:
      summary: Test summary
      operationId: exampleFoo
      parameters:
        - name: limit
          in: query
          description: How many items to return at one time (max 100)
          required: false
          schema:
            type: integer
            format: int
      responses:
        '200':
          description: example description
      tags:
        - foo_other
  /pets/{petId}:
    post:
      summary: summary example
      operationId: exampleBar
      responses:
        '201':
          description: example description
      tags:
        - bar_other
components: {}
x-tagGroups:
  - name: foo
    tags:
      - foo_other
  - name: bar
    tags:
      - bar_other
`, string(out))
}

func TestJoin_JSONAndYAMLInput_Success(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/apis/foo.json": `{
  "openapi": "3.0.0",
  "info": {
    "title": "Example API",
    "description": "This is an example API.",
    "version": "1.0.0"
  },
  "servers": [{"url": "https://redocly-example.com/api"}],
  "paths": {
    "/users/{userId}/orders/{orderId}": {
      "parameters": [
        {"name": "userId", "in": "path", "description": "ID of the user", "required": true, "schema": {"type": "integer"}},
        {"name": "orderId", "in": "path", "description": "ID of the order", "required": true, "schema": {"type": "integer"}}
      ],
      "get": {
        "x-private": true,
        "summary": "Get an order by ID for a specific user",
        "responses": {
          "200": {"description": "OK"},
          "404": {"description": "Not found"}
        }
      }
    }
  }
}
`,
		"/apis/bar.yaml": `openapi: 3.0.0
info:
  title: Example API
  version: 1.0.0
paths:
  /users/{userId}:
    parameters:
      - name: userId
        in: path
        description: ID of the user
        required: true
        schema:
          type: integer
    get:
      summary: Get user by ID
      responses:
        "200":
          description: OK
        "404":
          description: Not found
`,
	}

	res := run(t, files, join.Options{Entrypoints: []string{"/apis/foo.json", "/apis/bar.yaml"}})
	assert.Empty(t, res.Conflicts)

	out, err := res.Marshal(yml.OutputFormatJSON, 2)
	require.NoError(t, err)
	assert.Equal(t, `{
  "openapi": "3.0.0",
  "info": {
    "title": "Example API",
    "description": "This is an example API.",
    "version": "1.0.0"
  },
  "servers": [
    {
      "url": "https://redocly-example.com/api"
    }
  ],
  "tags": [
    {
      "name": "foo_other",
      "x-displayName": "other"
    },
    {
      "name": "bar_other",
      "x-displayName": "other"
    }
  ],
  "paths": {
    "/users/{userId}/orders/{orderId}": {
      "parameters": [
        {
          "name": "userId",
          "in": "path",
          "description": "ID of the user",
          "required": true,
          "schema": {
            "type": "integer"
          }
        },
        {
          "name": "orderId",
          "in": "path",
          "description": "ID of the order",
          "required": true,
          "schema": {
            "type": "integer"
          }
        }
      ],
      "get": {
        "x-private": true,
        "summary": "Get an order by ID for a specific user",
        "responses": {
          "200": {
            "description": "OK"
          },
          "404": {
            "description": "Not found"
          }
        },
        "tags": [
          "foo_other"
        ]
      }
    },
    "/users/{userId}": {
      "parameters": [
        {
          "name": "userId",
          "in": "path",
          "description": "ID of the user",
          "required": true,
          "schema": {
            "type": "integer"
          }
        }
      ],
      "get": {
        "summary": "Get user by ID",
        "responses": {
          "200": {
            "description": "OK"
          },
          "404": {
            "description": "Not found"
          }
        },
        "tags": [
          "bar_other"
        ]
      }
    }
  },
  "components": {},
  "x-tagGroups": [
    {
      "name": "foo",
      "tags": [
        "foo_other"
      ]
    },
    {
      "name": "bar",
      "tags": [
        "bar_other"
      ]
    }
  ]
}
`, string(out))
}

const petsAPI = `openapi: 3.1.0
info:
  title: Pets
  version: "1.0"
  x-product: Pet Store
tags:
  - name: pets
    description: Everything about pets
paths:
  /pets:
    get:
      operationId: listPets
      tags: [pets]
      security:
        - apiKey: []
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Pet'
components:
  securitySchemes:
    apiKey:
      type: apiKey
      in: header
      name: X-Key
  schemas:
    Pet:
      oneOf:
        - $ref: '#/components/schemas/Cat'
      discriminator:
        propertyName: kind
        mapping:
          cat: '#/components/schemas/Cat'
    Cat:
      type: object
    Error:
      type: object
`

func TestJoin_Conflicts_Reported(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/apis/pets.yaml": petsAPI,
		"/apis/other.yaml": `openapi: 3.1.0
info:
  title: Other
  version: "1.0"
paths:
  /pets:
    get:
      operationId: otherPets
      responses:
        "200":
          description: ok
  /more-pets:
    get:
      operationId: listPets
      responses:
        "200":
          description: ok
components:
  schemas:
    Cat:
      type: string
    Error:
      type: object
`,
	}

	res := run(t, files, join.Options{Entrypoints: []string{"/apis/pets.yaml", "/apis/other.yaml"}})
	require.True(t, res.HasConflicts())

	var messages []string
	for _, c := range res.Conflicts {
		messages = append(messages, c.Error())
	}
	assert.ElementsMatch(t, []string{
		"Conflict on paths => /pets : get in files: /apis/pets.yaml,/apis/other.yaml",
		"Conflict on paths => operationIds : listPets in files: /apis/pets.yaml,/apis/other.yaml",
		"Conflict on components => schemas : Cat in files: /apis/pets.yaml,/apis/other.yaml",
	}, messages)

	// the first definition wins
	assert.Equal(t, "listPets", get(t, res.Document, "/paths/~1pets/get/operationId").Value)
	assert.Equal(t, "object", get(t, res.Document, "/components/schemas/Cat/type").Value)
}

func TestJoin_Prefixes_Success(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/apis/pets.yaml": petsAPI,
		"/apis/store.yaml": `openapi: 3.1.0
info:
  title: Store
  version: "1.0"
  x-product: Store
paths:
  /orders:
    get:
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Error'
components:
  schemas:
    Error:
      type: string
`,
	}

	res := run(t, files, join.Options{
		Entrypoints:                  []string{"/apis/pets.yaml", "/apis/store.yaml"},
		PrefixTagsWithFilename:       true,
		PrefixComponentsWithInfoProp: "x-product",
	})
	root := res.Document

	assert.Empty(t, res.Conflicts)
	assert.Equal(t, []string{"Pet_Store_Pet", "Pet_Store_Cat", "Pet_Store_Error", "Store_Error"}, yml.MapKeys(get(t, root, "/components/schemas")))
	assert.Equal(t, []string{"Pet_Store_apiKey"}, yml.MapKeys(get(t, root, "/components/securitySchemes")))

	ref, _ := references.GetRef(get(t, root, "/paths/~1pets/get/responses/200/content/application~1json/schema"))
	assert.Equal(t, "#/components/schemas/Pet_Store_Pet", string(ref))
	ref, _ = references.GetRef(get(t, root, "/components/schemas/Pet_Store_Pet/oneOf/0"))
	assert.Equal(t, "#/components/schemas/Pet_Store_Cat", string(ref))
	assert.Equal(t, "#/components/schemas/Pet_Store_Cat", get(t, root, "/components/schemas/Pet_Store_Pet/discriminator/mapping/cat").Value)
	ref, _ = references.GetRef(get(t, root, "/paths/~1orders/get/responses/200/content/application~1json/schema"))
	assert.Equal(t, "#/components/schemas/Store_Error", string(ref))
	assert.Equal(t, []string{"Pet_Store_apiKey"}, yml.MapKeys(get(t, root, "/paths/~1pets/get/security/0")))

	assert.Equal(t, "pets_pets", get(t, root, "/paths/~1pets/get/tags/0").Value)
	assert.Equal(t, "store_other", get(t, root, "/paths/~1orders/get/tags/0").Value)
	assert.Equal(t, "pets_pets", get(t, root, "/tags/0/name").Value)
	assert.Equal(t, "pets", get(t, root, "/tags/0/x-displayName").Value)
	assert.Equal(t, "Everything about pets", get(t, root, "/tags/0/description").Value)

	assert.Equal(t, "pets", get(t, root, "/x-tagGroups/0/name").Value)
	assert.Equal(t, "pets_pets", get(t, root, "/x-tagGroups/0/tags/0").Value)
	assert.Equal(t, "store", get(t, root, "/x-tagGroups/1/name").Value)
}

func TestJoin_WithoutXTagGroups_Success(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/apis/a.yaml": `openapi: 3.1.0
info:
  title: A
  version: "1.0"
tags:
  - name: shared
    description: from a
paths: {}
webhooks:
  newPet:
    post:
      responses:
        "200":
          description: ok
`,
		"/apis/b.yaml": `openapi: 3.1.0
info:
  title: B
  version: "1.0"
tags:
  - name: shared
    description: from b
paths: {}
x-tagGroups:
  - name: mine
    tags: [shared]
`,
	}

	res := run(t, files, join.Options{Entrypoints: []string{"/apis/a.yaml", "/apis/b.yaml"}, WithoutXTagGroups: true})
	root := res.Document

	assert.Nil(t, get(t, root, "/x-tagGroups"))
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "Conflict on tags => description : shared in files: /apis/a.yaml,/apis/b.yaml", res.Conflicts[0].Error())

	assert.Equal(t, "a_other", get(t, root, "/webhooks/newPet/post/tags/0").Value)
	assert.Equal(t, []string{"openapi", "info", "tags", "paths", "webhooks", "components"}, yml.MapKeys(root))

	require.Len(t, res.Problems, 1)
	assert.Equal(t, join.RuleID, res.Problems[0].RuleID)
	assert.Equal(t, "/apis/b.yaml#/x-tagGroups", res.Problems[0].Location.AbsolutePointer())
}

func TestJoin_Error(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/apis/a.yaml":       "openapi: 3.0.3\ninfo:\n  title: A\n  version: \"1\"\npaths: {}\n",
		"/apis/b.yaml":       "openapi: 3.0.3\ninfo:\n  title: B\n  version: \"1\"\npaths: {}\n",
		"/apis/noinfo.yaml":  "openapi: 3.0.3\npaths: {}\n",
		"/apis/swagger.yaml": "swagger: \"2.0\"\ninfo:\n  title: S\n  version: \"1\"\npaths: {}\n",
	}

	tests := []struct {
		name string
		opts join.Options
		err  error
	}{
		{
			name: "single entrypoint",
			opts: join.Options{Entrypoints: []string{"/apis/a.yaml"}},
			err:  join.ErrNotEnoughEntrypoints,
		},
		{
			name: "both tag prefixes",
			opts: join.Options{Entrypoints: []string{"/apis/a.yaml", "/apis/b.yaml"}, PrefixTagsWithFilename: true, PrefixTagsWithInfoProp: "title"},
			err:  join.ErrConflictingOptions,
		},
		{
			name: "swagger document",
			opts: join.Options{Entrypoints: []string{"/apis/a.yaml", "/apis/swagger.yaml"}},
			err:  join.ErrUnsupportedVersion,
		},
		{
			name: "first document without info",
			opts: join.Options{Entrypoints: []string{"/apis/noinfo.yaml", "/apis/a.yaml"}},
			err:  join.ErrInfoNotFound,
		},
		{
			name: "missing prefix property",
			opts: join.Options{Entrypoints: []string{"/apis/a.yaml", "/apis/b.yaml"}, PrefixTagsWithInfoProp: "x-team"},
			err:  join.ErrPrefixNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := tt.opts
			opts.NewResolver = resolvers(files)
			_, err := join.Join(t.Context(), opts)
			require.ErrorIs(t, err, tt.err)
		})
	}
}
