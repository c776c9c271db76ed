package types

import (
	"strings"

	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

var oas3HTTPMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

func scalars(names ...string) []Property {
	props := make([]Property, 0, len(names))
	for _, name := range names {
		props = append(props, Property{Name: name})
	}
	return props
}

func withProps(base []Property, extra ...Property) []Property {
	out := make([]Property, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func selectPathItem(_, _ *yaml.Node, key string) string {
	if strings.HasPrefix(key, "/") {
		return "PathItem"
	}
	return ""
}

func selectSchemaOrBool(_, value *yaml.Node, _ string) string {
	if yml.IsMapping(value) {
		return "Schema"
	}
	return ScalarName
}

func selectSchemaOrList(_, value *yaml.Node, _ string) string {
	if yml.IsSequence(value) {
		return "SchemaList"
	}
	if yml.IsMapping(value) {
		return "Schema"
	}
	return ScalarName
}

func oas3_0Types() map[string]*NodeType {
	operations := make([]Property, 0, len(oas3HTTPMethods))
	for _, method := range oas3HTTPMethods {
		operations = append(operations, Property{Name: method, Type: Named("Operation")})
	}

	schemaProps := []Property{
		{Name: "externalDocs", Type: Named("ExternalDocs")},
		{Name: "discriminator", Type: Named("Discriminator")},
		{Name: "title"},
		{Name: "multipleOf"},
		{Name: "maximum"},
		{Name: "minimum"},
		{Name: "exclusiveMaximum"},
		{Name: "exclusiveMinimum"},
		{Name: "maxLength"},
		{Name: "minLength"},
		{Name: "pattern"},
		{Name: "maxItems"},
		{Name: "minItems"},
		{Name: "uniqueItems"},
		{Name: "maxProperties"},
		{Name: "minProperties"},
		{Name: "required"},
		{Name: "enum"},
		{Name: "type"},
		{Name: "allOf", Type: Named("SchemaList")},
		{Name: "anyOf", Type: Named("SchemaList")},
		{Name: "oneOf", Type: Named("SchemaList")},
		{Name: "not", Type: Named("Schema")},
		{Name: "properties", Type: Named("SchemaProperties")},
		{Name: "items", Type: Named("Schema")},
		{Name: "additionalProperties", Type: Select(selectSchemaOrBool, "Schema", ScalarName)},
		{Name: "description"},
		{Name: "format"},
		{Name: "default"},
		{Name: "nullable"},
		{Name: "readOnly"},
		{Name: "writeOnly"},
		{Name: "xml", Type: Named("Xml")},
		{Name: "example"},
		{Name: "deprecated"},
	}

	parameterProps := withProps(scalars("name", "in", "description", "required", "deprecated", "allowEmptyValue", "style", "explode", "allowReserved"),
		Property{Name: "schema", Type: Named("Schema")},
		Property{Name: "example"},
		Property{Name: "examples", Type: Named("ExamplesMap")},
		Property{Name: "content", Type: Named("MediaTypesMap")},
	)

	headerProps := withProps(scalars("description", "required", "deprecated", "allowEmptyValue", "style", "explode", "allowReserved"),
		Property{Name: "schema", Type: Named("Schema")},
		Property{Name: "example"},
		Property{Name: "examples", Type: Named("ExamplesMap")},
		Property{Name: "content", Type: Named("MediaTypesMap")},
	)

	return map[string]*NodeType{
		"Root": {
			Properties: []Property{
				{Name: "openapi"},
				{Name: "info", Type: Named("Info")},
				{Name: "servers", Type: Named("ServerList")},
				{Name: "security", Type: Named("SecurityRequirementList")},
				{Name: "tags", Type: Named("TagList")},
				{Name: "externalDocs", Type: Named("ExternalDocs")},
				{Name: "paths", Type: Named("Paths")},
				{Name: "components", Type: Named("Components")},
				{Name: "x-webhooks", Type: Named("WebhooksMap")},
			},
			Required:         []string{"openapi", "paths", "info"},
			ExtensionsPrefix: "x-",
		},
		"Tag": {
			Properties: []Property{
				{Name: "name"},
				{Name: "description"},
				{Name: "externalDocs", Type: Named("ExternalDocs")},
				{Name: "x-displayName"},
			},
			Required:         []string{"name"},
			ExtensionsPrefix: "x-",
		},
		"TagList":      ListOf("Tag"),
		"ExternalDocs": {Properties: scalars("description", "url"), Required: []string{"url"}, ExtensionsPrefix: "x-"},
		"Server": {
			Properties: []Property{
				{Name: "url"},
				{Name: "description"},
				{Name: "variables", Type: Named("ServerVariablesMap")},
			},
			Required:         []string{"url"},
			ExtensionsPrefix: "x-",
		},
		"ServerList":              ListOf("Server"),
		"ServerVariable":          {Properties: scalars("enum", "default", "description"), Required: []string{"default"}, ExtensionsPrefix: "x-"},
		"ServerVariablesMap":      MapOf("ServerVariable"),
		"SecurityRequirement":     {AdditionalProperties: &Prop{}},
		"SecurityRequirementList": ListOf("SecurityRequirement"),
		"Info": {
			Properties: []Property{
				{Name: "title"},
				{Name: "version"},
				{Name: "description"},
				{Name: "termsOfService"},
				{Name: "contact", Type: Named("Contact")},
				{Name: "license", Type: Named("License")},
			},
			Required:         []string{"title", "version"},
			ExtensionsPrefix: "x-",
		},
		"Contact":     {Properties: scalars("name", "url", "email"), ExtensionsPrefix: "x-"},
		"License":     {Properties: scalars("name", "url"), Required: []string{"name"}, ExtensionsPrefix: "x-"},
		"Paths":       {AdditionalProperties: ptr(Select(selectPathItem, "PathItem")), ExtensionsPrefix: "x-"},
		"WebhooksMap": MapOf("PathItem"),
		"PathItem": {
			Properties: withProps(scalars("summary", "description"),
				append([]Property{
					{Name: "servers", Type: Named("ServerList")},
					{Name: "parameters", Type: Named("ParameterList")},
				}, operations...)...),
			ExtensionsPrefix: "x-",
		},
		"Parameter":     {Properties: parameterProps, Required: []string{"name", "in"}, ExtensionsPrefix: "x-"},
		"ParameterList": ListOf("Parameter"),
		"Callback":      {AdditionalProperties: ptr(Named("PathItem")), ExtensionsPrefix: "x-", Recursive: true},
		"CallbacksMap":  MapOf("Callback"),
		"Operation": {
			Properties: []Property{
				{Name: "tags"},
				{Name: "summary"},
				{Name: "description"},
				{Name: "externalDocs", Type: Named("ExternalDocs")},
				{Name: "operationId"},
				{Name: "parameters", Type: Named("ParameterList")},
				{Name: "security", Type: Named("SecurityRequirementList")},
				{Name: "servers", Type: Named("ServerList")},
				{Name: "requestBody", Type: Named("RequestBody")},
				{Name: "responses", Type: Named("Responses")},
				{Name: "deprecated"},
				{Name: "callbacks", Type: Named("CallbacksMap")},
				{Name: "x-codeSamples", Type: Named("XCodeSampleList")},
				{Name: "x-code-samples", Type: Named("XCodeSampleList")},
			},
			Required:         []string{"responses"},
			ExtensionsPrefix: "x-",
		},
		"XCodeSample":     {Properties: scalars("lang", "label", "source")},
		"XCodeSampleList": ListOf("XCodeSample"),
		"RequestBody": {
			Properties: []Property{
				{Name: "description"},
				{Name: "required"},
				{Name: "content", Type: Named("MediaTypesMap")},
			},
			Required:         []string{"content"},
			ExtensionsPrefix: "x-",
		},
		"MediaTypesMap": MapOf("MediaType"),
		"MediaType": {
			Properties: []Property{
				{Name: "schema", Type: Named("Schema")},
				{Name: "example"},
				{Name: "examples", Type: Named("ExamplesMap")},
				{Name: "encoding", Type: Named("EncodingMap")},
			},
			ExtensionsPrefix: "x-",
		},
		"Example":     {Properties: scalars("value", "summary", "description", "externalValue"), ExtensionsPrefix: "x-"},
		"ExamplesMap": MapOf("Example"),
		"Encoding": {
			Properties: []Property{
				{Name: "contentType"},
				{Name: "headers", Type: Named("HeadersMap")},
				{Name: "style"},
				{Name: "explode"},
				{Name: "allowReserved"},
			},
			ExtensionsPrefix: "x-",
		},
		"EncodingMap": MapOf("Encoding"),
		"Header":      {Properties: headerProps, ExtensionsPrefix: "x-", Recursive: true},
		"HeadersMap":  MapOf("Header"),
		"Responses":   {AdditionalProperties: ptr(Named("Response")), ExtensionsPrefix: "x-"},
		"Response": {
			Properties: []Property{
				{Name: "description"},
				{Name: "headers", Type: Named("HeadersMap")},
				{Name: "content", Type: Named("MediaTypesMap")},
				{Name: "links", Type: Named("LinksMap")},
			},
			Required:         []string{"description"},
			ExtensionsPrefix: "x-",
		},
		"Link": {
			Properties: []Property{
				{Name: "operationRef"},
				{Name: "operationId"},
				{Name: "parameters"},
				{Name: "requestBody"},
				{Name: "description"},
				{Name: "server", Type: Named("Server")},
			},
			ExtensionsPrefix: "x-",
		},
		"LinksMap":             MapOf("Link"),
		"Schema":               {Properties: schemaProps, ExtensionsPrefix: "x-", Recursive: true},
		"SchemaProperties":     MapOf("Schema"),
		"SchemaList":           ListOf("Schema"),
		"Xml":                  {Properties: scalars("name", "namespace", "prefix", "attribute", "wrapped"), ExtensionsPrefix: "x-"},
		"Discriminator":        {Properties: []Property{{Name: "propertyName"}, {Name: "mapping", Type: Named("DiscriminatorMapping")}}, Required: []string{"propertyName"}},
		"DiscriminatorMapping": {AdditionalProperties: ptr(DirectResolveAs("Schema"))},
		"Components": {
			Properties: []Property{
				{Name: "schemas", Type: Named("NamedSchemas")},
				{Name: "responses", Type: Named("NamedResponses")},
				{Name: "parameters", Type: Named("NamedParameters")},
				{Name: "examples", Type: Named("NamedExamples")},
				{Name: "requestBodies", Type: Named("NamedRequestBodies")},
				{Name: "headers", Type: Named("NamedHeaders")},
				{Name: "securitySchemes", Type: Named("NamedSecuritySchemes")},
				{Name: "links", Type: Named("NamedLinks")},
				{Name: "callbacks", Type: Named("NamedCallbacks")},
			},
			ExtensionsPrefix: "x-",
		},
		"NamedSchemas":         MapOf("Schema"),
		"NamedResponses":       MapOf("Response"),
		"NamedParameters":      MapOf("Parameter"),
		"NamedExamples":        MapOf("Example"),
		"NamedRequestBodies":   MapOf("RequestBody"),
		"NamedHeaders":         MapOf("Header"),
		"NamedSecuritySchemes": MapOf("SecurityScheme"),
		"NamedLinks":           MapOf("Link"),
		"NamedCallbacks":       MapOf("Callback"),
		"SecurityScheme": {
			Properties: []Property{
				{Name: "type"},
				{Name: "description"},
				{Name: "name"},
				{Name: "in"},
				{Name: "scheme"},
				{Name: "bearerFormat"},
				{Name: "flows", Type: Named("OAuth2Flows")},
				{Name: "openIdConnectUrl"},
			},
			Required:         []string{"type"},
			ExtensionsPrefix: "x-",
		},
		"OAuth2Flows": {
			Properties: []Property{
				{Name: "implicit", Type: Named("OAuth2Flow")},
				{Name: "password", Type: Named("OAuth2Flow")},
				{Name: "clientCredentials", Type: Named("OAuth2Flow")},
				{Name: "authorizationCode", Type: Named("OAuth2Flow")},
			},
			ExtensionsPrefix: "x-",
		},
		"OAuth2Flow": {Properties: scalars("authorizationUrl", "tokenUrl", "refreshUrl", "scopes"), Required: []string{"scopes"}, ExtensionsPrefix: "x-"},
	}
}

func oas3_1Types() map[string]*NodeType {
	t := oas3_0Types()

	t["Root"].SetProperty("webhooks", Named("WebhooksMap"))
	t["Root"].SetProperty("jsonSchemaDialect", Prop{})
	t["Root"].Required = []string{"openapi", "info"}
	t["Info"].SetProperty("summary", Prop{})
	t["License"].SetProperty("identifier", Prop{})
	t["Components"].SetProperty("pathItems", Named("NamedPathItems"))
	t["NamedPathItems"] = MapOf("PathItem")

	schema := t["Schema"]
	for _, name := range []string{"$id", "$anchor", "$schema", "$comment", "const", "contentEncoding", "contentMediaType", "examples", "minContains", "maxContains"} {
		schema.SetProperty(name, Prop{})
	}
	for _, name := range []string{"if", "then", "else", "contentSchema", "propertyNames", "contains"} {
		schema.SetProperty(name, Named("Schema"))
	}
	for _, name := range []string{"$defs", "dependentSchemas", "patternProperties"} {
		schema.SetProperty(name, Named("SchemaProperties"))
	}
	schema.SetProperty("prefixItems", Named("SchemaList"))
	schema.SetProperty("items", Select(selectSchemaOrBool, "Schema", ScalarName))
	schema.SetProperty("unevaluatedItems", Select(selectSchemaOrBool, "Schema", ScalarName))
	schema.SetProperty("unevaluatedProperties", Select(selectSchemaOrBool, "Schema", ScalarName))

	return t
}

func ptr[T any](v T) *T {
	return &v
}
