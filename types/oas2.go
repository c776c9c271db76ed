package types

var oas2HTTPMethods = []string{"get", "put", "post", "delete", "options", "head", "patch"}

func oas2Types() map[string]*NodeType {
	operations := make([]Property, 0, len(oas2HTTPMethods))
	for _, method := range oas2HTTPMethods {
		operations = append(operations, Property{Name: method, Type: Named("Operation")})
	}

	validationProps := scalars("format", "collectionFormat", "default", "maximum", "exclusiveMaximum", "minimum", "exclusiveMinimum",
		"maxLength", "minLength", "pattern", "maxItems", "minItems", "uniqueItems", "enum", "multipleOf")

	return map[string]*NodeType{
		"Root": {
			Properties: []Property{
				{Name: "swagger"},
				{Name: "info", Type: Named("Info")},
				{Name: "host"},
				{Name: "basePath"},
				{Name: "schemes"},
				{Name: "consumes"},
				{Name: "produces"},
				{Name: "paths", Type: Named("Paths")},
				{Name: "definitions", Type: Named("NamedSchemas")},
				{Name: "parameters", Type: Named("NamedParameters")},
				{Name: "responses", Type: Named("NamedResponses")},
				{Name: "securityDefinitions", Type: Named("NamedSecuritySchemes")},
				{Name: "security", Type: Named("SecurityRequirementList")},
				{Name: "tags", Type: Named("TagList")},
				{Name: "externalDocs", Type: Named("ExternalDocs")},
			},
			Required:         []string{"swagger", "paths", "info"},
			ExtensionsPrefix: "x-",
		},
		"Info": {
			Properties: []Property{
				{Name: "title"},
				{Name: "description"},
				{Name: "termsOfService"},
				{Name: "contact", Type: Named("Contact")},
				{Name: "license", Type: Named("License")},
				{Name: "version"},
			},
			Required:         []string{"title", "version"},
			ExtensionsPrefix: "x-",
		},
		"Contact": {Properties: scalars("name", "url", "email"), ExtensionsPrefix: "x-"},
		"License": {Properties: scalars("name", "url"), Required: []string{"name"}, ExtensionsPrefix: "x-"},
		"Paths":   {AdditionalProperties: ptr(Select(selectPathItem, "PathItem")), ExtensionsPrefix: "x-"},
		"PathItem": {
			Properties:       append([]Property{{Name: "parameters", Type: Named("ParameterList")}}, operations...),
			ExtensionsPrefix: "x-",
		},
		"Operation": {
			Properties: []Property{
				{Name: "tags"},
				{Name: "summary"},
				{Name: "description"},
				{Name: "externalDocs", Type: Named("ExternalDocs")},
				{Name: "operationId"},
				{Name: "consumes"},
				{Name: "produces"},
				{Name: "parameters", Type: Named("ParameterList")},
				{Name: "responses", Type: Named("Responses")},
				{Name: "schemes"},
				{Name: "deprecated"},
				{Name: "security", Type: Named("SecurityRequirementList")},
				{Name: "x-codeSamples", Type: Named("XCodeSampleList")},
				{Name: "x-code-samples", Type: Named("XCodeSampleList")},
			},
			Required:         []string{"responses"},
			ExtensionsPrefix: "x-",
		},
		"XCodeSample":     {Properties: scalars("lang", "label", "source")},
		"XCodeSampleList": ListOf("XCodeSample"),
		"ExternalDocs":    {Properties: scalars("description", "url"), Required: []string{"url"}, ExtensionsPrefix: "x-"},
		"Parameter": {
			Properties: withProps(scalars("name", "in", "description", "required", "type", "allowEmptyValue"),
				append([]Property{
					{Name: "schema", Type: Named("Schema")},
					{Name: "items", Type: Named("ParameterItems")},
				}, validationProps...)...),
			Required:         []string{"name", "in"},
			ExtensionsPrefix: "x-",
		},
		"ParameterList": ListOf("Parameter"),
		"ParameterItems": {
			Properties:       withProps(scalars("type"), append([]Property{{Name: "items", Type: Named("ParameterItems")}}, validationProps...)...),
			ExtensionsPrefix: "x-",
			Recursive:        true,
		},
		"Responses": {AdditionalProperties: ptr(Named("Response")), ExtensionsPrefix: "x-"},
		"Response": {
			Properties: []Property{
				{Name: "description"},
				{Name: "schema", Type: Named("Schema")},
				{Name: "headers", Type: Named("ResponseHeaders")},
				{Name: "examples"},
			},
			Required:         []string{"description"},
			ExtensionsPrefix: "x-",
		},
		"ResponseHeaders": MapOf("Header"),
		"Header": {
			Properties:       withProps(scalars("description", "type"), append([]Property{{Name: "items", Type: Named("ParameterItems")}}, validationProps...)...),
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
		"TagList": ListOf("Tag"),
		"Schema": {
			Properties: []Property{
				{Name: "format"},
				{Name: "title"},
				{Name: "description"},
				{Name: "default"},
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
				{Name: "items", Type: Select(selectSchemaOrList, "Schema", "SchemaList", ScalarName)},
				{Name: "allOf", Type: Named("SchemaList")},
				{Name: "properties", Type: Named("SchemaProperties")},
				{Name: "additionalProperties", Type: Select(selectSchemaOrBool, "Schema", ScalarName)},
				{Name: "discriminator"},
				{Name: "readOnly"},
				{Name: "xml", Type: Named("Xml")},
				{Name: "externalDocs", Type: Named("ExternalDocs")},
				{Name: "example"},
				{Name: "x-nullable"},
			},
			ExtensionsPrefix: "x-",
			Recursive:        true,
		},
		"SchemaProperties":     MapOf("Schema"),
		"SchemaList":           ListOf("Schema"),
		"Xml":                  {Properties: scalars("name", "namespace", "prefix", "attribute", "wrapped"), ExtensionsPrefix: "x-"},
		"NamedSchemas":         MapOf("Schema"),
		"NamedResponses":       MapOf("Response"),
		"NamedParameters":      MapOf("Parameter"),
		"NamedSecuritySchemes": MapOf("SecurityScheme"),
		"SecurityScheme": {
			Properties:       scalars("type", "description", "name", "in", "flow", "authorizationUrl", "tokenUrl", "scopes"),
			Required:         []string{"type"},
			ExtensionsPrefix: "x-",
		},
		"SecurityRequirement":     {AdditionalProperties: &Prop{}},
		"SecurityRequirementList": ListOf("SecurityRequirement"),
	}
}
