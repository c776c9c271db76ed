package types

import (
	"strings"

	"github.com/speakeasy-api/refbundle/yml"
	"gopkg.in/yaml.v3"
)

// selectMessagePayload types a message payload as a Schema only for the schema formats that are JSON Schema based.
func selectMessagePayload(parent, _ *yaml.Node, _ string) string {
	format, ok := yml.GetString(parent, "schemaFormat")
	if !ok || format == "" ||
		strings.HasPrefix(format, "application/vnd.aai.asyncapi") ||
		strings.HasPrefix(format, "application/schema+json") ||
		strings.HasPrefix(format, "application/schema+yaml") {
		return "Schema"
	}
	return ScalarName
}

func async2Types() map[string]*NodeType {
	operationProps := []Property{
		{Name: "operationId"},
		{Name: "summary"},
		{Name: "description"},
		{Name: "security", Type: Named("SecurityRequirementList")},
		{Name: "tags", Type: Named("TagList")},
		{Name: "externalDocs", Type: Named("ExternalDocs")},
		{Name: "bindings"},
	}

	messageTraitProps := []Property{
		{Name: "messageId"},
		{Name: "headers", Type: Named("Schema")},
		{Name: "correlationId", Type: Named("CorrelationId")},
		{Name: "schemaFormat"},
		{Name: "contentType"},
		{Name: "name"},
		{Name: "title"},
		{Name: "summary"},
		{Name: "description"},
		{Name: "tags", Type: Named("TagList")},
		{Name: "externalDocs", Type: Named("ExternalDocs")},
		{Name: "bindings"},
		{Name: "examples"},
	}

	return map[string]*NodeType{
		"Root": {
			Properties: []Property{
				{Name: "asyncapi"},
				{Name: "id"},
				{Name: "info", Type: Named("Info")},
				{Name: "servers", Type: Named("ServerMap")},
				{Name: "defaultContentType"},
				{Name: "channels", Type: Named("ChannelMap")},
				{Name: "components", Type: Named("Components")},
				{Name: "tags", Type: Named("TagList")},
				{Name: "externalDocs", Type: Named("ExternalDocs")},
			},
			Required:         []string{"asyncapi", "channels", "info"},
			ExtensionsPrefix: "x-",
		},
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
		"Contact":      {Properties: scalars("name", "url", "email"), ExtensionsPrefix: "x-"},
		"License":      {Properties: scalars("name", "url"), Required: []string{"name"}, ExtensionsPrefix: "x-"},
		"ExternalDocs": {Properties: scalars("description", "url"), Required: []string{"url"}, ExtensionsPrefix: "x-"},
		"Tag": {
			Properties: []Property{
				{Name: "name"},
				{Name: "description"},
				{Name: "externalDocs", Type: Named("ExternalDocs")},
			},
			Required:         []string{"name"},
			ExtensionsPrefix: "x-",
		},
		"TagList":   ListOf("Tag"),
		"ServerMap": MapOf("Server"),
		"Server": {
			Properties: []Property{
				{Name: "url"},
				{Name: "protocol"},
				{Name: "protocolVersion"},
				{Name: "description"},
				{Name: "variables", Type: Named("ServerVariablesMap")},
				{Name: "security", Type: Named("SecurityRequirementList")},
				{Name: "bindings"},
			},
			Required:         []string{"url", "protocol"},
			ExtensionsPrefix: "x-",
		},
		"ServerVariable":          {Properties: scalars("enum", "default", "description", "examples"), ExtensionsPrefix: "x-"},
		"ServerVariablesMap":      MapOf("ServerVariable"),
		"SecurityRequirement":     {AdditionalProperties: &Prop{}},
		"SecurityRequirementList": ListOf("SecurityRequirement"),
		"ChannelMap":              MapOf("Channel"),
		"Channel": {
			Properties: []Property{
				{Name: "description"},
				{Name: "servers"},
				{Name: "subscribe", Type: Named("Operation")},
				{Name: "publish", Type: Named("Operation")},
				{Name: "parameters", Type: Named("ParametersMap")},
				{Name: "bindings"},
			},
			ExtensionsPrefix: "x-",
		},
		"ParametersMap": MapOf("Parameter"),
		"Parameter": {
			Properties: []Property{
				{Name: "description"},
				{Name: "schema", Type: Named("Schema")},
				{Name: "location"},
			},
			ExtensionsPrefix: "x-",
		},
		"Operation": {
			Properties: withProps(operationProps,
				Property{Name: "traits", Type: Named("OperationTraitList")},
				Property{Name: "message", Type: Named("Message")},
			),
			ExtensionsPrefix: "x-",
		},
		"OperationTrait":     {Properties: operationProps, ExtensionsPrefix: "x-"},
		"OperationTraitList": ListOf("OperationTrait"),
		"Message": {
			Properties: withProps(messageTraitProps,
				Property{Name: "payload", Type: Select(selectMessagePayload, "Schema", ScalarName)},
				Property{Name: "traits", Type: Named("MessageTraitList")},
				Property{Name: "oneOf", Type: Named("MessageList")},
			),
			ExtensionsPrefix: "x-",
			Recursive:        true,
		},
		"MessageList":      ListOf("Message"),
		"MessageTrait":     {Properties: messageTraitProps, ExtensionsPrefix: "x-"},
		"MessageTraitList": ListOf("MessageTrait"),
		"CorrelationId":    {Properties: scalars("description", "location"), Required: []string{"location"}, ExtensionsPrefix: "x-"},
		"Schema": {
			Properties: []Property{
				{Name: "$id"},
				{Name: "$schema"},
				{Name: "definitions", Type: Named("SchemaProperties")},
				{Name: "title"},
				{Name: "type"},
				{Name: "required"},
				{Name: "multipleOf"},
				{Name: "maximum"},
				{Name: "exclusiveMaximum"},
				{Name: "minimum"},
				{Name: "exclusiveMinimum"},
				{Name: "maxLength"},
				{Name: "minLength"},
				{Name: "pattern"},
				{Name: "maxItems"},
				{Name: "minItems"},
				{Name: "uniqueItems"},
				{Name: "maxProperties"},
				{Name: "minProperties"},
				{Name: "enum"},
				{Name: "const"},
				{Name: "examples"},
				{Name: "if", Type: Named("Schema")},
				{Name: "then", Type: Named("Schema")},
				{Name: "else", Type: Named("Schema")},
				{Name: "readOnly"},
				{Name: "writeOnly"},
				{Name: "properties", Type: Named("SchemaProperties")},
				{Name: "patternProperties", Type: Named("SchemaProperties")},
				{Name: "additionalProperties", Type: Select(selectSchemaOrBool, "Schema", ScalarName)},
				{Name: "additionalItems", Type: Select(selectSchemaOrBool, "Schema", ScalarName)},
				{Name: "items", Type: Select(selectSchemaOrList, "Schema", "SchemaList", ScalarName)},
				{Name: "propertyNames", Type: Named("Schema")},
				{Name: "contains", Type: Named("Schema")},
				{Name: "allOf", Type: Named("SchemaList")},
				{Name: "oneOf", Type: Named("SchemaList")},
				{Name: "anyOf", Type: Named("SchemaList")},
				{Name: "not", Type: Named("Schema")},
				{Name: "description"},
				{Name: "format"},
				{Name: "contentMediaType"},
				{Name: "contentEncoding"},
				{Name: "default"},
				{Name: "discriminator"},
				{Name: "externalDocs", Type: Named("ExternalDocs")},
				{Name: "deprecated"},
			},
			ExtensionsPrefix: "x-",
			Recursive:        true,
		},
		"SchemaProperties": MapOf("Schema"),
		"SchemaList":       ListOf("Schema"),
		"Components": {
			Properties: []Property{
				{Name: "schemas", Type: Named("NamedSchemas")},
				{Name: "servers", Type: Named("ServerMap")},
				{Name: "channels", Type: Named("ChannelMap")},
				{Name: "messages", Type: Named("NamedMessages")},
				{Name: "securitySchemes", Type: Named("NamedSecuritySchemes")},
				{Name: "parameters", Type: Named("ParametersMap")},
				{Name: "correlationIds", Type: Named("NamedCorrelationIds")},
				{Name: "operationTraits", Type: Named("NamedOperationTraits")},
				{Name: "messageTraits", Type: Named("NamedMessageTraits")},
				{Name: "serverBindings"},
				{Name: "channelBindings"},
				{Name: "operationBindings"},
				{Name: "messageBindings"},
			},
			ExtensionsPrefix: "x-",
		},
		"NamedSchemas":         MapOf("Schema"),
		"NamedMessages":        MapOf("Message"),
		"NamedSecuritySchemes": MapOf("SecurityScheme"),
		"NamedCorrelationIds":  MapOf("CorrelationId"),
		"NamedOperationTraits": MapOf("OperationTrait"),
		"NamedMessageTraits":   MapOf("MessageTrait"),
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
		"OAuth2Flow": {Properties: scalars("authorizationUrl", "tokenUrl", "refreshUrl", "scopes"), ExtensionsPrefix: "x-"},
	}
}
