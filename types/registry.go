package types

import "fmt"

// Extension adds or overrides types of a raw table for the given version. It may modify and return types.
type Extension func(types map[string]*NodeType, version SpecVersion) map[string]*NodeType

// GetTypes returns a fresh raw type table for version. Callers may modify it freely.
func GetTypes(version SpecVersion) (map[string]*NodeType, error) {
	switch version {
	case OAS2:
		return oas2Types(), nil
	case OAS3_0:
		return oas3_0Types(), nil
	case OAS3_1:
		return oas3_1Types(), nil
	case Async2:
		return async2Types(), nil
	default:
		return nil, ErrUnsupportedSpec.Wrap(fmt.Errorf("no types for %q", version))
	}
}

// Build returns the normalized table for version after applying extensions in order.
// A non-nil base replaces the built-in raw table.
func Build(version SpecVersion, base map[string]*NodeType, extensions ...Extension) (*Types, error) {
	raw := base
	if raw == nil {
		var err error
		raw, err = GetTypes(version)
		if err != nil {
			return nil, err
		}
	}

	for _, ext := range extensions {
		if ext == nil {
			continue
		}
		raw = ext(raw, version)
	}

	return Normalize(raw, "Root")
}

// NotResolvableExamples makes example values opaque so `$ref`s inside examples are kept verbatim.
func NotResolvableExamples(types map[string]*NodeType, version SpecVersion) map[string]*NodeType {
	set := func(typeName string, props ...string) {
		nt, ok := types[typeName]
		if !ok {
			return
		}
		for _, prop := range props {
			if _, ok := nt.Property(prop); ok {
				nt.SetProperty(prop, NotResolvable())
			}
		}
	}

	switch version.Major() {
	case MajorOAS3:
		set("Example", "value")
		set("MediaType", "example")
		set("Parameter", "example")
		set("Header", "example")
		set("Schema", "example", "examples")
	case MajorOAS2:
		set("Response", "examples")
		set("Schema", "example")
	case MajorAsync2:
		set("Schema", "examples")
		set("Message", "examples")
		set("MessageTrait", "examples")
	}
	return types
}

// ComponentGroup returns the component group hoisted nodes of typeName are stored under,
// or "" when nodes of that type are always inlined.
func ComponentGroup(major SpecMajorVersion, typeName string) string {
	switch major {
	case MajorOAS3:
		switch typeName {
		case "Schema":
			return "schemas"
		case "Parameter":
			return "parameters"
		case "Response":
			return "responses"
		case "Example":
			return "examples"
		case "RequestBody":
			return "requestBodies"
		case "Header":
			return "headers"
		case "SecurityScheme":
			return "securitySchemes"
		case "Link":
			return "links"
		case "Callback":
			return "callbacks"
		}
	case MajorOAS2:
		switch typeName {
		case "Schema":
			return "definitions"
		case "Parameter":
			return "parameters"
		case "Response":
			return "responses"
		}
	case MajorAsync2:
		switch typeName {
		case "Schema":
			return "schemas"
		case "Parameter":
			return "parameters"
		}
	}
	return ""
}

// ComponentGroupType is the inverse of ComponentGroup.
func ComponentGroupType(major SpecMajorVersion, group string) string {
	for _, typeName := range []string{"Schema", "Parameter", "Response", "Example", "RequestBody", "Header", "SecurityScheme", "Link", "Callback"} {
		if ComponentGroup(major, typeName) == group {
			return typeName
		}
	}
	return ""
}
