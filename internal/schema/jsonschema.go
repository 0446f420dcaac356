package schema

// JSONSchema renders the schema as a JSON-schema object suitable for a
// structured-output response format. Every field is listed as a property;
// only the required fields go into "required" so the model may omit the rest.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		prop := map[string]any{"description": f.Description}
		switch f.Type {
		case FieldList:
			prop["type"] = "array"
			prop["items"] = map[string]any{"type": "string"}
		case FieldEnum:
			prop["type"] = "string"
			prop["enum"] = f.Values
		default:
			prop["type"] = "string"
		}
		props[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}
