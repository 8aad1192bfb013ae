package prompts

import "sort"

func object(properties map[string]any) map[string]any {
	req := make([]string, 0, len(properties))
	for k := range properties {
		req = append(req, k)
	}
	sort.Strings(req)
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             req,
		"additionalProperties": false,
	}
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func StringSchema() map[string]any { return map[string]any{"type": "string"} }

func StringArraySchema() map[string]any { return arrayOf(StringSchema()) }

func NumberSchema() map[string]any { return map[string]any{"type": "number"} }

func IntSchema() map[string]any { return map[string]any{"type": "integer"} }

func EnumSchema(values ...string) map[string]any {
	arr := make([]any, 0, len(values))
	for _, v := range values {
		arr = append(arr, v)
	}
	return map[string]any{"type": "string", "enum": arr}
}
