package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
)

// ValidateAndParseStructuredResponse checks resp.Content against the
// requested response format and replaces it with the parsed object on
// success. A nil or empty format returns resp unchanged. The format may be a
// bare schema or the OpenAI {json_schema:{schema:...}} wrapper. JSON parse
// failures and schema mismatches both surface as ErrStructuredValidation.
func ValidateAndParseStructuredResponse(resp *ChatResponse, responseFormat map[string]any, provider Provider) (*ChatResponse, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidProvider, provider)
	}
	if len(responseFormat) == 0 {
		return resp, nil
	}

	schema := extractSchema(responseFormat)

	parsed := resp.Content
	if s, ok := resp.Content.(string); ok {
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return nil, fmt.Errorf("%w: content is not valid JSON: %v", ErrStructuredValidation, err)
		}
	}
	if !validateValue(parsed, schema) {
		return nil, fmt.Errorf("%w: content does not conform to the requested schema", ErrStructuredValidation)
	}

	resp.Content = parsed
	return resp, nil
}

// ValidateStructuredResponse reports whether response conforms to schema.
// A JSON string is parsed first; parse failures return false rather than an
// error. No side effects.
func ValidateStructuredResponse(response any, schema map[string]any) bool {
	if s, ok := response.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return false
		}
		response = parsed
	}
	return validateValue(response, schema)
}

func extractSchema(responseFormat map[string]any) map[string]any {
	if wrapper, ok := responseFormat["json_schema"].(map[string]any); ok {
		if schema, ok := wrapper["schema"].(map[string]any); ok {
			return schema
		}
	}
	return responseFormat
}

// validateValue is a small recursive validator for the JSON-Schema subset the
// providers emit: type (including unions and null), properties, required,
// enum, minimum/maximum, pattern, and items. Undeclared properties are
// permitted.
func validateValue(value any, schema map[string]any) bool {
	if t, ok := schema["type"]; ok && !checkType(value, t) {
		return false
	}

	if enum, ok := schema["enum"].([]any); ok {
		if !enumContains(enum, value) {
			return false
		}
	}

	if num, ok := asNumber(value); ok {
		if min, ok := asNumber(schema["minimum"]); ok && num < min {
			return false
		}
		if max, ok := asNumber(schema["maximum"]); ok && num > max {
			return false
		}
	}

	if s, ok := value.(string); ok {
		if pattern, ok := schema["pattern"].(string); ok {
			re, err := regexp.Compile(pattern)
			if err != nil || !re.MatchString(s) {
				return false
			}
		}
	}

	if obj, ok := value.(map[string]any); ok {
		if required, ok := schema["required"].([]any); ok {
			for _, key := range required {
				name, ok := key.(string)
				if !ok {
					return false
				}
				if _, present := obj[name]; !present {
					return false
				}
			}
		}
		if props, ok := schema["properties"].(map[string]any); ok {
			for name, sub := range props {
				subSchema, ok := sub.(map[string]any)
				if !ok {
					continue
				}
				if v, present := obj[name]; present {
					if !validateValue(v, subSchema) {
						return false
					}
				}
			}
		}
	}

	if arr, ok := value.([]any); ok {
		if items, ok := schema["items"].(map[string]any); ok {
			for _, elem := range arr {
				if !validateValue(elem, items) {
					return false
				}
			}
		}
	}

	return true
}

// checkType accepts either a single type name or a union of names.
func checkType(value, typ any) bool {
	switch t := typ.(type) {
	case string:
		return matchesType(value, t)
	case []any:
		for _, name := range t {
			s, ok := name.(string)
			if ok && matchesType(value, s) {
				return true
			}
		}
		return false
	case []string:
		for _, name := range t {
			if matchesType(value, name) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matchesType(value any, name string) bool {
	switch name {
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := asNumber(value)
		return ok
	case "integer":
		num, ok := asNumber(value)
		return ok && num == math.Trunc(num)
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "null":
		return value == nil
	default:
		return false
	}
}

func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func enumContains(enum []any, value any) bool {
	for _, candidate := range enum {
		if reflect.DeepEqual(candidate, value) {
			return true
		}
	}
	return false
}
