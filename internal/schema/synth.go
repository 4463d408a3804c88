// Package schema synthesizes plausibly-valid (and deliberately invalid)
// argument instances from a JSON-Schema fragment, without depending on an
// external schema library, per spec §4.3.
package schema

// complexKeys are the keywords that make a schema too open-ended to
// synthesize confidently; their presence marks the schema "complex" and
// synthesis bails out with the null sentinel.
var complexKeys = []string{"$ref", "anyOf", "oneOf", "allOf", "if"}

// IsComplex reports whether schema contains any of the keywords that make
// synthesis unreliable.
func IsComplex(s map[string]any) bool {
	for _, k := range complexKeys {
		if _, ok := s[k]; ok {
			return true
		}
	}
	return false
}

// Sentinel is the null-sentinel value Synthesize returns for a complex
// schema; callers must skip rather than treat it as a valid argument.
type sentinel struct{}

// Sentinel is the singleton null-sentinel instance.
var Sentinel = sentinel{}

// IsSentinel reports whether v is the null sentinel.
func IsSentinel(v any) bool {
	_, ok := v.(sentinel)
	return ok
}

// Synthesize produces a plausibly-valid instance for schema s, or Sentinel
// when s is complex (or contains a complex required property).
func Synthesize(s map[string]any) any {
	if IsComplex(s) {
		return Sentinel
	}

	if enumVal, ok := s["enum"]; ok {
		if arr, ok := enumVal.([]any); ok && len(arr) > 0 {
			return arr[0]
		}
	}

	typ, _ := s["type"].(string)
	switch typ {
	case "string":
		return "test"
	case "integer", "number":
		if min, ok := numericMinimum(s); ok {
			return min
		}
		return 1
	case "boolean":
		return true
	case "array":
		return synthesizeArray(s)
	case "object":
		return synthesizeObject(s)
	default:
		if _, hasProps := s["properties"]; hasProps {
			return synthesizeObject(s)
		}
		return "test"
	}
}

func numericMinimum(s map[string]any) (any, bool) {
	v, ok := s["minimum"]
	return v, ok
}

func synthesizeArray(s map[string]any) any {
	minItems, _ := s["minItems"].(float64)
	itemsSchema, hasItems := s["items"].(map[string]any)
	if minItems > 0 && hasItems {
		item := Synthesize(itemsSchema)
		if IsSentinel(item) {
			return Sentinel
		}
		out := make([]any, int(minItems))
		for i := range out {
			out[i] = item
		}
		return out
	}
	return []any{}
}

func synthesizeObject(s map[string]any) any {
	props, _ := s["properties"].(map[string]any)
	required, _ := s["required"].([]any)

	out := map[string]any{}
	for _, r := range required {
		name, ok := r.(string)
		if !ok {
			continue
		}
		propSchema, _ := props[name].(map[string]any)
		val := Synthesize(propSchema)
		if IsSentinel(val) {
			return Sentinel
		}
		out[name] = val
	}
	return out
}

// Invalid returns a deliberately-invalid argument for schema s: an empty
// object when s declares required properties (omitting them should be
// rejected), otherwise an object carrying a field no schema declares.
func Invalid(s map[string]any) map[string]any {
	if required, ok := s["required"].([]any); ok && len(required) > 0 {
		return map[string]any{}
	}
	return map[string]any{"__invalid_field__": "should_not_be_accepted"}
}
