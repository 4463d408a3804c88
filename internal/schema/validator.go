package schema

// Validator checks a JSON-Schema fragment for structural validity. It is
// pluggable and out of core scope per spec §1 — a real Draft-2020-12
// validator can be wired in by implementing this interface; when none is
// supplied, ShallowValidator stands in.
type Validator interface {
	// Validate reports whether s is a structurally valid schema document.
	Validate(s map[string]any) error
}

// ShallowValidator is TOOL-003's fallback. It accepts any schema whose
// "type" is a string other than "object"; otherwise it only requires the
// schema to declare "type" or "properties", so {"type":"object"} with no
// properties passes. It does not attempt real Draft-2020-12 validation.
type ShallowValidator struct{}

func (ShallowValidator) Validate(s map[string]any) error {
	typ, _ := s["type"].(string)
	if typ != "" && typ != "object" {
		return nil
	}
	if _, ok := s["properties"]; !ok {
		if _, ok := s["type"]; !ok {
			return errNoTypeOrProperties
		}
	}
	return nil
}

var errNoTypeOrProperties = validationError("schema declares neither type nor properties")

type validationError string

func (e validationError) Error() string { return string(e) }
