package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldKind is the JSON type of a schema field
type FieldKind string

const (
	FieldInteger FieldKind = "integer"
	FieldString  FieldKind = "string"
)

// SchemaField describes one property of a structured model response
type SchemaField struct {
	Name        string
	Description string
	Kind        FieldKind
	Enum        []string
	Min         int
	Max         int
	Required    bool
}

// ResponseSchema is the provider-neutral description of a structured response.
// Provider adapters translate it into their native format.
type ResponseSchema struct {
	Name        string
	Description string
	Fields      []SchemaField
	// Check runs after the per-field checks for constraints spanning fields
	Check func(fields map[string]any) error
}

// Field names shared by every schema
const (
	FieldScoring = "scoring"
	FieldReason  = "reason"
	FieldTitle   = "title"
	FieldType    = "type"
)

// RouterSchema constrains the router stage to a single content type
var RouterSchema = &ResponseSchema{
	Name:        "image_type",
	Description: "Type of the screenshot",
	Fields: []SchemaField{
		{Name: FieldType, Kind: FieldString, Enum: []string{string(ContentEmail), string(ContentWhatsApp)}, Required: true,
			Description: "'email' for email screenshots, 'whatsapp' for WhatsApp conversations"},
	},
}

// PhishingSchema is the output of the phishing specialist
var PhishingSchema = &ResponseSchema{
	Name:        "phishing_evaluation",
	Description: "Phishing risk evaluation of a screenshot",
	Fields: []SchemaField{
		{Name: FieldScoring, Kind: FieldInteger, Min: 1, Max: 10, Required: true,
			Description: "The phishing score from 1-10"},
		{Name: FieldReason, Kind: FieldString, Required: true,
			Description: "Brief explanation of the phishing assessment in Spanish (max 15 words)"},
	},
}

// SocialEngineeringSchema is the output of the social-engineering specialist
var SocialEngineeringSchema = &ResponseSchema{
	Name:        "social_engineering_evaluation",
	Description: "Social engineering risk evaluation of a screenshot",
	Fields: []SchemaField{
		{Name: FieldScoring, Kind: FieldInteger, Min: 1, Max: 10, Required: true,
			Description: "The social engineering risk score from 1-10"},
		{Name: FieldReason, Kind: FieldString, Required: true,
			Description: "Brief explanation of the social engineering assessment in Spanish (max 15 words)"},
	},
}

// UnifiedSchema is the output of the single-pass evaluator
var UnifiedSchema = &ResponseSchema{
	Name:        "unified_evaluation",
	Description: "Classification and risk scoring in one pass",
	Fields: []SchemaField{
		{Name: FieldScoring, Kind: FieldInteger, Min: 1, Max: 10, Required: true,
			Description: "Puntuación de riesgo de 1-10"},
		{Name: FieldReason, Kind: FieldString,
			Description: "Razón de la evaluación en español (máximo 5 palabras), solo si hay riesgo"},
		{Name: FieldTitle, Kind: FieldString,
			Description: "Una sola palabra (ej: Peligro, Alerta), solo si hay riesgo"},
	},
	Check: requireReasonUnlessSafe,
}

// requireReasonUnlessSafe rejects risky scores that come without a rationale
func requireReasonUnlessSafe(fields map[string]any) error {
	score := fields[FieldScoring].(int)
	if Band(score) == BandSafe {
		return nil
	}
	if reason, _ := fields[FieldReason].(string); reason == "" {
		return fmt.Errorf("field %q is required for score %d", FieldReason, score)
	}
	return nil
}

// Validate decodes raw and checks it against the schema. The returned map holds
// int for integer fields and string for string fields.
func (s *ResponseSchema) Validate(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %s: invalid JSON: %v", ErrSchemaValidation, s.Name, err)
	}

	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, ok := obj[f.Name]
		if !ok || v == nil {
			if f.Required {
				return nil, fmt.Errorf("%w: %s: missing field %q", ErrSchemaValidation, s.Name, f.Name)
			}
			continue
		}

		switch f.Kind {
		case FieldInteger:
			n, err := toInt(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: field %q: %v", ErrSchemaValidation, s.Name, f.Name, err)
			}
			if f.Min != 0 || f.Max != 0 {
				if n < f.Min || n > f.Max {
					return nil, fmt.Errorf("%w: %s: field %q out of range [%d,%d]: %d",
						ErrSchemaValidation, s.Name, f.Name, f.Min, f.Max, n)
				}
			}
			out[f.Name] = n
		case FieldString:
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s: field %q is not a string", ErrSchemaValidation, s.Name, f.Name)
			}
			str = strings.TrimSpace(str)
			if len(f.Enum) > 0 && !containsFold(f.Enum, str) {
				return nil, fmt.Errorf("%w: %s: field %q must be one of %v, got %q",
					ErrSchemaValidation, s.Name, f.Name, f.Enum, str)
			}
			if len(f.Enum) > 0 {
				str = strings.ToLower(str)
			}
			out[f.Name] = str
		}
	}

	if s.Check != nil {
		if err := s.Check(out); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSchemaValidation, s.Name, err)
		}
	}
	return out, nil
}

// JSONSchema renders the schema as a JSON Schema object
func (s *ResponseSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := []string{}
	for _, f := range s.Fields {
		p := map[string]any{
			"type":        string(f.Kind),
			"description": f.Description,
		}
		if len(f.Enum) > 0 {
			p["enum"] = f.Enum
		}
		if f.Kind == FieldInteger && (f.Min != 0 || f.Max != 0) {
			p["minimum"] = f.Min
			p["maximum"] = f.Max
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("not an integer: %s", n)
		}
		return int(f), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// ExtractJSON returns the outermost JSON object in a model's text response,
// dropping markdown fences or prose around it.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(text)
	}
	return text[start : end+1]
}
