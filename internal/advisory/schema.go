package advisory

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/ppiankov/socwatch/internal/model"
)

//go:embed advisory.schema.json
var schemaJSON []byte

// Validator checks advisory payloads against the embedded output schema.
type Validator struct {
	resolved *jsonschema.Resolved
}

// NewValidator resolves the embedded schema.
func NewValidator() (*Validator, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(schemaJSON, &s); err != nil {
		return nil, fmt.Errorf("parse advisory schema: %w", err)
	}
	rs, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve advisory schema: %w", err)
	}
	return &Validator{resolved: rs}, nil
}

// SchemaJSON returns the raw embedded schema.
func SchemaJSON() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)
	return out
}

// ValidateInstance validates a decoded JSON value (map[string]any for objects).
func (v *Validator) ValidateInstance(instance any) error {
	if err := v.resolved.Validate(instance); err != nil {
		return fmt.Errorf("advisory output failed schema validation: %w", err)
	}
	return nil
}

// Validate checks a typed advisory by validating its JSON form, so typed
// and untyped paths go through the same schema.
func (v *Validator) Validate(out *model.Advisory) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal advisory output: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decode advisory output: %w", err)
	}
	return v.ValidateInstance(instance)
}

// ParseResponse turns raw generator text into a validated advisory.
// Markdown fences are stripped. The text must hold exactly one JSON object.
func (v *Validator) ParseResponse(raw string) (*model.Advisory, error) {
	cleaned := cleanJSON(raw)
	if cleaned == "" {
		return nil, &Error{Kind: KindMalformed, Err: errors.New("empty response")}
	}

	var instance any
	if err := json.Unmarshal([]byte(cleaned), &instance); err != nil {
		return nil, &Error{Kind: KindMalformed, Err: fmt.Errorf("response is not JSON: %w (%s)", err, truncate(cleaned, 200))}
	}
	if _, ok := instance.(map[string]any); !ok {
		return nil, &Error{Kind: KindMalformed, Err: fmt.Errorf("response is not a JSON object: %s", truncate(cleaned, 200))}
	}

	if err := v.ValidateInstance(instance); err != nil {
		return nil, &Error{Kind: KindSchema, Err: err}
	}

	var out model.Advisory
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, &Error{Kind: KindSchema, Err: fmt.Errorf("decode advisory output: %w", err)}
	}
	return &out, nil
}

// cleanJSON strips markdown fences and surrounding whitespace.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
