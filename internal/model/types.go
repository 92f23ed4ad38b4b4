package model

import (
	"fmt"
)

// RequiredIncidentFields lists the incident keys that must be present,
// in the order they are checked.
var RequiredIncidentFields = []string{"incident_id", "title", "severity", "timestamp", "source"}

// Entity is an observable attached to an incident (user, ip, domain, host...).
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Incident is the normalized incident record. It is read-only for the
// whole pipeline.
type Incident struct {
	IncidentID  string   `json:"incident_id"`
	Source      string   `json:"source"`
	Title       string   `json:"title"`
	Severity    string   `json:"severity"`
	Timestamp   string   `json:"timestamp"`
	Entities    []Entity `json:"entities"`
	Tags        []string `json:"tags"`
	Environment any      `json:"environment"`
	Notes       any      `json:"notes"`
}

// MissingFieldError reports the first required incident field that is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("incident missing required field: '%s'", e.Field)
}

// IncidentFromMap builds an Incident from a loosely typed mapping.
//
// Required keys are checked for presence in RequiredIncidentFields order and
// the first absent one is reported. No other validation is performed:
// severity is not enumerated and timestamp is not parsed.
func IncidentFromMap(m map[string]any) (Incident, error) {
	for _, key := range RequiredIncidentFields {
		if _, ok := m[key]; !ok {
			return Incident{}, &MissingFieldError{Field: key}
		}
	}

	inc := Incident{
		IncidentID:  scalar(m["incident_id"]),
		Title:       scalar(m["title"]),
		Severity:    scalar(m["severity"]),
		Timestamp:   scalar(m["timestamp"]),
		Source:      scalar(m["source"]),
		Entities:    EntitiesFromAny(m["entities"]),
		Tags:        stringsFromAny(m["tags"]),
		Environment: m["environment"],
		Notes:       m["notes"],
	}
	return inc, nil
}

// EntitiesFromAny parses a list of entity objects defensively.
// Elements that are not objects are skipped; non-string type or value
// fields become empty.
func EntitiesFromAny(v any) []Entity {
	out := []Entity{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		e := Entity{}
		e.Type, _ = obj["type"].(string)
		e.Value, _ = obj["value"].(string)
		out = append(out, e)
	}
	return out
}

// HasEntityType returns true if any entity has the given type.
func HasEntityType(entities []Entity, entityType string) bool {
	for _, e := range entities {
		if e.Type == entityType {
			return true
		}
	}
	return false
}

func stringsFromAny(v any) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func scalar(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
