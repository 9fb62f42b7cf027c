package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"straitwatch/internal/models"
)

var (
	ErrNoJSON            = errors.New("analyzer: no JSON object in response")
	ErrMalformedResponse = errors.New("analyzer: malformed response")
)

// Result is the structured reply the reasoning call must produce.
type Result struct {
	AlertLevel      string         `json:"alert_level"`
	Summary         string         `json:"summary,omitempty"`
	ScenarioUpdate  ScenarioUpdate `json:"scenario_update"`
	VariableChanges map[string]any `json:"variable_changes"`
	KeyDevelopments []string       `json:"key_developments,omitempty"`
	NewsIDs         []string       `json:"news_ids,omitempty"`
	AlertMessage    string         `json:"alert_message,omitempty"`
}

type ScenarioUpdate struct {
	PrimaryScenario    string `json:"primary_scenario"`
	Changed            bool   `json:"changed"`
	TransitionDetected bool   `json:"transition_detected"`
	Rationale          string `json:"rationale,omitempty"`
}

// ExtractJSON returns the first well-formed JSON object embedded in text.
func ExtractJSON(text string) (json.RawMessage, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return raw, nil
		}
	}
	return nil, ErrNoJSON
}

// Parse extracts and validates the reply. Missing or mistyped required fields
// are reported as ErrMalformedResponse; nothing is defaulted.
func Parse(text string) (*Result, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, malformed("top level is not an object: %v", err)
	}

	var level string
	if err := requireField(fields, "alert_level", &level); err != nil {
		return nil, err
	}
	level = strings.ToUpper(strings.TrimSpace(level))
	if !models.ValidLevel(level) {
		return nil, malformed("alert_level %q is not one of NONE, ELEVATED, HIGH, CRITICAL", level)
	}

	var update map[string]json.RawMessage
	if err := requireField(fields, "scenario_update", &update); err != nil {
		return nil, err
	}
	var su ScenarioUpdate
	if err := requireField(update, "primary_scenario", &su.PrimaryScenario); err != nil {
		return nil, err
	}
	su.PrimaryScenario = strings.TrimSpace(su.PrimaryScenario)
	if su.PrimaryScenario == "" {
		return nil, malformed("scenario_update.primary_scenario is empty")
	}
	if err := requireField(update, "changed", &su.Changed); err != nil {
		return nil, err
	}
	if err := requireField(update, "transition_detected", &su.TransitionDetected); err != nil {
		return nil, err
	}
	if v, ok := update["rationale"]; ok {
		_ = json.Unmarshal(v, &su.Rationale)
	}

	var vars map[string]any
	if err := requireField(fields, "variable_changes", &vars); err != nil {
		return nil, err
	}
	if vars == nil {
		return nil, malformed("variable_changes must be an object")
	}

	out := &Result{AlertLevel: level, ScenarioUpdate: su, VariableChanges: vars}
	optional(fields, "summary", &out.Summary)
	optional(fields, "key_developments", &out.KeyDevelopments)
	optional(fields, "news_ids", &out.NewsIDs)
	optional(fields, "alert_message", &out.AlertMessage)
	return out, nil
}

func requireField(fields map[string]json.RawMessage, name string, dst any) error {
	v, ok := fields[name]
	if !ok || string(v) == "null" {
		return malformed("missing %s", name)
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return malformed("%s: %v", name, err)
	}
	return nil
}

func optional(fields map[string]json.RawMessage, name string, dst any) {
	if v, ok := fields[name]; ok {
		_ = json.Unmarshal(v, dst)
	}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
