// Package scenario persists analyzer results as the current crisis state.
// It makes no judgement of its own.
package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"straitwatch/internal/analyzer"
	"straitwatch/internal/models"
)

// ErrStateConflict means another cycle advanced the state first.
var ErrStateConflict = errors.New("scenario: state changed concurrently")

const InitialScenario = "baseline"

type Store interface {
	GetScenarioState(ctx context.Context) (*models.ScenarioState, error)
	CreateScenarioState(ctx context.Context, item *models.ScenarioState) error
	ApplyScenarioUpdate(ctx context.Context, expectedVersion int64, next *models.ScenarioState, transition *models.ScenarioTransition) (bool, error)
}

type Outcome struct {
	Advanced  bool
	FromLevel string
	ToLevel   string
	Version   int64
}

type Machine struct {
	Store  Store
	Logger *zap.Logger
}

// Ensure returns the current state, creating the initial NONE row if absent.
func (m *Machine) Ensure(ctx context.Context) (*models.ScenarioState, error) {
	if m == nil || m.Store == nil {
		return nil, fmt.Errorf("scenario: no store")
	}
	cur, err := m.Store.GetScenarioState(ctx)
	if err != nil {
		return nil, err
	}
	if cur != nil {
		return cur, nil
	}
	initial := &models.ScenarioState{
		ID:              models.CurrentScenarioID,
		AlertLevel:      models.LevelNone,
		PrimaryScenario: InitialScenario,
		Variables:       datatypes.JSON("{}"),
		NewsIDs:         datatypes.JSON("[]"),
	}
	if err := m.Store.CreateScenarioState(ctx, initial); err != nil {
		return nil, err
	}
	// another cycle may have created it first
	cur, err = m.Store.GetScenarioState(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return initial, nil
	}
	return cur, nil
}

// Apply advances the state from a non-NONE result with a versioned write.
// A NONE result holds the current state. inputIDs are the news ids the
// analysis was shown; the stored ids are always drawn from them.
func (m *Machine) Apply(ctx context.Context, res *analyzer.Result, analysisID string, inputIDs []string) (Outcome, error) {
	if res == nil {
		return Outcome{}, fmt.Errorf("scenario: nil result")
	}
	cur, err := m.Ensure(ctx)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{FromLevel: cur.AlertLevel, ToLevel: cur.AlertLevel, Version: cur.Version}
	if res.AlertLevel == models.LevelNone {
		return out, nil
	}

	vars, err := mergeVariables(cur.Variables, res.VariableChanges)
	if err != nil {
		return Outcome{}, err
	}
	newsIDs, err := json.Marshal(justifyingIDs(res.NewsIDs, inputIDs))
	if err != nil {
		return Outcome{}, err
	}
	id := analysisID
	next := &models.ScenarioState{
		AlertLevel:      res.AlertLevel,
		PrimaryScenario: res.ScenarioUpdate.PrimaryScenario,
		Variables:       vars,
		NewsIDs:         datatypes.JSON(newsIDs),
		LastAnalysisID:  &id,
	}
	transition := &models.ScenarioTransition{
		AnalysisID:         analysisID,
		FromLevel:          cur.AlertLevel,
		ToLevel:            res.AlertLevel,
		FromScenario:       cur.PrimaryScenario,
		ToScenario:         res.ScenarioUpdate.PrimaryScenario,
		TransitionDetected: res.ScenarioUpdate.TransitionDetected,
		NewsIDs:            datatypes.JSON(newsIDs),
	}
	ok, err := m.Store.ApplyScenarioUpdate(ctx, cur.Version, next, transition)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, fmt.Errorf("%w: expected version %d", ErrStateConflict, cur.Version)
	}
	out.Advanced = true
	out.ToLevel = res.AlertLevel
	out.Version = cur.Version + 1
	if m.Logger != nil {
		m.Logger.Info("scenario advanced",
			zap.String("from", out.FromLevel),
			zap.String("to", out.ToLevel),
			zap.String("scenario", next.PrimaryScenario),
			zap.Int64("version", out.Version),
		)
	}
	return out, nil
}

// mergeVariables overlays changes on the stored map; a null change removes the key.
func mergeVariables(stored datatypes.JSON, changes map[string]any) (datatypes.JSON, error) {
	merged := map[string]any{}
	if len(stored) > 0 {
		if err := json.Unmarshal(stored, &merged); err != nil {
			return nil, fmt.Errorf("scenario: stored variables: %w", err)
		}
		if merged == nil {
			merged = map[string]any{}
		}
	}
	for k, v := range changes {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// justifyingIDs keeps the cited ids that were actually in the input, in
// citation order. With no valid citation the whole input set justifies the state.
func justifyingIDs(cited, input []string) []string {
	known := make(map[string]struct{}, len(input))
	for _, id := range input {
		known[id] = struct{}{}
	}
	out := make([]string, 0, len(cited))
	seen := map[string]struct{}{}
	for _, id := range cited {
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) > 0 {
		return out
	}
	out = append(out, input...)
	return out
}
