package scenario

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straitwatch/internal/analyzer"
	"straitwatch/internal/models"
)

type memStore struct {
	state       *models.ScenarioState
	transitions []models.ScenarioTransition
	writes      int
	bumpFirst   bool
}

func (s *memStore) GetScenarioState(context.Context) (*models.ScenarioState, error) {
	if s.state == nil {
		return nil, nil
	}
	cp := *s.state
	return &cp, nil
}

func (s *memStore) CreateScenarioState(_ context.Context, item *models.ScenarioState) error {
	if s.state == nil {
		cp := *item
		s.state = &cp
	}
	return nil
}

func (s *memStore) ApplyScenarioUpdate(_ context.Context, expected int64, next *models.ScenarioState, tr *models.ScenarioTransition) (bool, error) {
	if s.bumpFirst {
		s.bumpFirst = false
		s.state.Version++
	}
	if s.state == nil || s.state.Version != expected {
		return false, nil
	}
	s.writes++
	s.state.Version = expected + 1
	s.state.AlertLevel = next.AlertLevel
	s.state.PrimaryScenario = next.PrimaryScenario
	s.state.Variables = next.Variables
	s.state.NewsIDs = next.NewsIDs
	s.state.LastAnalysisID = next.LastAnalysisID
	cp := *tr
	cp.Version = expected + 1
	s.transitions = append(s.transitions, cp)
	return true, nil
}

func result(level, scenario string, vars map[string]any) *analyzer.Result {
	return &analyzer.Result{
		AlertLevel:      level,
		ScenarioUpdate:  analyzer.ScenarioUpdate{PrimaryScenario: scenario, Changed: true, TransitionDetected: true},
		VariableChanges: vars,
		NewsIDs:         []string{"n1", "n2"},
	}
}

func TestEnsureCreatesInitialState(t *testing.T) {
	store := &memStore{}
	m := &Machine{Store: store}
	st, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.LevelNone, st.AlertLevel)
	assert.Equal(t, InitialScenario, st.PrimaryScenario)
	assert.Equal(t, int64(0), st.Version)
}

func TestApplyNoneHoldsState(t *testing.T) {
	store := &memStore{}
	m := &Machine{Store: store}
	out, err := m.Apply(context.Background(), result(models.LevelNone, "whatever", map[string]any{"x": 1}), "a1", []string{"n1"})
	require.NoError(t, err)
	assert.False(t, out.Advanced)
	assert.Equal(t, 0, store.writes)
	assert.Equal(t, InitialScenario, store.state.PrimaryScenario)
	assert.Empty(t, store.transitions)
}

func TestApplyAdvancesAndMergesVariables(t *testing.T) {
	store := &memStore{state: &models.ScenarioState{
		ID: models.CurrentScenarioID, AlertLevel: models.LevelElevated, PrimaryScenario: "tension",
		Variables: []byte(`{"seizures_7d":1,"gps_jamming":true}`), Version: 4,
	}}
	m := &Machine{Store: store}
	out, err := m.Apply(context.Background(), result(models.LevelHigh, "harassment campaign", map[string]any{"seizures_7d": 2, "gps_jamming": nil}), "a2", []string{"n0", "n1", "n2"})
	require.NoError(t, err)
	assert.True(t, out.Advanced)
	assert.Equal(t, models.LevelElevated, out.FromLevel)
	assert.Equal(t, models.LevelHigh, out.ToLevel)
	assert.Equal(t, int64(5), out.Version)

	var vars map[string]any
	require.NoError(t, json.Unmarshal(store.state.Variables, &vars))
	assert.Equal(t, map[string]any{"seizures_7d": float64(2)}, vars)
	assert.JSONEq(t, `["n1","n2"]`, string(store.state.NewsIDs))
	require.Len(t, store.transitions, 1)
	assert.Equal(t, "tension", store.transitions[0].FromScenario)
	assert.Equal(t, "a2", store.transitions[0].AnalysisID)
	require.NotNil(t, store.state.LastAnalysisID)
	assert.Equal(t, "a2", *store.state.LastAnalysisID)
}

func TestApplyConflict(t *testing.T) {
	store := &memStore{state: &models.ScenarioState{ID: models.CurrentScenarioID, AlertLevel: models.LevelNone, PrimaryScenario: "baseline"}, bumpFirst: true}
	m := &Machine{Store: store}
	_, err := m.Apply(context.Background(), result(models.LevelCritical, "closure", nil), "a3", []string{"n1"})
	assert.ErrorIs(t, err, ErrStateConflict)
	assert.Empty(t, store.transitions)
}

func TestApplyDropsUnknownNewsIDs(t *testing.T) {
	store := &memStore{}
	m := &Machine{Store: store}
	res := result(models.LevelHigh, "harassment campaign", nil)
	res.NewsIDs = []string{"made-up", "n2", "n2"}
	_, err := m.Apply(context.Background(), res, "a4", []string{"n1", "n2"})
	require.NoError(t, err)
	assert.JSONEq(t, `["n2"]`, string(store.state.NewsIDs))
	require.Len(t, store.transitions, 1)
	assert.JSONEq(t, `["n2"]`, string(store.transitions[0].NewsIDs))
}

func TestApplyFallsBackToInputNewsIDs(t *testing.T) {
	for name, cited := range map[string][]string{
		"omitted":     nil,
		"all unknown": {"made-up"},
	} {
		t.Run(name, func(t *testing.T) {
			store := &memStore{}
			m := &Machine{Store: store}
			res := result(models.LevelCritical, "closure", nil)
			res.NewsIDs = cited
			_, err := m.Apply(context.Background(), res, "a5", []string{"n1", "n2"})
			require.NoError(t, err)
			assert.JSONEq(t, `["n1","n2"]`, string(store.state.NewsIDs))
		})
	}
}
