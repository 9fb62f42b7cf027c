package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straitwatch/internal/client/llm"
	"straitwatch/internal/config"
	"straitwatch/internal/models"
)

const validReply = `Here is my assessment:
{"alert_level":"high","summary":"Two tankers seized.","scenario_update":{"primary_scenario":"harassment campaign","changed":true,"transition_detected":true},
"variable_changes":{"seizures_7d":2},"key_developments":["Tanker seized off Fujairah"],"news_ids":["n1"],"alert_message":"Seizures near the strait"}
Let me know if you need more.`

func TestExtractJSON(t *testing.T) {
	raw, err := ExtractJSON(`noise {not json} then {"a": {"b": "}"}} trailing {"c":1}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"b":"}"}}`, string(raw))

	_, err = ExtractJSON("no object here")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestParseValid(t *testing.T) {
	res, err := Parse(validReply)
	require.NoError(t, err)
	assert.Equal(t, models.LevelHigh, res.AlertLevel)
	assert.Equal(t, "harassment campaign", res.ScenarioUpdate.PrimaryScenario)
	assert.True(t, res.ScenarioUpdate.Changed)
	assert.True(t, res.ScenarioUpdate.TransitionDetected)
	assert.Equal(t, float64(2), res.VariableChanges["seizures_7d"])
	assert.Equal(t, []string{"n1"}, res.NewsIDs)
	assert.Equal(t, "Seizures near the strait", res.AlertMessage)
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"unknown level", `{"alert_level":"SEVERE","scenario_update":{"primary_scenario":"x","changed":false,"transition_detected":false},"variable_changes":{}}`},
		{"missing level", `{"scenario_update":{"primary_scenario":"x","changed":false,"transition_detected":false},"variable_changes":{}}`},
		{"empty scenario", `{"alert_level":"NONE","scenario_update":{"primary_scenario":" ","changed":false,"transition_detected":false},"variable_changes":{}}`},
		{"missing changed", `{"alert_level":"NONE","scenario_update":{"primary_scenario":"x","transition_detected":false},"variable_changes":{}}`},
		{"changed not bool", `{"alert_level":"NONE","scenario_update":{"primary_scenario":"x","changed":"yes","transition_detected":false},"variable_changes":{}}`},
		{"missing variables", `{"alert_level":"NONE","scenario_update":{"primary_scenario":"x","changed":false,"transition_detected":false}}`},
		{"variables not object", `{"alert_level":"NONE","scenario_update":{"primary_scenario":"x","changed":false,"transition_detected":false},"variable_changes":[1]}`},
		{"null variables", `{"alert_level":"NONE","scenario_update":{"primary_scenario":"x","changed":false,"transition_detected":false},"variable_changes":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.reply)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestCost(t *testing.T) {
	c := Cost(10_000, 2_000, 3, 15)
	assert.True(t, c.Equal(decimal.RequireFromString("0.06")), c.String())
}

type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (llm.Completion, error) {
	f.system, f.user = system, user
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Text: f.reply, InputTokens: 1_000_000, OutputTokens: 100_000}, nil
}

func analyzerWith(c Completer) *Analyzer {
	cfg := config.Default().Analyzer
	cfg.MaxNewsItems = 2
	return &Analyzer{Client: c, Config: cfg}
}

func TestAnalyzeBuildsPayloadAndPrices(t *testing.T) {
	fc := &fakeCompleter{reply: validReply}
	in := Input{
		State: &models.ScenarioState{AlertLevel: models.LevelElevated, PrimaryScenario: "tension", Variables: []byte(`{"seizures_7d":1}`), Version: 3},
		News: []models.WarNewsItem{
			{ID: "low", Title: "Port schedule", Severity: "low"},
			{ID: "crit", Title: "Tanker seized", Severity: "critical"},
			{ID: "high", Title: "Warships deployed", Severity: "high"},
		},
		Trigger: "news=3 critical=1",
	}
	out, err := analyzerWith(fc).Analyze(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.True(t, out.Called)
	assert.Equal(t, []string{"crit", "high"}, out.NewsIDs)
	assert.True(t, out.Cost.Equal(decimal.RequireFromString("4.5")), out.Cost.String())
	assert.Contains(t, out.InputSummary, "news=2")
	assert.Contains(t, out.InputSummary, "critical=1")

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(fc.user), &sent))
	state := sent["current_state"].(map[string]any)
	assert.Equal(t, "ELEVATED", state["alert_level"])
	assert.True(t, strings.Contains(fc.system, "alert_level"))
}

func TestAnalyzeMalformedStillReportsSpend(t *testing.T) {
	out, err := analyzerWith(&fakeCompleter{reply: "I cannot comply."}).Analyze(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrNoJSON)
	assert.True(t, out.Called)
	assert.Nil(t, out.Result)
	assert.True(t, out.Cost.IsPositive())
}

func TestAnalyzeProviderDown(t *testing.T) {
	out, err := analyzerWith(&fakeCompleter{err: llm.ErrProviderDown}).Analyze(context.Background(), Input{})
	assert.True(t, errors.Is(err, llm.ErrProviderDown))
	assert.False(t, out.Called)
}
