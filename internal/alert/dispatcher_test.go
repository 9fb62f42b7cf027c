package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straitwatch/internal/analyzer"
	"straitwatch/internal/models"
	"straitwatch/internal/notification"
)

type recordingSender struct {
	sent []notification.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg notification.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

type marker struct{ ids []string }

func (m *marker) MarkAnalysisNotified(_ context.Context, id string) error {
	m.ids = append(m.ids, id)
	return nil
}

func res(level string) *analyzer.Result {
	return &analyzer.Result{AlertLevel: level, Summary: "s", ScenarioUpdate: analyzer.ScenarioUpdate{PrimaryScenario: "p"}}
}

func TestDispatchLevels(t *testing.T) {
	for _, tt := range []struct {
		level string
		sends int
	}{
		{models.LevelNone, 0},
		{models.LevelElevated, 0},
		{models.LevelHigh, 1},
		{models.LevelCritical, 1},
	} {
		s := &recordingSender{}
		m := &marker{}
		d := &Dispatcher{Sender: s, Store: m}
		ok := d.Dispatch(context.Background(), "a1", res(tt.level), time.Now())
		assert.Equal(t, tt.sends == 1, ok, tt.level)
		assert.Len(t, s.sent, tt.sends, tt.level)
		assert.Len(t, m.ids, tt.sends, tt.level)
	}
}

func TestDispatchFailureDoesNotMark(t *testing.T) {
	s := &recordingSender{err: errors.New("telegram http 502")}
	m := &marker{}
	d := &Dispatcher{Sender: s, Store: m}
	assert.False(t, d.Dispatch(context.Background(), "a1", res(models.LevelCritical), time.Now()))
	require.Len(t, s.sent, 1)
	assert.Empty(t, m.ids)
}

func TestDispatchWithoutSender(t *testing.T) {
	d := &Dispatcher{}
	assert.False(t, d.Dispatch(context.Background(), "a1", res(models.LevelHigh), time.Now()))
}
