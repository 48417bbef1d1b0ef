package alerter

import (
	"sync"
	"testing"
	"time"

	"Go2NetModel/internal/config"
	"Go2NetModel/internal/model"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticModels []model.Snapshot

func (s staticModels) Models() []model.Snapshot { return s }

type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (n *recordingNotifier) Send(subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, body)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subjects)
}

var models = staticModels{
	{ID: "/chatter", A: 0.1, B: 0, SigmaT: 0.05, S: 24, SigmaS: 0},
	{ID: "/sensor/imu", A: 0.01, B: 0, SigmaT: 0.0001, S: 96, SigmaS: 1},
	{ID: "/burst", A: 0, SigmaT: 0.3, S: 70000},
}

func newAlerter(t *testing.T, rules []config.AlerterRule, n *recordingNotifier, clk clock.Clock) *Alerter {
	t.Helper()
	a, err := NewAlerter(config.AlerterConfig{CheckInterval: "1m", Rules: rules}, models, n, clk)
	require.NoError(t, err)
	return a
}

func TestAlerter_Check(t *testing.T) {
	n := &recordingNotifier{}
	a := newAlerter(t, []config.AlerterRule{
		{Name: "jitter", Topic: "*", Metric: "jitter_ratio", Operator: ">", Threshold: 0.2},
		{Name: "big", Topic: "*", Metric: "size", Operator: ">=", Threshold: 65536},
		{Name: "imu-size", Topic: "/sensor/imu", Metric: "size", Operator: "<", Threshold: 100},
	}, n, clock.NewMock())

	// jitter: /chatter (0.5); /burst has no period and is skipped.
	// big: /burst. imu-size: /sensor/imu.
	assert.Equal(t, 3, a.Check())
	require.Equal(t, 1, n.count())
	assert.Equal(t, "Go2NetModel Alert Summary (3 Triggered)", n.subjects[0])
	assert.Contains(t, n.bodies[0], "<code>/chatter</code>")
	assert.Contains(t, n.bodies[0], "<code>/burst</code>")
	assert.Contains(t, n.bodies[0], "Alert: imu-size")
}

func TestAlerter_NoAlertsNoNotification(t *testing.T) {
	n := &recordingNotifier{}
	a := newAlerter(t, []config.AlerterRule{
		{Name: "slow", Topic: "/chatter", Metric: "period", Operator: ">", Threshold: 1},
	}, n, clock.NewMock())

	assert.Equal(t, 0, a.Check())
	assert.Equal(t, 0, n.count())
}

func TestAlerter_RunsOnTicker(t *testing.T) {
	n := &recordingNotifier{}
	mock := clock.NewMock()
	a := newAlerter(t, []config.AlerterRule{
		{Name: "any", Topic: "*", Metric: "sigma_t", Operator: ">", Threshold: 0},
	}, n, mock)

	a.Start()
	assert.Eventually(t, func() bool {
		mock.Add(time.Minute)
		return n.count() >= 1
	}, time.Second, 10*time.Millisecond)
	a.Stop()
	a.Stop()
}

func TestCheck_EqualUsesRelativeTolerance(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		threshold float64
		want      bool
	}{
		{"exact", 0.1, 0.1, true},
		{"rounding noise", 0.1 + 1e-12, 0.1, true},
		{"sum of tenths", 0.1 + 0.2, 0.3, true},
		{"large magnitude", 65536 * (1 + 1e-12), 65536, true},
		{"zero", 1e-12, 0, true},
		{"different", 0.1, 0.2, false},
		{"just outside", 0.1 + 1e-6, 0.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, check(tt.value, tt.threshold, "="))
		})
	}
}

func TestAlerter_EqualMatchesComputedMetric(t *testing.T) {
	n := &recordingNotifier{}
	a := newAlerter(t, []config.AlerterRule{
		// 0.0001/0.01 is not bit-exact 0.01 in float64.
		{Name: "imu-jitter", Topic: "/sensor/imu", Metric: "jitter_ratio", Operator: "=", Threshold: 0.01},
		{Name: "imu-other", Topic: "/sensor/imu", Metric: "jitter_ratio", Operator: "=", Threshold: 0.02},
	}, n, clock.NewMock())

	assert.Equal(t, 1, a.Check())
	require.Equal(t, 1, n.count())
	assert.Contains(t, n.bodies[0], "Alert: imu-jitter")
	assert.NotContains(t, n.bodies[0], "Alert: imu-other")
}

func TestNewAlerter_Validation(t *testing.T) {
	n := &recordingNotifier{}
	tests := []struct {
		name string
		cfg  config.AlerterConfig
	}{
		{"bad interval", config.AlerterConfig{CheckInterval: "often"}},
		{"zero interval", config.AlerterConfig{CheckInterval: "0s"}},
		{"bad metric", config.AlerterConfig{CheckInterval: "1m", Rules: []config.AlerterRule{{Metric: "bytes", Operator: ">"}}}},
		{"bad operator", config.AlerterConfig{CheckInterval: "1m", Rules: []config.AlerterRule{{Metric: "size", Operator: "!="}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAlerter(tt.cfg, models, n, nil)
			assert.Error(t, err)
		})
	}

	_, err := NewAlerter(config.AlerterConfig{CheckInterval: "1m"}, models, nil, nil)
	assert.Error(t, err)
}
