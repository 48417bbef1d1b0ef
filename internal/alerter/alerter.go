// Package alerter evaluates the current traffic models against configured
// rules and sends one consolidated notification per check.
package alerter

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"Go2NetModel/internal/config"
	"Go2NetModel/internal/model"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

// ModelSource provides the latest published models.
type ModelSource interface {
	Models() []model.Snapshot
}

// metricValue extracts a rule metric from a model. ok is false when the
// metric is undefined for s.
type metricValue func(s model.Snapshot) (v float64, ok bool)

var metrics = map[string]struct {
	value metricValue
	unit  string
}{
	"period":  {func(s model.Snapshot) (float64, bool) { return s.A, true }, "s"},
	"offset":  {func(s model.Snapshot) (float64, bool) { return s.B, true }, "s"},
	"sigma_t": {func(s model.Snapshot) (float64, bool) { return s.SigmaT, true }, "s"},
	"size":    {func(s model.Snapshot) (float64, bool) { return s.S, true }, "B"},
	"sigma_s": {func(s model.Snapshot) (float64, bool) { return s.SigmaS, true }, "B"},
	"jitter_ratio": {func(s model.Snapshot) (float64, bool) {
		if s.A <= 0 || math.IsInf(s.A, 0) || math.IsNaN(s.A) {
			return 0, false
		}
		return s.SigmaT / s.A, true
	}, ""},
}

// Alerter is responsible for evaluating models against predefined rules
// and triggering notifications if rules are violated.
type Alerter struct {
	models        ModelSource
	rules         []config.AlerterRule
	notifier      model.Notifier
	checkInterval time.Duration
	clk           clock.Clock

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAlerter creates a new Alerter instance. A nil clk uses the wall clock.
func NewAlerter(cfg config.AlerterConfig, models ModelSource, notifier model.Notifier, clk clock.Clock) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval for alerter: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("alerter check_interval must be positive")
	}
	if notifier == nil {
		return nil, fmt.Errorf("alerter needs a notifier")
	}
	for _, r := range cfg.Rules {
		if _, ok := metrics[r.Metric]; !ok {
			return nil, fmt.Errorf("rule %q: unknown metric %q", r.Name, r.Metric)
		}
		if !validOperator(r.Operator) {
			return nil, fmt.Errorf("rule %q: unknown operator %q", r.Name, r.Operator)
		}
	}
	if clk == nil {
		clk = clock.New()
	}

	return &Alerter{
		models:        models,
		rules:         cfg.Rules,
		notifier:      notifier,
		checkInterval: interval,
		clk:           clk,
		stopChan:      make(chan struct{}),
	}, nil
}

// Start begins the periodic evaluation of alert rules in the background.
func (a *Alerter) Start() {
	a.wg.Add(1)
	go a.run()
	log.Printf("Alerter started with %d rules every %s", len(a.rules), a.checkInterval)
}

func (a *Alerter) run() {
	defer a.wg.Done()

	ticker := a.clk.Ticker(a.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.Check()
		case <-a.stopChan:
			return
		}
	}
}

// Stop ends the evaluation loop.
func (a *Alerter) Stop() {
	a.stopOnce.Do(func() {
		log.Println("Stopping Alerter...")
		close(a.stopChan)
		a.wg.Wait()
	})
}

// Check evaluates every rule once and sends a notification if any fired.
// It returns the number of triggered alerts.
func (a *Alerter) Check() int {
	messages := a.evaluate(a.models.Models())
	if len(messages) == 0 {
		return 0
	}

	log.Printf("Alerter evaluation completed. %d alert(s) triggered.", len(messages))

	body := "<h1>Go2NetModel Alert Summary</h1>" +
		"<p>The following alerts were triggered during the last check:</p><hr>" +
		strings.Join(messages, "<hr>")
	subject := fmt.Sprintf("Go2NetModel Alert Summary (%d Triggered)", len(messages))
	if err := a.notifier.Send(subject, body); err != nil {
		log.Errorf("Failed to send consolidated alert notification: %v", err)
	} else {
		log.Println("Consolidated alert notification sent successfully.")
	}
	return len(messages)
}

func (a *Alerter) evaluate(models []model.Snapshot) []string {
	var triggered []string
	for _, rule := range a.rules {
		m := metrics[rule.Metric]
		for _, s := range models {
			if rule.Topic != "*" && rule.Topic != s.ID {
				continue
			}
			v, ok := m.value(s)
			if !ok || !check(v, rule.Threshold, rule.Operator) {
				continue
			}
			triggered = append(triggered, fmt.Sprintf("<h3>Alert: %s</h3>"+
				"<ul>"+
				"<li><b>Topic:</b> <code>%s</code></li>"+
				"<li><b>Metric:</b> <code>%s</code></li>"+
				"<li><b>Condition:</b> <code>%s %g</code></li>"+
				"<li><b>Observed Value:</b> <code>%.6g%s</code></li>"+
				"</ul>",
				rule.Name, s.ID, rule.Metric, rule.Operator, rule.Threshold, v, m.unit))
		}
	}
	return triggered
}

func validOperator(op string) bool {
	switch op {
	case ">", "<", "=", ">=", "<=":
		return true
	}
	return false
}

// equalTolerance is the relative slack for "=", since fitted metrics are
// never bit-exact.
const equalTolerance = 1e-9

// check compares a value against a threshold based on an operator.
func check(value, threshold float64, operator string) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case "=":
		return math.Abs(value-threshold) <= equalTolerance*math.Max(1, math.Abs(threshold))
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	default:
		return false
	}
}
