// Package metrics exposes collector activity as Prometheus metrics.
package metrics

import (
	"Go2NetModel/internal/model"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "netmodel"

// Recorder holds the collector metric vectors. A nil *Recorder is valid and
// records nothing, so collectors built without metrics need no checks.
type Recorder struct {
	messages        *prometheus.CounterVec
	recomputes      *prometheus.CounterVec
	publishes       *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	clockErrors     *prometheus.CounterVec
	parameters      *prometheus.GaugeVec
}

// NewRecorder creates the metric vectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "messages_total",
				Help:      "Messages observed by the collector",
			},
			[]string{"topic"},
		),
		recomputes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "recomputes_total",
				Help:      "Accepted model fits, by model half (time or size)",
			},
			[]string{"topic", "model"},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "publishes_total",
				Help:      "Model snapshots handed to the sink",
			},
			[]string{"topic"},
		),
		publishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "publish_failures_total",
				Help:      "Model snapshots the sink failed to accept",
			},
			[]string{"topic"},
		),
		clockErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "clock_errors_total",
				Help:      "Messages dropped because the clock could not be read",
			},
			[]string{"topic"},
		),
		parameters: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "collector",
				Name:      "model_parameter",
				Help:      "Latest published model parameters",
			},
			[]string{"topic", "param"},
		),
	}

	for _, c := range []prometheus.Collector{r.messages, r.recomputes, r.publishes, r.publishFailures, r.clockErrors, r.parameters} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Message counts one observed message.
func (r *Recorder) Message(topic string) {
	if r == nil {
		return
	}
	r.messages.WithLabelValues(topic).Inc()
}

// Recompute counts one accepted fit of the named model half.
func (r *Recorder) Recompute(topic, half string) {
	if r == nil {
		return
	}
	r.recomputes.WithLabelValues(topic, half).Inc()
}

// Published records a successful hand-off and the parameters that went out.
func (r *Recorder) Published(s model.Snapshot) {
	if r == nil {
		return
	}
	r.publishes.WithLabelValues(s.ID).Inc()
	r.parameters.WithLabelValues(s.ID, "a").Set(s.A)
	r.parameters.WithLabelValues(s.ID, "b").Set(s.B)
	r.parameters.WithLabelValues(s.ID, "sigma_t").Set(s.SigmaT)
	r.parameters.WithLabelValues(s.ID, "s").Set(s.S)
	r.parameters.WithLabelValues(s.ID, "sigma_s").Set(s.SigmaS)
}

// PublishFailed counts one rejected hand-off.
func (r *Recorder) PublishFailed(topic string) {
	if r == nil {
		return
	}
	r.publishFailures.WithLabelValues(topic).Inc()
}

// ClockError counts one dropped message.
func (r *Recorder) ClockError(topic string) {
	if r == nil {
		return
	}
	r.clockErrors.WithLabelValues(topic).Inc()
}
