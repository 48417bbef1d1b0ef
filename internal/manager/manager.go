// Package manager runs one collector per endpoint and the shared sinks and
// snapshot loops around them.
package manager

import (
	"fmt"
	"sort"
	"sync"

	"Go2NetModel/internal/collector"
	"Go2NetModel/internal/config"
	"Go2NetModel/internal/model"
	"Go2NetModel/internal/sink"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const snapshotTimeFormat = "2006-01-02_15-04-05"

// Status describes one endpoint for the query API.
type Status struct {
	Topic    string          `json:"topic"`
	State    string          `json:"state"`
	Messages uint64          `json:"messages"`
	Model    *model.Snapshot `json:"model,omitempty"`
}

// endpoint serializes access to one collector. NATS already delivers a
// subscription's messages on a single goroutine; the lock also orders them
// against status reads and Stop.
type endpoint struct {
	mu sync.Mutex
	c  *collector.Collector
}

// Manager orchestrates the collectors, the shared sink and the snapshot writers.
type Manager struct {
	cfg      collector.Config
	collOpts []collector.Option
	lazy     bool
	writers  []model.Writer
	clk      clock.Clock

	registry *Registry
	out      *sink.Fanout

	mu        sync.RWMutex
	endpoints map[string]*endpoint
	stopped   bool

	done          chan struct{}
	snapshotterWg sync.WaitGroup
}

// Option customizes a Manager.
type Option func(*Manager)

// WithCollectorOptions passes opts to every collector the manager creates.
func WithCollectorOptions(opts ...collector.Option) Option {
	return func(m *Manager) {
		m.collOpts = append(m.collOpts, opts...)
	}
}

// WithLazyEndpoints creates a collector on the first arrival for an unknown topic.
func WithLazyEndpoints() Option {
	return func(m *Manager) {
		m.lazy = true
	}
}

// WithWriter adds a periodic snapshot writer.
func WithWriter(w model.Writer) Option {
	return func(m *Manager) {
		if w != nil {
			m.writers = append(m.writers, w)
		}
	}
}

// WithClock sets the clock driving the snapshot tickers.
func WithClock(clk clock.Clock) Option {
	return func(m *Manager) {
		m.clk = clk
	}
}

// CollectorConfig converts the estimator section of the configuration.
func CollectorConfig(e config.EstimatorConfig) collector.Config {
	return collector.Config{
		Capacity:        e.Capacity,
		Warmup:          e.Warmup,
		FreshnessWindow: e.FreshnessWindowDuration(),
		SigmaThreshold:  e.SigmaThreshold,
		TimeTolerance:   e.TimeTolerance,
		SizeTolerance:   e.SizeTolerance,
	}
}

// NewManager creates a manager whose collectors publish to out and to the
// manager's own registry. The manager takes ownership of out and closes it in Stop.
func NewManager(cfg collector.Config, out model.Sink, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid estimator config: %w", err)
	}

	m := &Manager{
		cfg:       cfg,
		clk:       clock.New(),
		registry:  NewRegistry(),
		endpoints: make(map[string]*endpoint),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.out = sink.NewFanout(m.registry, out)
	return m, nil
}

// AddEndpoint creates the collector for topic.
func (m *Manager) AddEndpoint(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.addLocked(topic)
	return err
}

func (m *Manager) addLocked(topic string) (*endpoint, error) {
	if m.stopped {
		return nil, ErrStopped
	}
	if _, ok := m.endpoints[topic]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTopic, topic)
	}

	opts := append([]collector.Option{collector.WithConfig(m.cfg)}, m.collOpts...)
	c, err := collector.New(topic, sink.NopCloser(m.out), opts...)
	if err != nil {
		return nil, err
	}
	ep := &endpoint{c: c}
	m.endpoints[topic] = ep
	log.Printf("Registered endpoint %s", topic)
	return ep, nil
}

func (m *Manager) lookup(topic string) (*endpoint, error) {
	m.mu.RLock()
	ep, ok := m.endpoints[topic]
	stopped := m.stopped
	m.mu.RUnlock()
	if stopped {
		return nil, ErrStopped
	}
	if ok {
		return ep, nil
	}
	if !m.lazy {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ep, ok := m.endpoints[topic]; ok {
		return ep, nil
	}
	return m.addLocked(topic)
}

// HandleMessage feeds one arrival of size bytes to the collector for topic.
func (m *Manager) HandleMessage(topic string, size uint) error {
	ep, err := m.lookup(topic)
	if err != nil {
		return err
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.c.OnMessage(size)
}

// Handler returns a function bound to topic that logs arrival errors instead
// of returning them, for use as a subscription callback.
func (m *Manager) Handler(topic string) func(size int) {
	return func(size int) {
		if size < 0 {
			size = 0
		}
		if err := m.HandleMessage(topic, uint(size)); err != nil {
			log.WithField("topic", topic).Warnf("Dropped arrival: %v", err)
		}
	}
}

// Topics returns the registered topics in order.
func (m *Manager) Topics() []string {
	m.mu.RLock()
	topics := make([]string, 0, len(m.endpoints))
	for t := range m.endpoints {
		topics = append(topics, t)
	}
	m.mu.RUnlock()
	sort.Strings(topics)
	return topics
}

// Models returns the latest published model of every topic.
func (m *Manager) Models() []model.Snapshot {
	return m.registry.All()
}

// Model returns the latest published model for topic.
func (m *Manager) Model(topic string) (model.Snapshot, bool) {
	return m.registry.Get(topic)
}

// Status reports the collector state for topic.
func (m *Manager) Status(topic string) (Status, bool) {
	m.mu.RLock()
	ep, ok := m.endpoints[topic]
	m.mu.RUnlock()
	if !ok {
		return Status{}, false
	}

	ep.mu.Lock()
	st := Status{Topic: topic, State: ep.c.State().String(), Messages: ep.c.Count()}
	ep.mu.Unlock()

	if s, ok := m.registry.Get(topic); ok {
		st.Model = &s
	}
	return st, true
}

// Start begins a snapshot loop for each writer.
func (m *Manager) Start() {
	for _, w := range m.writers {
		m.snapshotterWg.Add(1)
		go m.runSnapshotter(w)
		log.Printf("Started snapshotter with interval %s", w.GetInterval())
	}
}

func (m *Manager) runSnapshotter(w model.Writer) {
	defer m.snapshotterWg.Done()
	interval := w.GetInterval()
	if interval <= 0 {
		log.Printf("Invalid interval %s for writer, snapshotter will not run.", interval)
		return
	}
	ticker := m.clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.takeSnapshot(w)
		case <-m.done:
			m.takeSnapshot(w)
			return
		}
	}
}

func (m *Manager) takeSnapshot(w model.Writer) {
	timestamp := m.clk.Now().Format(snapshotTimeFormat)
	models := m.registry.All()
	if err := w.Write(models, timestamp); err != nil {
		log.Printf("Error writing snapshot at %s: %v", timestamp, err)
		return
	}
	log.Debugf("Wrote snapshot of %d models at %s", len(models), timestamp)
}

// Stop takes a final snapshot, finalizes every collector and closes the
// shared sinks. Later calls return ErrStopped.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	m.stopped = true
	endpoints := m.endpoints
	m.mu.Unlock()

	log.Println("Manager stopping...")
	close(m.done)
	m.snapshotterWg.Wait()

	var err error
	for topic, ep := range endpoints {
		ep.mu.Lock()
		if ferr := ep.c.Finalize(); ferr != nil {
			err = multierr.Append(err, fmt.Errorf("finalize %s: %w", topic, ferr))
		}
		ep.mu.Unlock()
	}
	err = multierr.Append(err, m.out.Close())

	log.Println("Manager stopped.")
	return err
}
