// Package writer stores published traffic models in ClickHouse.
package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"Go2NetModel/internal/config"
	"Go2NetModel/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS %s (
    Timestamp   DateTime64(3),
    Session     String,
    Topic       String,
    A           Float64,
    B           Float64,
    SigmaT      Float64,
    S           Float64,
    SigmaS      Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Topic, Timestamp);
`

var (
	// ErrQueueFull is returned by Publish when the writer cannot keep up.
	ErrQueueFull = errors.New("clickhouse writer queue is full")

	// ErrWriterClosed is returned by Publish after Close.
	ErrWriterClosed = errors.New("clickhouse writer is closed")
)

type row struct {
	at       time.Time
	snapshot model.Snapshot
}

// inserter writes a batch of rows to the store.
type inserter interface {
	insert(ctx context.Context, rows []row) error
	close() error
}

// ClickHouseWriter is a model.Sink that appends every published model to a
// ClickHouse table. Publish only enqueues; a background loop inserts in
// batches of BatchSize or every FlushInterval, whichever comes first.
type ClickHouseWriter struct {
	ins       inserter
	clk       clock.Clock
	queue     chan row
	batchSize int
	interval  time.Duration

	closed    atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewClickHouseWriter connects to ClickHouse, ensures the model table exists
// and starts the insert loop.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	interval, err := time.ParseDuration(cfg.FlushInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid flush_interval for clickhouse writer: %w", err)
	}

	conn, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), fmt.Sprintf(createTableStatement, cfg.Table)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create %s table: %w", cfg.Table, err)
	}
	log.Printf("Successfully connected to ClickHouse and ensured %s table exists.", cfg.Table)

	ins := &clickhouseInserter{conn: conn, table: cfg.Table, session: uuid.NewString()}
	return newClickHouseWriter(ins, clock.New(), cfg.BatchSize, cfg.QueueSize, interval), nil
}

func newClickHouseWriter(ins inserter, clk clock.Clock, batchSize, queueSize int, interval time.Duration) *ClickHouseWriter {
	if batchSize <= 0 {
		batchSize = 1
	}
	if queueSize <= 0 {
		queueSize = batchSize
	}
	w := &ClickHouseWriter{
		ins:       ins,
		clk:       clk,
		queue:     make(chan row, queueSize),
		batchSize: batchSize,
		interval:  interval,
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Connect opens and pings a ClickHouse connection.
func Connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Publish enqueues s for insertion.
func (w *ClickHouseWriter) Publish(s model.Snapshot) error {
	if w.closed.Load() {
		return ErrWriterClosed
	}
	select {
	case w.queue <- row{at: w.clk.Now(), snapshot: s}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close flushes queued rows and closes the connection.
func (w *ClickHouseWriter) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.done)
		w.wg.Wait()
		err = w.ins.close()
	})
	return err
}

func (w *ClickHouseWriter) run() {
	defer w.wg.Done()

	ticker := w.clk.Ticker(w.interval)
	defer ticker.Stop()

	batch := make([]row, 0, w.batchSize)
	for {
		select {
		case r := <-w.queue:
			batch = append(batch, r)
			if len(batch) >= w.batchSize {
				batch = w.flush(batch)
			}
		case <-ticker.C:
			batch = w.flush(batch)
		case <-w.done:
			for {
				select {
				case r := <-w.queue:
					batch = append(batch, r)
				default:
					w.flush(batch)
					return
				}
			}
		}
	}
}

func (w *ClickHouseWriter) flush(batch []row) []row {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.ins.insert(ctx, batch); err != nil {
		log.Printf("Error writing %d traffic models to ClickHouse: %v", len(batch), err)
	} else {
		log.Debugf("Wrote %d traffic models to ClickHouse", len(batch))
	}
	return batch[:0]
}

type clickhouseInserter struct {
	conn    driver.Conn
	table   string
	session string
}

func (c *clickhouseInserter) insert(ctx context.Context, rows []row) error {
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+c.table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, r := range rows {
		s := r.snapshot
		if err := batch.Append(r.at, c.session, s.ID, s.A, s.B, s.SigmaT, s.S, s.SigmaS); err != nil {
			return fmt.Errorf("failed to append traffic model to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (c *clickhouseInserter) close() error {
	return c.conn.Close()
}
