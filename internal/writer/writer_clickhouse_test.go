package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Go2NetModel/internal/model"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInserter struct {
	mu      sync.Mutex
	batches [][]row
	closed  bool
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeInserter) insert(_ context.Context, rows []row) error {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]row, len(rows))
	copy(cp, rows)
	f.batches = append(f.batches, cp)
	return f.err
}

func (f *fakeInserter) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeInserter) rows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func (f *fakeInserter) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func snapshot(id string) model.Snapshot {
	return model.Snapshot{ID: id, A: 0.1, B: 2, SigmaT: 0.01, S: 64, SigmaS: 1}
}

func TestClickHouseWriter_FlushesFullBatch(t *testing.T) {
	ins := &fakeInserter{}
	w := newClickHouseWriter(ins, clock.NewMock(), 3, 10, time.Minute)
	defer w.Close()

	for _, id := range []string{"/a", "/b", "/c"} {
		require.NoError(t, w.Publish(snapshot(id)))
	}

	assert.Eventually(t, func() bool { return ins.rows() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, ins.batchCount())
}

func TestClickHouseWriter_FlushesOnInterval(t *testing.T) {
	ins := &fakeInserter{}
	mock := clock.NewMock()
	w := newClickHouseWriter(ins, mock, 100, 10, time.Second)
	defer w.Close()

	require.NoError(t, w.Publish(snapshot("/a")))
	require.NoError(t, w.Publish(snapshot("/b")))

	assert.Eventually(t, func() bool {
		mock.Add(time.Second)
		return ins.rows() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestClickHouseWriter_CloseFlushesRemainder(t *testing.T) {
	ins := &fakeInserter{}
	w := newClickHouseWriter(ins, clock.NewMock(), 100, 10, time.Hour)

	require.NoError(t, w.Publish(snapshot("/a")))
	require.NoError(t, w.Close())

	assert.Equal(t, 1, ins.rows())
	assert.True(t, ins.closed)

	ins.mu.Lock()
	got := ins.batches[0][0].snapshot
	ins.mu.Unlock()
	assert.Equal(t, snapshot("/a"), got)
}

func TestClickHouseWriter_PublishAfterClose(t *testing.T) {
	w := newClickHouseWriter(&fakeInserter{}, clock.NewMock(), 1, 1, time.Hour)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.Publish(snapshot("/a")), ErrWriterClosed)
}

func TestClickHouseWriter_QueueFull(t *testing.T) {
	ins := &fakeInserter{entered: make(chan struct{}, 4), release: make(chan struct{})}
	w := newClickHouseWriter(ins, clock.NewMock(), 1, 1, time.Hour)

	// The first row is taken by the loop and blocks inside insert.
	require.NoError(t, w.Publish(snapshot("/a")))
	<-ins.entered

	require.NoError(t, w.Publish(snapshot("/b")))
	assert.ErrorIs(t, w.Publish(snapshot("/c")), ErrQueueFull)

	close(ins.release)
	require.NoError(t, w.Close())
	assert.Equal(t, 2, ins.rows())
}

func TestClickHouseWriter_InsertErrorKeepsRunning(t *testing.T) {
	ins := &fakeInserter{err: errors.New("connection reset")}
	w := newClickHouseWriter(ins, clock.NewMock(), 1, 10, time.Hour)
	defer w.Close()

	require.NoError(t, w.Publish(snapshot("/a")))
	require.NoError(t, w.Publish(snapshot("/b")))

	assert.Eventually(t, func() bool { return ins.batchCount() == 2 }, time.Second, 5*time.Millisecond)
}
