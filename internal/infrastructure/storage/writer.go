package storage

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"NewsAggregator/internal/infrastructure/metrics"
)

// DefaultDebounce is the coalescing window for file writes.
const DefaultDebounce = 500 * time.Millisecond

type writeState int

const (
	stateIdle writeState = iota
	statePending
	stateWriting
	statePendingAfterWrite
)

func (s writeState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePending:
		return "pending"
	case stateWriting:
		return "writing"
	case statePendingAfterWrite:
		return "pending-after-write"
	default:
		return fmt.Sprintf("writeState(%d)", int(s))
	}
}

// stopper is the part of *time.Timer the writer needs.
type stopper interface {
	Stop() bool
}

// afterFunc schedules f after d; time.AfterFunc in production.
type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// debouncedWriter mirrors a snapshot to disk with at most one write in flight.
// Mutations call schedule; the timer re-arms on every call while pending, and a
// schedule during a write is replayed once that write completes.
type debouncedWriter struct {
	store    string
	path     string
	delay    time.Duration
	snapshot func() ([]byte, error)
	write    func(path string, data []byte) error
	after    afterFunc
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	done   *sync.Cond
	state  writeState
	timer  stopper
	gen    uint64
	closed bool

	writes atomic.Int64
}

func newDebouncedWriter(store, path string, delay time.Duration, snapshot func() ([]byte, error), logger *slog.Logger, m *metrics.Metrics) *debouncedWriter {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	w := &debouncedWriter{
		store:    store,
		path:     path,
		delay:    delay,
		snapshot: snapshot,
		write:    writeFileAtomic,
		after:    realAfterFunc,
		logger:   logger,
		metrics:  m,
	}
	w.done = sync.NewCond(&w.mu)
	return w
}

// schedule requests a write of the current snapshot.
func (w *debouncedWriter) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	switch w.state {
	case stateIdle, statePending:
		w.arm()
		w.state = statePending
	case stateWriting:
		w.state = statePendingAfterWrite
	case statePendingAfterWrite:
	}
}

// arm replaces any pending timer. Callers hold mu.
func (w *debouncedWriter) arm() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.timer = w.after(w.delay, func() { w.fire(gen) })
}

func (w *debouncedWriter) fire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.state != statePending || w.closed {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.state = stateWriting
	w.mu.Unlock()

	_ = w.writeSnapshot()

	w.mu.Lock()
	w.finish()
	w.mu.Unlock()
}

// finish leaves the writing state. Callers hold mu.
func (w *debouncedWriter) finish() {
	if w.state == statePendingAfterWrite {
		w.state = statePending
		if !w.closed {
			w.arm()
		}
	} else {
		w.state = stateIdle
	}
	w.done.Broadcast()
}

func (w *debouncedWriter) writeSnapshot() error {
	data, err := w.snapshot()
	if err == nil {
		err = w.write(w.path, data)
	}
	w.metrics.StoreWrite(w.store, err)

	if err != nil {
		w.logger.Error("persist failed", "store", w.store, "path", w.path, "error", err)
		return fmt.Errorf("persist %s: %w", w.store, err)
	}

	w.writes.Add(1)
	w.logger.Debug("persisted", "store", w.store, "path", w.path, "bytes", len(data))
	return nil
}

// flush waits for any in-flight write and then writes synchronously if a
// write is still pending.
func (w *debouncedWriter) flush() error {
	w.mu.Lock()
	for w.state == stateWriting || w.state == statePendingAfterWrite {
		w.done.Wait()
	}
	if w.state == stateIdle {
		w.mu.Unlock()
		return nil
	}

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.gen++
	w.state = stateWriting
	w.mu.Unlock()

	err := w.writeSnapshot()

	w.mu.Lock()
	w.finish()
	w.mu.Unlock()
	return err
}

// close stops accepting schedules and flushes what is pending.
func (w *debouncedWriter) close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.flush()
}

func (w *debouncedWriter) currentState() writeState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// writeFileAtomic writes data to a .tmp sibling and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
