// Package worker implements the periodic background task owned by the
// background process.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the heartbeat period of the background worker.
const DefaultInterval = 5 * time.Second

// State is the lifecycle state of a Worker.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	default:
		return "stopped"
	}
}

// BeatFunc is called once per heartbeat with the running beat count.
type BeatFunc func(n uint64)

// Worker runs a heartbeat loop between Start and Stop.
type Worker struct {
	interval time.Duration
	beat     BeatFunc
	logger   *zap.Logger

	mu    sync.RWMutex
	state State
	stop  chan struct{}
	done  chan struct{}
	beats uint64
}

// New creates a stopped worker. A non-positive interval uses DefaultInterval.
func New(interval time.Duration, beat BeatFunc, logger *zap.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		interval: interval,
		beat:     beat,
		logger:   logger,
	}
}

// Start moves the worker to Running and spawns its loop. Calling Start on
// a running worker does nothing.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == Running {
		return
	}
	w.state = Running
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	go w.loop(w.stop, w.done)
	w.logger.Info("worker started", zap.Duration("interval", w.interval))
}

// Stop moves the worker to Stopped and waits for the loop to exit, or for
// ctx to end.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.state == Stopped {
		done := w.done
		w.mu.Unlock()
		return wait(ctx, done)
	}
	w.state = Stopped
	close(w.stop)
	done := w.done
	w.mu.Unlock()

	if err := wait(ctx, done); err != nil {
		return err
	}
	w.logger.Info("worker stopped")
	return nil
}

// IsRunning reports whether the worker is in the Running state.
func (w *Worker) IsRunning() bool {
	return w.State() == Running
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Beats returns the number of heartbeats emitted so far.
func (w *Worker) Beats() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.beats
}

func (w *Worker) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		w.mu.Lock()
		if w.state != Running {
			w.mu.Unlock()
			return
		}
		w.beats++
		n := w.beats
		w.mu.Unlock()

		w.logger.Debug("heartbeat", zap.Uint64("beat", n))
		if w.beat != nil {
			w.beat(n)
		}
	}
}

func wait(ctx context.Context, done <-chan struct{}) error {
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
