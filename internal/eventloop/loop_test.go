package eventloop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeController struct {
	mu       sync.Mutex
	calls    []string
	startErr error
}

func (f *fakeController) StartUI(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "StartUI")
	return f.startErr
}

func (f *fakeController) StopAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "StopAll")
	return nil
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func runLoop(t *testing.T, ctx context.Context, events chan Event, ctrl Controller) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		Loop(ctx, events, ctrl, LoopConfig{QuitSettle: 10 * time.Millisecond})
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not return")
	}
}

func TestLoopOpenThenQuit(t *testing.T) {
	ctrl := &fakeController{}
	events := make(chan Event, 4)
	events <- Event{Kind: EventOpen}
	events <- Event{Kind: EventKind(99)}
	events <- Event{Kind: EventOpen}
	events <- Event{Kind: EventQuit}

	waitDone(t, runLoop(t, context.Background(), events, ctrl))
	assert.Equal(t, []string{"StartUI", "StartUI", "StopAll"}, ctrl.Calls())
}

func TestLoopContinuesAfterStartFailure(t *testing.T) {
	ctrl := &fakeController{startErr: errors.New("spawn failed")}
	events := make(chan Event, 2)
	events <- Event{Kind: EventOpen}
	events <- Event{Kind: EventQuit}

	waitDone(t, runLoop(t, context.Background(), events, ctrl))
	assert.Equal(t, []string{"StartUI", "StopAll"}, ctrl.Calls())
}

func TestLoopStopsAllOnCancel(t *testing.T) {
	ctrl := &fakeController{}
	ctx, cancel := context.WithCancel(context.Background())
	done := runLoop(t, ctx, make(chan Event), ctrl)

	cancel()
	waitDone(t, done)
	assert.Equal(t, []string{"StopAll"}, ctrl.Calls())
}

func TestLoopStopsAllWhenEventsClosed(t *testing.T) {
	ctrl := &fakeController{}
	events := make(chan Event)
	done := runLoop(t, context.Background(), events, ctrl)

	close(events)
	waitDone(t, done)
	assert.Equal(t, []string{"StopAll"}, ctrl.Calls())
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "open", EventOpen.String())
	assert.Equal(t, "quit", EventQuit.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}
