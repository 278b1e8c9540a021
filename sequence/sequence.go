/*Package sequence runs a frame-producing step function on a goroutine with a
start/stop/join contract.

A Thread moves Idle -> Running on Start, Running -> Stopping on Stop, and
back to Idle once the goroutine has exited.  The goroutine exits when the
step fails, the frame budget is spent, or Stop is observed; a thread whose
loop ended on its own is not Active even before Wait is called.
*/
package sequence

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrRunning is generated when Start is called on a thread that has not
	// returned to Idle
	ErrRunning = errors.New("sequence already running")

	// ErrDone may be returned by a step to end the sequence without error
	ErrDone = errors.New("sequence done")
)

// State is the lifecycle state of a Thread
type State int

const (
	// Idle means no goroutine is running
	Idle State = iota

	// Running means the loop is producing frames
	Running

	// Stopping means Stop was called and the loop has not exited yet
	Stopping
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	default:
		return "Idle"
	}
}

// StepFunc produces frame i.  ctx is cancelled when Stop is called
type StepFunc func(ctx context.Context, i int) error

// Config bounds a sequence
type Config struct {
	// Frames is the number of frames to produce, <= 0 for unbounded
	Frames int

	// Interval is the minimum spacing between the start of two steps, <= 0
	// for as fast as the step allows
	Interval time.Duration

	// OnExit, if not nil, is called on the goroutine with the error that
	// ended the loop.  The thread is Stopping while it runs, so no new run
	// can start until it returns
	OnExit func(err error)
}

// Thread is a restartable streaming task.  The zero value is an Idle thread
type Thread struct {
	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	count  int
}

// Start launches step on a new goroutine
func (t *Thread) Start(cfg Config, step StepFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Idle {
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.state = Running
	t.cancel = cancel
	t.done = make(chan struct{})
	t.err = nil
	t.count = 0

	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.Interval > 0 {
		lim = rate.NewLimiter(rate.Every(cfg.Interval), 1)
	}
	go t.loop(ctx, cfg.Frames, lim, step, cfg.OnExit, t.done)
	return nil
}

func (t *Thread) loop(ctx context.Context, frames int, lim *rate.Limiter, step StepFunc, onExit func(error), done chan struct{}) {
	var err error
	defer func() {
		t.mu.Lock()
		t.state = Stopping
		t.cancel()
		t.mu.Unlock()
		if onExit != nil {
			onExit(err)
		}
		t.mu.Lock()
		t.err = err
		t.state = Idle
		t.mu.Unlock()
		close(done)
	}()
	for i := 0; frames <= 0 || i < frames; i++ {
		if lim.Wait(ctx) != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		if serr := step(ctx, i); serr != nil {
			if !errors.Is(serr, ErrDone) {
				err = serr
			}
			return
		}
		t.mu.Lock()
		t.count++
		t.mu.Unlock()
	}
}

// Stop raises the stop flag.  It does not wait; use Wait to join
func (t *Thread) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Running {
		t.state = Stopping
		t.cancel()
	}
}

// Wait blocks until the goroutine has exited and returns the error that
// ended it, if any.  It returns immediately on a thread never started
func (t *Thread) Wait() error {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// State returns the lifecycle state
func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Active is true while the loop is running and has not been asked to stop
func (t *Thread) Active() bool {
	return t.State() == Running
}

// Count is the number of steps completed by the current or last run
func (t *Thread) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}
