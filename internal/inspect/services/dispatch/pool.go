// Package dispatch runs inspection tasks on a fixed set of workers.
//
// A Pool moves through three states: ACCEPTING while the record source is
// submitting, DRAINING once DrainAndAwait closed admission, and STOPPED when
// every queued task finished or the drain timeout elapsed.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haukened/rr-inspect/internal/inspect/common/log"
)

const (
	// DefaultWorkers is the worker count used when Options.Workers <= 0.
	DefaultWorkers = 4
	// DefaultQueueSize is the backlog used when Options.QueueSize <= 0.
	DefaultQueueSize = 1024
)

var (
	// ErrNotAccepting is returned by Submit outside the ACCEPTING state and
	// by a second DrainAndAwait.
	ErrNotAccepting = errors.New("pool is not accepting tasks")
	// ErrDrainTimeout is returned when tasks were still pending at the
	// drain deadline.
	ErrDrainTimeout = errors.New("drain timeout exceeded")
)

// Task is a unit of work. Run must not block indefinitely; panics are
// recovered by the pool and counted as faults.
type Task interface {
	Run(ctx context.Context)
}

// State is the lifecycle state of a Pool.
type State int32

const (
	StateAccepting State = iota
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateAccepting:
		return "ACCEPTING"
	case StateDraining:
		return "DRAINING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Options configures a Pool.
type Options struct {
	Workers   int
	QueueSize int
	Logger    log.Logger
}

// Counts reports task accounting. Abandoned is only set by DrainAndAwait.
type Counts struct {
	Submitted int64
	Completed int64
	Faulted   int64
	InFlight  int64
	Abandoned int64
}

// faultReporter is implemented by panic values that carry their own context.
type faultReporter interface {
	LogFields() map[string]any
}

// Pool is a fixed-size worker pool fed by a bounded queue. Submit blocks
// while the queue is full, so no submitted task is ever dropped.
type Pool struct {
	workers int
	logger  log.Logger

	mu    sync.RWMutex // serializes Submit against the close of queue
	queue chan Task
	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	submitted atomic.Int64
	completed atomic.Int64
	faulted   atomic.Int64
	inFlight  atomic.Int64
}

// New starts a pool in the ACCEPTING state. Cancelling ctx stops the
// workers after their current task; queued tasks are then abandoned.
func New(ctx context.Context, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}

	pctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		workers: opts.Workers,
		logger:  opts.Logger,
		queue:   make(chan Task, opts.QueueSize),
		ctx:     pctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(pctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			p.work(gctx)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(p.done)
	}()

	p.logger.Debug(map[string]any{
		"workers":    p.workers,
		"queue_size": opts.QueueSize,
	}, "Dispatch pool started")
	return p
}

// Submit enqueues a task, blocking while the queue is full. It fails with
// ErrNotAccepting once draining began or the pool's context was cancelled.
func (p *Pool) Submit(t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.State() != StateAccepting {
		return ErrNotAccepting
	}
	select {
	case p.queue <- t:
		p.submitted.Add(1)
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("%w: %v", ErrNotAccepting, p.ctx.Err())
	}
}

// DrainAndAwait stops admission and waits for queued and in-flight tasks.
// If timeout elapses first (timeout <= 0 waits forever), the workers'
// context is cancelled, the remaining tasks are abandoned and
// ErrDrainTimeout is returned along with the counts.
func (p *Pool) DrainAndAwait(timeout time.Duration) (Counts, error) {
	p.mu.Lock()
	if p.State() != StateAccepting {
		p.mu.Unlock()
		return p.Counts(), ErrNotAccepting
	}
	p.state.Store(int32(StateDraining))
	close(p.queue)
	p.mu.Unlock()

	p.logger.Debug(map[string]any{"queued": len(p.queue), "in_flight": p.inFlight.Load()}, "Dispatch pool draining")

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-p.done:
		cause := context.Cause(p.ctx)
		p.cancel()
		p.state.Store(int32(StateStopped))
		c := p.Counts()
		c.Abandoned = c.Submitted - c.Completed - c.Faulted
		if c.Abandoned > 0 {
			// workers stopped early because the parent context was cancelled
			return c, fmt.Errorf("pool cancelled with %d tasks pending: %w", c.Abandoned, cause)
		}
		return c, nil
	case <-deadline:
		p.cancel()
		p.state.Store(int32(StateStopped))
		c := p.Counts()
		c.Abandoned = c.Submitted - c.Completed - c.Faulted
		p.logger.Warn(map[string]any{
			"timeout":   timeout.String(),
			"abandoned": c.Abandoned,
			"in_flight": c.InFlight,
			"completed": c.Completed,
		}, "Drain timeout exceeded, abandoning tasks")
		return c, ErrDrainTimeout
	}
}

// State returns the current lifecycle state.
func (p *Pool) State() State { return State(p.state.Load()) }

// Workers returns the fixed worker count.
func (p *Pool) Workers() int { return p.workers }

// Counts returns the current task accounting.
func (p *Pool) Counts() Counts {
	return Counts{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Faulted:   p.faulted.Load(),
		InFlight:  p.inFlight.Load(),
	}
}

func (p *Pool) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			p.run(ctx, t)
		}
	}
}

// run executes one task, isolating its panic from the other workers.
func (p *Pool) run(ctx context.Context, t Task) {
	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	defer func() {
		r := recover()
		if r == nil {
			p.completed.Add(1)
			return
		}
		p.faulted.Add(1)

		fields := map[string]any{}
		if fr, ok := r.(faultReporter); ok {
			fields = fr.LogFields()
		} else {
			fields["cause"] = fmt.Sprint(r)
		}
		fields["stack"] = string(debug.Stack())
		p.logger.Error(fields, "Inspection task failed")
	}()

	t.Run(ctx)
}
