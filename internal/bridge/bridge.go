// Package bridge lets the query pipeline be invoked from both
// asynchronous call sites (the chat loop, which can wait on a channel)
// and synchronous call sites (the webhook handler) without deadlock.
//
// The bridge owns a single dispatcher goroutine with a task queue; it
// plays the role of the process's one cooperative loop for pipeline
// work. A synchronous caller is classified into exactly one of three
// states before a strategy is chosen:
//
//  1. the dispatcher is not running: the task executes on a fresh,
//     throwaway worker goroutine;
//  2. the dispatcher is running and the caller is outside any
//     bridge-managed task: the task is enqueued and the caller blocks
//     for its outcome;
//  3. the caller is itself inside a bridge-managed task (detected via
//     an explicit context marker, never guessed): the task is handed
//     to a dedicated worker goroutine so a nested call never depends
//     on the dispatcher at all.
//
// The dispatcher fans each accepted job out to its own worker, so
// concurrent callers interleave during the embedding and generation
// network calls instead of queuing behind whichever one is in flight.
package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/campushelp/faq-bot/internal/pkg/errors"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
)

// Task is a unit of pipeline work.
type Task func(ctx context.Context) (any, error)

// Outcome is the result of a completed task.
type Outcome struct {
	Value any
	Err   error
}

type job struct {
	ctx  context.Context
	task Task
	out  chan Outcome
}

type taskMarkerKey struct{}

// insideTask reports whether ctx belongs to a bridge-managed task.
func insideTask(ctx context.Context) bool {
	v, _ := ctx.Value(taskMarkerKey{}).(bool)
	return v
}

// Bridge executes tasks on a single dispatcher goroutine and arbitrates
// between synchronous and asynchronous call sites.
type Bridge struct {
	log *logger.Logger

	mu      sync.Mutex
	jobs    chan job
	done    chan struct{}
	started bool
	closed  bool
}

// New creates a bridge. Start must be called before Submit is useful;
// Run works either way.
func New(log *logger.Logger) *Bridge {
	return &Bridge{
		log:  log,
		jobs: make(chan job),
		done: make(chan struct{}),
	}
}

// Start launches the dispatcher goroutine. Starting twice is a no-op.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started || b.closed {
		return
	}
	b.started = true

	go b.dispatch()
}

// Close stops the dispatcher. Tasks already running complete; queued
// tasks are drained and failed. Close from inside a bridge-managed
// task is misuse and is refused.
func (b *Bridge) Close(ctx context.Context) error {
	if insideTask(ctx) {
		return errors.BridgeMisuseError("close called from inside a bridge task")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.started {
		close(b.done)
	}
	return nil
}

func (b *Bridge) dispatch() {
	for {
		select {
		case <-b.done:
			// Drain queued jobs so no caller blocks forever.
			for {
				select {
				case j := <-b.jobs:
					j.out <- Outcome{Err: errors.New(errors.CodeUnavailable, "bridge is closed")}
				default:
					return
				}
			}
		case j := <-b.jobs:
			// Each task gets its own worker so one slow generation
			// call never head-of-line blocks other callers; the
			// accept loop stays free to take the next job.
			go func(j job) { j.out <- b.runTask(j.ctx, j.task) }(j)
		}
	}
}

// runTask executes the task with the bridge marker set, converting
// panics into errors so the dispatcher never dies.
func (b *Bridge) runTask(ctx context.Context, task Task) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Bridge task panicked", "panic", fmt.Sprintf("%v", r))
			out = Outcome{Err: errors.InternalError("task panicked", fmt.Errorf("%v", r))}
		}
	}()

	ctx = context.WithValue(ctx, taskMarkerKey{}, true)
	value, err := task(ctx)
	return Outcome{Value: value, Err: err}
}

// Submit is the asynchronous entry: it schedules the task and returns a
// channel that will receive exactly one outcome. With no running
// dispatcher the task gets its own worker so async callers never block.
func (b *Bridge) Submit(ctx context.Context, task Task) (<-chan Outcome, error) {
	if task == nil {
		return nil, errors.BridgeMisuseError("nil task submitted")
	}

	out := make(chan Outcome, 1)

	b.mu.Lock()
	running := b.started && !b.closed
	b.mu.Unlock()

	if !running || insideTask(ctx) {
		go func() { out <- b.runTask(ctx, task) }()
		return out, nil
	}

	go func() {
		select {
		case b.jobs <- job{ctx: ctx, task: task, out: out}:
		case <-b.done:
			out <- Outcome{Err: errors.New(errors.CodeUnavailable, "bridge is closed")}
		case <-ctx.Done():
			out <- Outcome{Err: ctx.Err()}
		}
	}()
	return out, nil
}

// Run is the synchronous entry: it classifies the calling environment
// (see package comment), executes the task accordingly, and blocks
// until the outcome is available.
func (b *Bridge) Run(ctx context.Context, task Task) (any, error) {
	if task == nil {
		return nil, errors.BridgeMisuseError("nil task submitted")
	}

	b.mu.Lock()
	running := b.started && !b.closed
	b.mu.Unlock()

	switch {
	case !running:
		// State 1: no dispatcher. Fresh throwaway worker.
		out := make(chan Outcome, 1)
		go func() { out <- b.runTask(ctx, task) }()
		o := <-out
		return o.Value, o.Err

	case insideTask(ctx):
		// State 3: nested inside a bridge task. Dedicated worker; the
		// nested call must never wait on the dispatcher.
		out := make(chan Outcome, 1)
		go func() { out <- b.runTask(ctx, task) }()
		o := <-out
		return o.Value, o.Err

	default:
		// State 2: dispatcher idle or working through its queue.
		out := make(chan Outcome, 1)
		select {
		case b.jobs <- job{ctx: ctx, task: task, out: out}:
		case <-b.done:
			return nil, errors.New(errors.CodeUnavailable, "bridge is closed")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		o := <-out
		return o.Value, o.Err
	}
}

// RunTyped runs task synchronously through b and returns a typed result.
func RunTyped[T any](b *Bridge, ctx context.Context, task func(ctx context.Context) (T, error)) (T, error) {
	value, err := b.Run(ctx, func(ctx context.Context) (any, error) {
		return task(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	result, ok := value.(T)
	if !ok {
		var zero T
		return zero, errors.BridgeMisuseError("task returned unexpected result type")
	}
	return result, nil
}
