// Copyright 2025 The Shuffler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlhook wraps a [database/sql/driver.Driver] so that every
// statement execution becomes a yield point offered to a
// [github.com/qweeze/shuffler/shuffle.Shuffler], the way
// original_source/shuffler/plugins/sqlalchemy.py installs a
// `before_cursor_execute` hook ahead of a real SQLAlchemy engine. Unlike
// that hook, which fires only before the statement runs, nothing here
// needs to know when the statement finishes: the barrier's next release
// is gated on pending arrivals and pool size, not on this task's own
// completion.
//
// Unlike that ContextVar-based original, the current task is passed
// explicitly through context.Context (via [WithTaskID]): Go's
// database/sql driver hooks already receive a ctx on every call, so there
// is no need for a goroutine-local equivalent of contextvars.ContextVar.
package sqlhook

import (
	"context"
	"database/sql/driver"
	"log"
	"sync"
	"time"

	"github.com/qweeze/shuffler/shuffle"
	"github.com/qweeze/shuffler/strategy"
)

type taskIDKey struct{}

// WithTaskID returns a context carrying id as the current task for any
// statement executed against a [Driver]-wrapped connection during its
// lifetime.
func WithTaskID[T strategy.TaskID](ctx context.Context, id T) context.Context {
	return context.WithValue(ctx, taskIDKey{}, id)
}

func taskIDFrom[T strategy.TaskID](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(taskIDKey{}).(T)
	return v, ok
}

// Option configures a Driver at construction time.
type Option[T strategy.TaskID] func(*Driver[T])

// WithMaxWaitFor overrides the default straggler bound inherited from
// [shuffle.Shuffler]; see [shuffle.WithMaxWaitFor].
func WithMaxWaitFor[T strategy.TaskID](d time.Duration) Option[T] {
	return func(h *Driver[T]) { h.maxWaitFor = d }
}

// WithLogger attaches a logger for hook install/remove and release tracing.
func WithLogger[T strategy.TaskID](l *log.Logger) Option[T] {
	return func(h *Driver[T]) { h.logger = l }
}

// Driver wraps a base [driver.Driver], turning statement execution on any
// connection it opens into a yield point. It implements [driver.Driver]
// itself, so it can be registered with [database/sql.Register] and opened
// with [database/sql.Open] like any other driver.
type Driver[T strategy.TaskID] struct {
	base       driver.Driver
	strat      strategy.Strategy[T]
	maxWaitFor time.Duration
	logger     *log.Logger

	mu     sync.Mutex
	active *shuffle.Shuffler[T]
}

// New wraps base with a statement-execution hook driven by strat.
func New[T strategy.TaskID](base driver.Driver, strat strategy.Strategy[T], opts ...Option[T]) *Driver[T] {
	d := &Driver[T]{base: base, strat: strat}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver[T]) debugf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

// Open implements [driver.Driver].
func (d *Driver[T]) Open(name string) (driver.Conn, error) {
	conn, err := d.base.Open(name)
	if err != nil {
		return nil, err
	}
	return &wrappedConn[T]{Conn: conn, hook: d}, nil
}

// enable installs an active Shuffler sized for poolSize concurrent tasks.
// It corresponds to AlchemyPlugin.start() plus the pool-size assignment
// run_single_pass performs at the top of each pass.
func (d *Driver[T]) enable(poolSize int) {
	maxWaitFor := d.maxWaitFor
	d.mu.Lock()
	d.active = shuffle.New[T](poolSize, d.strat, shuffle.WithMaxWaitFor[T](orDefault(maxWaitFor)))
	d.mu.Unlock()
	d.debugf("sqlhook: statement-execute hook installed, pool size %d", poolSize)
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 20 * time.Millisecond
	}
	return d
}

// disable removes the active Shuffler, matching AlchemyPlugin.stop().
func (d *Driver[T]) disable() {
	d.mu.Lock()
	d.active = nil
	d.mu.Unlock()
	d.debugf("sqlhook: statement-execute hook removed")
}

// beforeExecute is the yield point: it blocks the calling task at the
// rendezvous barrier until the strategy releases it, matching where
// original_source/shuffler/plugins/sqlalchemy.py's `before_cursor_execute`
// hook fires, ahead of the statement it guards. If no active Shuffler is
// installed, or ctx carries no task ID, it is a no-op.
func (d *Driver[T]) beforeExecute(ctx context.Context, query string) {
	taskID, ok := taskIDFrom[T](ctx)
	if !ok {
		return
	}

	d.mu.Lock()
	active := d.active
	d.mu.Unlock()
	if active == nil {
		return
	}

	active.Shuffle(taskID)
	d.debugf("sqlhook: task %v: executing query: %s", taskID, query)
}

// StrategyCompleted reports whether the underlying strategy has exhausted
// its exploration budget.
func (d *Driver[T]) StrategyCompleted() bool {
	return d.strat.IsCompleted()
}

// Reset returns the underlying strategy to a pristine state.
func (d *Driver[T]) Reset() {
	d.strat.Reset()
}

// Explore drives repeated passes over ops (keyed by task ID) until the
// strategy is exhausted, installing and removing the statement-execute
// hook around each pass. It corresponds to AlchemyPlugin.run plus
// run_single_pass: it resets the strategy up front, requires at least two
// concurrent operations, and decrements the pool as each operation's
// goroutine finishes.
func (d *Driver[T]) Explore(ctx context.Context, ops map[T]func(context.Context) error) ([][]T, error) {
	strategy.Assertf(len(ops) > 1, "Explore requires at least two concurrent operations")
	d.Reset()

	var sequences [][]T
	for !d.StrategyCompleted() {
		seq, err := d.runSinglePass(ctx, ops)
		if err != nil {
			return sequences, err
		}
		sequences = append(sequences, seq)
	}
	return sequences, nil
}

func (d *Driver[T]) runSinglePass(ctx context.Context, ops map[T]func(context.Context) error) ([]T, error) {
	d.enable(len(ops))
	defer d.disable()

	d.mu.Lock()
	active := d.active
	d.mu.Unlock()

	var wg sync.WaitGroup
	errs := make(chan error, len(ops))
	for taskID, op := range ops {
		wg.Add(1)
		go func(taskID T, op func(context.Context) error) {
			defer wg.Done()
			defer active.DecrementPoolSize()
			if err := op(WithTaskID(ctx, taskID)); err != nil {
				errs <- err
			}
		}(taskID, op)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return active.FinishSequence(), nil
}
