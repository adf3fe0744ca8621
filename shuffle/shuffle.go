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

// Package shuffle implements the rendezvous barrier that turns yield points
// in user code into scheduling decisions offered to a
// [github.com/qweeze/shuffler/strategy.Strategy]: at any instant, exactly
// one task may be released, and no release happens until either every
// currently-alive task has arrived at a yield point or a bounded timeout has
// elapsed.
//
// Go has no async/await split the way the project this was ported from
// does (original_source/shuffler/shufflers/{threading,asyncio}.py): a
// goroutine is always scheduled concurrently with others by the Go
// runtime, whether it happens to be doing CPU work or blocked on I/O. One
// Shuffler implementation, safe for concurrent use by any number of
// goroutines, therefore covers both the "OS threads" and "cooperative
// single-threaded" scheduling models spec'd as separate shuffler flavors.
package shuffle

import (
	"log"
	"sync"
	"time"

	"github.com/qweeze/shuffler/strategy"
)

const defaultMaxWaitFor = 20 * time.Millisecond

// Option configures a Shuffler at construction time.
type Option[T strategy.TaskID] func(*Shuffler[T])

// WithMaxWaitFor overrides the default 20ms bound on how long Shuffle waits
// for stragglers before proceeding with whatever tasks are currently
// pending. Raise it for tasks that intentionally inject delays (S4 in
// spec.md §8) so the full pool is still observed.
func WithMaxWaitFor[T strategy.TaskID](d time.Duration) Option[T] {
	return func(s *Shuffler[T]) { s.maxWaitFor = d }
}

// WithLogger attaches a logger that receives debug-level tracing of release
// decisions and straggler timeouts. The default is silent.
func WithLogger[T strategy.TaskID](l *log.Logger) Option[T] {
	return func(s *Shuffler[T]) { s.logger = l }
}

// Shuffler is the rendezvous barrier described in spec.md §4.4. Construct
// one per exploration loop (spec.md §6), share it across every task
// goroutine in a pass, and call [Shuffler.Shuffle] at each yield point.
type Shuffler[T strategy.TaskID] struct {
	strat      strategy.Strategy[T]
	poolSize   int
	maxWaitFor time.Duration
	logger     *log.Logger

	mu          sync.Mutex
	pending     map[T]struct{}
	curPoolSize int
	changed     chan struct{}
}

// New constructs a Shuffler for pool_size concurrent tasks, driven by
// strat.
func New[T strategy.TaskID](poolSize int, strat strategy.Strategy[T], opts ...Option[T]) *Shuffler[T] {
	s := &Shuffler[T]{
		strat:       strat,
		poolSize:    poolSize,
		curPoolSize: poolSize,
		maxWaitFor:  defaultMaxWaitFor,
		pending:     make(map[T]struct{}),
		changed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Shuffler[T]) debugf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// wakeLocked broadcasts a pending/pool-size change to every goroutine
// currently blocked in the wait phase. It must be called with mu held, and
// relies on callers re-reading pending/curPoolSize under mu immediately
// before capturing the channel they'll select on — closing and replacing
// the channel atomically with the mutation is what makes this race-free:
// a waiter either observes the new state before it sleeps, or it captured
// the channel this call just closed and wakes immediately.
func (s *Shuffler[T]) wakeLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Shuffle is the yield-point seam (spec.md §6): a task announces its
// presence at taskID and blocks until the strategy releases it. It returns
// once taskID has been removed from the pending set, at which point the
// caller is free to run its operation.
//
//	shuffler.Shuffle(taskID)
//	// ... run the operation ...
func (s *Shuffler[T]) Shuffle(taskID T) {
	s.mu.Lock()
	s.pending[taskID] = struct{}{}
	s.wakeLocked()
	s.mu.Unlock()

	s.awaitRelease(taskID)
}

// awaitRelease blocks taskID at the rendezvous until it is released, either
// by a sibling's turn at choosing-and-removing or by its own. Every pooled
// task runs this same loop, and every iteration that finds the pool ready
// (or stragglers timed out) performs the choose-and-remove step itself,
// entirely under mu, rather than handing that step off to a separate lock
// that some other goroutine would later have to unlock: a sync.Mutex's
// Lock is not interruptible, so a goroutine parked in one has no way to
// notice that it was the one chosen and react — only a goroutine that is
// still actively looping and re-checking pending membership can do that.
// Folding "wait my turn" and "maybe perform the release" into one
// mu-guarded step keeps both halves of the decision visible to the same
// goroutine at the same time.
func (s *Shuffler[T]) awaitRelease(taskID T) {
	deadline := time.Now().Add(s.maxWaitFor)
	for {
		s.mu.Lock()
		if _, pending := s.pending[taskID]; !pending {
			s.mu.Unlock()
			return
		}

		remaining := time.Until(deadline)
		timedOut := remaining <= 0
		if len(s.pending) < s.curPoolSize && !timedOut {
			ch := s.changed
			s.mu.Unlock()

			select {
			case <-ch:
			case <-time.After(remaining):
			}
			continue
		}

		if timedOut {
			s.debugf("shuffle: max_wait_for elapsed with %v still pending", taskID)
		}
		s.chooseAndRemoveLocked()
		_, stillPending := s.pending[taskID]
		s.mu.Unlock()
		if !stillPending {
			return
		}

		// This goroutine triggered a release but wasn't the one chosen.
		// Its own wait starts over, with a fresh bound on how long it will
		// wait before forcing another release — mirroring the elapsed-time
		// reset at the top of each outer iteration in
		// original_source/shuffler/shufflers/threading.py.
		deadline = time.Now().Add(s.maxWaitFor)
	}
}

// chooseAndRemoveLocked consults the strategy with the current pending set,
// removes the chosen task, and wakes stragglers. The caller must hold mu.
func (s *Shuffler[T]) chooseAndRemoveLocked() {
	options := make(map[T]struct{}, len(s.pending))
	for id := range s.pending {
		options[id] = struct{}{}
	}
	chosen := s.strat.ChooseNext(options)
	delete(s.pending, chosen)
	s.wakeLocked()

	s.debugf("shuffle: released %v", chosen)
}

// DecrementPoolSize records that one task has finished all of its
// operations and will never arrive at another yield point. Call it once,
// after a task's last Shuffle call returns.
func (s *Shuffler[T]) DecrementPoolSize() {
	s.mu.Lock()
	s.curPoolSize--
	strategy.Assertf(s.curPoolSize >= 0, "DecrementPoolSize: pool size underflow")
	s.wakeLocked()
	s.mu.Unlock()
}

// FinishSequence closes the current pass: it resets the pool size to its
// configured value and returns the ordered TaskIDs the strategy released
// during the pass.
func (s *Shuffler[T]) FinishSequence() []T {
	s.mu.Lock()
	s.curPoolSize = s.poolSize
	s.mu.Unlock()
	return s.strat.FinishSequence()
}

// StrategyCompleted reports whether the underlying strategy has exhausted
// its exploration budget.
func (s *Shuffler[T]) StrategyCompleted() bool {
	return s.strat.IsCompleted()
}

// Reset returns the Shuffler and its strategy to a pristine state.
func (s *Shuffler[T]) Reset() {
	s.mu.Lock()
	s.curPoolSize = s.poolSize
	s.pending = make(map[T]struct{})
	s.mu.Unlock()
	s.strat.Reset()
}
