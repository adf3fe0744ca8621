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

// Package eventloop adapts a cooperative ready-queue scheduler (the kind
// backing single-threaded event loops) to a
// [github.com/qweeze/shuffler/strategy.Strategy], by letting the strategy
// pick which of several ready callbacks runs next instead of always taking
// the head of the queue.
//
// It does not use [github.com/qweeze/shuffler/shuffle.Shuffler]: an event
// loop already serializes callback execution by construction (there is only
// ever one goroutine pulling work off the queue), so there is no rendezvous
// to perform. The only scheduling decision is which ready item to dequeue
// next, which is exactly [strategy.Strategy.ChooseNext] applied to queue
// positions.
package eventloop

import "github.com/qweeze/shuffler/strategy"

// Queue is a FIFO of pending callbacks whose dequeue order is handed to a
// Strategy whenever more than one item is ready, instead of always
// returning the oldest. It corresponds to the `FakeDeque` subclass in
// original_source/shuffler/plugins/eventloop.py, generalized from a fixed
// `asyncio.Handle` element type to any T.
//
// Queue is not safe for concurrent use; it is meant to be driven from the
// single goroutine that owns the event loop.
type Queue[T any] struct {
	strat   strategy.Strategy[int]
	items   []T
	enabled bool
}

// New returns an empty Queue driven by strat. The queue starts disabled:
// call [Queue.Enable] to start consulting the strategy, matching the
// original's `EventLoopPlugin.enabled` flag, which defaults to off outside
// of an explicit `activate()` scope.
func New[T any](strat strategy.Strategy[int]) *Queue[T] {
	return &Queue[T]{strat: strat}
}

// Enable turns on strategy-directed dequeue order.
func (q *Queue[T]) Enable() { q.enabled = true }

// Disable reverts to plain FIFO dequeue order.
func (q *Queue[T]) Disable() { q.enabled = false }

// Activate enables the queue, runs fn, and disables it again on return,
// mirroring the original's `activate()` context manager.
func (q *Queue[T]) Activate(fn func()) {
	q.Enable()
	defer q.Disable()
	fn()
}

// Push appends an item to the back of the queue.
func (q *Queue[T]) Push(item T) {
	q.items = append(q.items, item)
}

// Len reports the number of items currently queued.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// PopLeft removes and returns the next item to run. When the queue is
// enabled and holds more than one item, the strategy chooses which index to
// remove; otherwise it behaves like a plain FIFO pop. It panics if the
// queue is empty.
func (q *Queue[T]) PopLeft() T {
	strategy.Assertf(len(q.items) > 0, "PopLeft called on an empty queue")

	if !q.enabled || len(q.items) <= 1 {
		item := q.items[0]
		q.items = q.items[1:]
		return item
	}

	options := make(map[int]struct{}, len(q.items))
	for i := range q.items {
		options[i] = struct{}{}
	}
	ix := q.strat.ChooseNext(options)
	item := q.items[ix]
	q.items = append(q.items[:ix], q.items[ix+1:]...)
	return item
}

// StrategyCompleted reports whether the underlying strategy has exhausted
// its exploration budget.
func (q *Queue[T]) StrategyCompleted() bool {
	return q.strat.IsCompleted()
}

// FinishSequence closes out the current pass over the strategy, returning
// the ordered queue positions it chose.
func (q *Queue[T]) FinishSequence() []int {
	return q.strat.FinishSequence()
}

// Reset returns the underlying strategy to a pristine state.
func (q *Queue[T]) Reset() {
	q.strat.Reset()
}
