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

// Package strategy implements the scheduling-decision side of the
// interleaving explorer: given the set of tasks currently parked at a
// yield point, a Strategy picks which one gets released next.
//
// Two implementations are provided. [Exhaustive] drives a depth-first
// traversal of the tree of all possible release orders, enumerating every
// distinct interleaving exactly once. [Random] samples uniformly from the
// candidate set for a bounded number of passes, trading completeness for
// speed.
package strategy

import "fmt"

// TaskID identifies a task competing for release at a yield point. Ordering
// is not part of this constraint; [Exhaustive] and [Random] additionally
// require [cmp.Ordered], which Exhaustive uses to pin a canonical
// left-to-right order on the children of a decision-tree node and Random
// uses to sort candidates before its seeded draw.
type TaskID interface {
	comparable
}

// Strategy chooses which pending task to release next, and tracks progress
// of the exploration across passes.
//
// Implementations are not safe for concurrent use; callers (in practice,
// [github.com/qweeze/shuffler/shuffle.Shuffler]) must serialize access.
type Strategy[T TaskID] interface {
	// ChooseNext picks one TaskID out of options and returns it. options
	// must be non-empty.
	ChooseNext(options map[T]struct{}) T

	// FinishSequence closes the current pass, returning the ordered list of
	// TaskIDs released during it, and advances internal state for the next
	// pass. For [Exhaustive] the next pass explores a different ordering;
	// for [Random] it only counts the pass, and orderings may repeat.
	FinishSequence() []T

	// IsCompleted reports whether the exploration budget has been
	// exhausted. An [Exhaustive] strategy that has never had ChooseNext
	// called on it is never completed; a [Random] strategy counts passes
	// closed by FinishSequence, whether or not ChooseNext was called.
	IsCompleted() bool

	// Reset returns the Strategy to a pristine state, equivalent to a
	// freshly constructed instance.
	Reset()
}

// Assertf panics with a formatted message if cond is false. It is used for
// programmer-contract violations that the shuffler's own bookkeeping should
// make impossible — an empty candidate set, a decision node revisited with a
// different candidate set, or similar. These are not user-recoverable
// conditions and are reported immediately rather than folded into an error
// return.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("strategy: assertion failed: "+format, args...))
	}
}
