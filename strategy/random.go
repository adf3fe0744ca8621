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

package strategy

import (
	"cmp"
	"math/rand"
	"slices"
)

// defaultMaxIterations is the bounded-sampler ceiling used when
// NewRandom is called with a maxIterations of 0 or less.
const defaultMaxIterations = 100

// Random samples uniformly from the candidate set at each decision point,
// for a bounded number of passes. Sequences produced across passes are not
// guaranteed to be distinct.
//
// The element type must be ordered ([cmp.Ordered]), the same constraint
// [Exhaustive] carries, so that ChooseNext can sort candidates into a
// canonical order before indexing them — see ChooseNext for why this
// matters here too.
//
// Random is not safe for concurrent use.
type Random[T cmp.Ordered] struct {
	rng           *rand.Rand
	maxIterations int
	counter       int
	path          []T
}

// NewRandom returns a Random strategy with the given maximum number of
// passes. Pass 0 or a negative value to use the default of 100, matching
// original_source/shuffler/strategies/random.py's default.
func NewRandom[T cmp.Ordered](maxIterations int) *Random[T] {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &Random[T]{
		rng:           rand.New(rand.NewSource(1)),
		maxIterations: maxIterations,
	}
}

// Seed reseeds the underlying PRNG without resetting the iteration counter,
// matching the independent Seed method on the original Python
// RandomStrategy (strategies/random.py): seeding is orthogonal to how many
// passes have already run.
func (r *Random[T]) Seed(seed int64) {
	r.rng = rand.New(rand.NewSource(seed))
}

// ChooseNext implements [Strategy].
//
// Map iteration order is randomized per process, independently of r.rng, so
// the candidates are sorted into a canonical order before r.rng.Intn draws
// an index into them. Without the sort, a given Seed would still reproduce
// the same sequence of indices but not the same sequence of TaskIDs, making
// the reproducibility Seed promises illusory. The original
// (original_source/shuffler/strategies/random.py) gets away with
// random.choice(list(candidates)) because CPython dict/set iteration order
// is insertion-stable within a run, which Go's map iteration is not.
func (r *Random[T]) ChooseNext(options map[T]struct{}) T {
	Assertf(len(options) > 0, "ChooseNext called with an empty candidate set")

	keys := make([]T, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	selected := keys[r.rng.Intn(len(keys))]
	r.path = append(r.path, selected)
	return selected
}

// FinishSequence implements [Strategy].
func (r *Random[T]) FinishSequence() []T {
	r.counter++
	path := r.path
	r.path = nil
	return path
}

// IsCompleted implements [Strategy]: true once the configured number of
// passes has been run.
func (r *Random[T]) IsCompleted() bool {
	return r.counter >= r.maxIterations
}

// Reset implements [Strategy]. It clears the pass counter and the current
// path only; the PRNG is not reseeded, so passes after Reset continue the
// PRNG's sequence and do not repeat the passes of a freshly constructed or
// freshly seeded instance.
func (r *Random[T]) Reset() {
	r.counter = 0
	r.path = nil
}
