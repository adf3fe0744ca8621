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

package shuffle_test

import (
	"sync"
	"testing"
	"time"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/qweeze/shuffler/shuffle"
	"github.com/qweeze/shuffler/strategy"
)

// runPass drives one pass of ops (one []string of operation labels per task,
// each entry a single "operation") through s, where every task performs all of
// its operations as separate Shuffle calls, decrementing the pool once it
// has no more work.
func runPass[T strategy.TaskID](s *shuffle.Shuffler[T], ops map[T][]string) []T {
	var mu sync.Mutex
	var order []T

	var wg sync.WaitGroup
	for taskID, taskOps := range ops {
		wg.Add(1)
		go func(taskID T, taskOps []string) {
			defer wg.Done()
			for range taskOps {
				s.Shuffle(taskID)
				mu.Lock()
				order = append(order, taskID)
				mu.Unlock()
			}
			s.DecrementPoolSize()
		}(taskID, taskOps)
	}
	wg.Wait()
	return s.FinishSequence()
}

func TestShuffleTwoSingleOpTasks(t *testing.T) {
	exhaustive := strategy.NewExhaustive[string]()
	s := shuffle.New[string](2, exhaustive, shuffle.WithMaxWaitFor[string](200*time.Millisecond))

	ops := map[string][]string{"A": {"op"}, "B": {"op"}}

	var sequences [][]string
	for !s.StrategyCompleted() {
		seq := runPass(s, ops)
		sequences = append(sequences, seq)
		if len(sequences) > 10 {
			t.Fatalf("exploration did not converge, dump:\n%s", exhaustive.Dump())
		}
	}

	var rendered []string
	for _, seq := range sequences {
		row := seq[0]
		for _, v := range seq[1:] {
			row += "," + v
		}
		rendered = append(rendered, row)
	}
	qt.Assert(t, qt.CmpEquals(rendered, []string{"A,B", "B,A"},
		cmpopts.SortSlices(func(a, b string) bool { return a < b })))
}

func TestShuffleTwoTwoOpTasks(t *testing.T) {
	// spec.md §8 scenario S2: two tasks with two operations each must
	// produce exactly NInterleavings(2, 2) = 6 distinct sequences.
	exhaustive := strategy.NewExhaustive[string]()
	s := shuffle.New[string](2, exhaustive, shuffle.WithMaxWaitFor[string](200*time.Millisecond))

	ops := map[string][]string{"A": {"op1", "op2"}, "B": {"op1", "op2"}}

	seen := make(map[string]bool)
	for !s.StrategyCompleted() {
		seq := runPass(s, ops)
		qt.Assert(t, qt.HasLen(seq, 4))
		row := seq[0]
		for _, v := range seq[1:] {
			row += "," + v
		}
		seen[row] = true
		if len(seen) > 6 {
			t.Fatalf("more than 6 distinct sequences observed, dump:\n%s", exhaustive.Dump())
		}
	}
	qt.Assert(t, qt.Equals(len(seen), 6))
}

func TestShuffleRandomStrategyBoundedPasses(t *testing.T) {
	random := strategy.NewRandom[string](10)
	s := shuffle.New[string](3, random, shuffle.WithMaxWaitFor[string](200*time.Millisecond))

	ops := map[string][]string{"A": {"op"}, "B": {"op"}, "C": {"op"}}

	passes := 0
	for !s.StrategyCompleted() {
		seq := runPass(s, ops)
		qt.Assert(t, qt.HasLen(seq, 3))
		passes++
		if passes > 10 {
			t.Fatal("Random strategy exceeded its configured pass bound")
		}
	}
	qt.Assert(t, qt.Equals(passes, 10))
}

func TestShuffleStragglerTimeoutProceedsWithoutFullPool(t *testing.T) {
	// Only one task ever arrives even though the Shuffler is configured for
	// a pool of two: Shuffle must still release it once max_wait_for
	// elapses, rather than blocking forever.
	exhaustive := strategy.NewExhaustive[string]()
	s := shuffle.New[string](2, exhaustive, shuffle.WithMaxWaitFor[string](20*time.Millisecond))

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Shuffle("A")
		s.DecrementPoolSize()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shuffle did not release the sole pending task after max_wait_for elapsed")
	}
}
