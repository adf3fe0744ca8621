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

package strategy_test

import (
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/qweeze/shuffler/strategy"
)

// runToCompletion drives e over options repeatedly until it reports
// completion, returning every sequence produced.
func runToCompletion(e *strategy.Exhaustive[string], options map[string]struct{}) [][]string {
	var sequences [][]string
	for !e.IsCompleted() {
		remaining := make(map[string]struct{}, len(options))
		for k := range options {
			remaining[k] = struct{}{}
		}
		for len(remaining) > 0 {
			choice := e.ChooseNext(remaining)
			delete(remaining, choice)
		}
		sequences = append(sequences, e.FinishSequence())
	}
	return sequences
}

func TestExhaustiveTwoSingleOpTasks(t *testing.T) {
	e := strategy.NewExhaustive[string]()
	sequences := runToCompletion(e, map[string]struct{}{"A": {}, "B": {}})

	var rendered []string
	for _, seq := range sequences {
		rendered = append(rendered, join(seq))
	}
	qt.Assert(t, qt.CmpEquals(rendered, []string{"A,B", "B,A"},
		cmpopts.SortSlices(func(a, b string) bool { return a < b })))
}

func TestExhaustiveNotCompletedBeforeAnyPass(t *testing.T) {
	e := strategy.NewExhaustive[string]()
	qt.Assert(t, qt.IsFalse(e.IsCompleted()))
}

func TestExhaustiveResetProducesIdenticalPasses(t *testing.T) {
	options := map[string]struct{}{"A": {}, "B": {}, "C": {}}

	e := strategy.NewExhaustive[string]()
	first := runToCompletion(e, options)

	e.Reset()
	qt.Assert(t, qt.IsFalse(e.IsCompleted()))
	second := runToCompletion(e, options)

	qt.Assert(t, qt.DeepEquals(second, first))
}

func TestExhaustiveRevisitWithDifferentCandidateSetPanics(t *testing.T) {
	e := strategy.NewExhaustive[string]()
	e.ChooseNext(map[string]struct{}{"A": {}, "B": {}})
	e.FinishSequence()

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a changed candidate set on revisit")
		}
	}()
	e.ChooseNext(map[string]struct{}{"A": {}, "B": {}, "C": {}})
}

func TestExhaustiveEmptyOptionsPanics(t *testing.T) {
	e := strategy.NewExhaustive[string]()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for an empty candidate set")
		}
	}()
	e.ChooseNext(map[string]struct{}{})
}

func join(ss []string) string {
	out := ss[0]
	for _, s := range ss[1:] {
		out += "," + s
	}
	return out
}
