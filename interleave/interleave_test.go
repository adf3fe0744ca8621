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

package interleave_test

import (
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/qweeze/shuffler/interleave"
)

func TestNInterleavingsTwoSingleOpTasks(t *testing.T) {
	qt.Assert(t, qt.Equals(interleave.NInterleavings(1, 1), 2))
}

func TestNInterleavingsAsymmetricPools(t *testing.T) {
	// spec.md §8 scenario S3: pools of size 1, 2, 3 have 6!/(1!2!3!) = 60
	// distinct interleavings.
	qt.Assert(t, qt.Equals(interleave.NInterleavings(1, 2, 3), 60))
}

func TestNInterleavingsSingleSequence(t *testing.T) {
	qt.Assert(t, qt.Equals(interleave.NInterleavings(4), 1))
}

func TestNInterleavingsPanicsOnEmptyInput(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for zero sequences")
		}
	}()
	interleave.NInterleavings()
}

func TestNInterleavingsPanicsOnNonPositiveLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a non-positive length")
		}
	}()
	interleave.NInterleavings(1, 0)
}

func TestAllInterleavingsTwoSingleOpTasks(t *testing.T) {
	rows := interleave.AllInterleavings([]string{"A"}, []string{"B"})
	rendered := renderRows(rows)
	qt.Assert(t, qt.CmpEquals(rendered, []string{"A,B", "B,A"},
		cmpopts.SortSlices(func(a, b string) bool { return a < b })))
}

func TestAllInterleavingsPreservesWithinSequenceOrder(t *testing.T) {
	rows := interleave.AllInterleavings([]string{"A1", "A2"}, []string{"B1"})
	qt.Assert(t, qt.HasLen(rows, interleave.NInterleavings(2, 1)))

	for _, row := range rows {
		posA1, posA2 := indexOf(row, "A1"), indexOf(row, "A2")
		qt.Assert(t, qt.IsTrue(posA1 < posA2))
	}
}

func TestAllInterleavingsCountMatchesNInterleavings(t *testing.T) {
	rows := interleave.AllInterleavings([]string{"1", "2", "3"}, []string{"a", "b"})
	qt.Assert(t, qt.Equals(len(rows), interleave.NInterleavings(3, 2)))
}

func renderRows(rows [][]string) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		s := row[0]
		for _, v := range row[1:] {
			s += "," + v
		}
		out[i] = s
	}
	return out
}

func indexOf(row []string, v string) int {
	for i, x := range row {
		if x == v {
			return i
		}
	}
	return -1
}
