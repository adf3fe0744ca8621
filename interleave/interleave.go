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

// Package interleave provides the combinatorial oracle used to check that
// an exploration strategy actually enumerates (or samples from) the full
// space of legal interleavings of several ordered operation sequences.
package interleave

import "fmt"

// NInterleavings returns the number of distinct ways to merge k ordered
// sequences of the given lengths while preserving within-sequence order:
// the multinomial coefficient (sum(lengths))! / prod(lengths!).
//
// NInterleavings panics if lengths is empty or any element is not positive.
func NInterleavings(lengths ...int) int {
	assertf(len(lengths) > 0, "NInterleavings requires at least one length")
	total := 0
	for _, n := range lengths {
		assertf(n > 0, "NInterleavings requires all lengths to be positive, got %d", n)
		total += n
	}
	num := factorial(total)
	den := 1
	for _, n := range lengths {
		den *= factorial(n)
	}
	return num / den
}

func factorial(n int) int {
	result := 1
	for i := 2; i <= n; i++ {
		result *= i
	}
	return result
}

// AllInterleavings enumerates every way to merge the given ordered
// sequences while preserving the relative order of elements within each
// input sequence. The result has exactly
// NInterleavings(len(seqs[0]), ..., len(seqs[n-1])) elements, which is
// asserted internally and doubles as a test oracle for [strategy.Exhaustive].
func AllInterleavings[T any](seqs ...[]T) [][]T {
	lengths := make([]int, len(seqs))
	for i, s := range seqs {
		lengths[i] = len(s)
	}

	var result [][]T
	current := make([]T, 0, sum(lengths))

	var generate func(remaining [][]T)
	generate = func(remaining [][]T) {
		nEmpty := 0
		for i, s := range remaining {
			if len(s) == 0 {
				nEmpty++
				continue
			}
			current = append(current, s[0])
			next := make([][]T, len(remaining))
			copy(next, remaining)
			next[i] = s[1:]
			generate(next)
			current = current[:len(current)-1]
		}
		if nEmpty == len(remaining) {
			row := make([]T, len(current))
			copy(row, current)
			result = append(result, row)
		}
	}
	generate(seqs)

	assertf(len(result) == NInterleavings(lengths...),
		"AllInterleavings produced %d rows, want %d", len(result), NInterleavings(lengths...))
	return result
}

func sum(ns []int) int {
	total := 0
	for _, n := range ns {
		total += n
	}
	return total
}

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("interleave: assertion failed: "+format, args...))
	}
}
