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
	"fmt"
	"slices"
	"strings"

	"github.com/kr/pretty"
)

// Exhaustive drives a depth-first enumeration of every distinct release
// order over a set of tasks. It materializes the decision tree lazily: a
// node's children are fixed the first time that node is expanded, in
// ascending TaskID order, and that ordering is asserted to hold on every
// later visit.
//
// The element type must be ordered ([cmp.Ordered]) so that sibling children
// have a canonical, stable order — see spec.md §9's design note on the
// compile-time ordering constraint.
//
// Exhaustive is not safe for concurrent use.
type Exhaustive[T cmp.Ordered] struct {
	root    *node[T]
	current *node[T]
	path    []*node[T]
}

// NewExhaustive returns a freshly constructed Exhaustive strategy.
func NewExhaustive[T cmp.Ordered]() *Exhaustive[T] {
	e := &Exhaustive[T]{}
	e.Reset()
	return e
}

// ChooseNext implements [Strategy].
//
// Selection rule at the current node, first match wins:
//  1. the first child (in canonical order) not yet visited on any pass;
//  2. the first child not yet explored;
//  3. otherwise the tree bookkeeping is broken — this cannot happen if
//     invariants hold, and is reported as a contract violation.
func (e *Exhaustive[T]) ChooseNext(options map[T]struct{}) T {
	Assertf(len(options) > 0, "ChooseNext called with an empty candidate set")

	n := e.current
	if len(n.children) == 0 {
		for _, v := range sortedKeys(options) {
			n.addChild(v)
		}
	} else {
		Assertf(len(n.children) == len(options),
			"candidate set changed on revisit: node has %d children, got %d options",
			len(n.children), len(options))
		for _, c := range n.children {
			_, ok := options[c.value]
			Assertf(ok, "candidate set changed on revisit: %v is no longer a candidate", c.value)
		}
	}

	var selected *node[T]
	for _, c := range n.children {
		if !c.visited {
			selected = c
			break
		}
	}
	if selected == nil {
		for _, c := range n.children {
			if !c.explored {
				selected = c
				break
			}
		}
	}
	Assertf(selected != nil, "no unvisited or unexplored child at node with %d children", len(n.children))

	selected.visited = true
	e.path = append(e.path, selected)
	e.current = selected
	return selected.value
}

// FinishSequence implements [Strategy]. It walks from the last selected node
// back to the root, marking each node explored once all of its children are
// explored, and returns the ordered TaskIDs chosen during the pass.
//
// visited is deliberately sticky: once a node has been chosen on any pass it
// stays visited for the lifetime of the tree. This is what lets rule 1
// ("first unvisited child") mean "first sibling we haven't tried at all
// yet" rather than "first sibling not on the current path" — the two only
// coincide if visited were cleared per-pass, which would make rule 1
// reselect an already fully-explored sibling the moment its visited flag
// was cleared. A node that is visited but not yet explored is correctly
// picked up by rule 2 on a later pass; a node that is both visited and
// explored is never selected again. See DESIGN.md for the rejected
// clear-on-finish alternative.
func (e *Exhaustive[T]) FinishSequence() []T {
	n := e.current
	for {
		if n.allExplored() {
			n.explored = true
		}
		if n.parent == nil {
			break
		}
		n = n.parent
	}

	seq := make([]T, len(e.path))
	for i, n := range e.path {
		seq[i] = n.value
	}

	e.path = e.path[:0]
	e.current = e.root
	return seq
}

// IsCompleted implements [Strategy]: true once the root has at least one
// child and every child of the root is explored.
func (e *Exhaustive[T]) IsCompleted() bool {
	return len(e.root.children) > 0 && e.root.allExplored()
}

// Reset implements [Strategy], discarding the decision tree entirely.
func (e *Exhaustive[T]) Reset() {
	e.root = newRoot[T]()
	e.current = e.root
	e.path = nil
}

// Dump renders the decision tree as an indented text listing, for use in
// failing-test diagnostics. Each node's value is formatted with
// [pretty.Sprint].
func (e *Exhaustive[T]) Dump() string {
	var b strings.Builder
	var walk func(n *node[T], depth int)
	walk = func(n *node[T], depth int) {
		if n.hasValue {
			fmt.Fprintf(&b, "%s%s (visited=%v explored=%v)\n",
				strings.Repeat("  ", depth), pretty.Sprint(n.value), n.visited, n.explored)
		}
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	walk(e.root, 0)
	return b.String()
}

func sortedKeys[T cmp.Ordered](m map[T]struct{}) []T {
	keys := make([]T, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
