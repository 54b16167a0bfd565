// Copyright 2026 The NGraph Authors. SPDX-License-Identifier: Apache-2.0

// Package analysis implements the compile-time dataflow analyses over an
// ngraph operation graph.
//
// A DataFlowGraph is built once per computation from the computation's result
// ops. It materializes the reverse-dependency ("successors") view of the
// graph, derives a deterministic linear execution order for it, and computes
// tensor liveness: for every instruction, the set of storage bases that must
// stay allocated at that program point. Liveness is what a backend's buffer
// placement consumes to reuse memory safely -- register allocation, with
// tensor buffers instead of registers.
//
// The graph is treated as immutable input: construction and the analyses
// never modify the ops, and a DataFlowGraph is read-only after construction.
package analysis

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/spillai/ngraph/ops"
	"github.com/spillai/ngraph/types"
)

// DataFlowGraph explicitly represents the dataflow of a computation: every op
// transitively reachable from the results, and for each of them, which ops
// consume it.
type DataFlowGraph struct {
	// Transformer is the opaque execution-context handle of the backend that
	// will consume the analyses. It is carried through for downstream
	// consumers and never read by the analyses themselves.
	Transformer any

	results []ops.Op

	// successors maps every reachable op to the ops that depend on it
	// (through Args or OtherDeps), in first-discovered order. Ops nothing
	// depends on map to an empty set. Insertion order is what makes
	// scheduling tie-breaks reproducible.
	successors map[ops.Op]*types.OrderedSet[ops.Op]

	// predecessors is the forward view, Args ∪ OtherDeps deduplicated, kept
	// so "who do I read" queries don't re-walk the op fields.
	predecessors map[ops.Op]*types.OrderedSet[ops.Op]

	// order lists every reachable op in discovery order; ids are the
	// positions in it. They double as gonum node ids for scheduling.
	order []ops.Op
	ids   map[ops.Op]int64

	// instructions caches the schedule; the graph is immutable so it never
	// goes stale.
	instructions []ops.Op
	scheduled    bool
}

// NewDataFlowGraph builds the dataflow graph of the computation whose outputs
// are results. The transformer handle is stored untouched for later
// consumers.
//
// It returns an error if a nil op is reachable from the results, if a
// reachable op reports a nil tensor definition, or if the dependencies form a
// cycle.
func NewDataFlowGraph(transformer any, results ...ops.Op) (*DataFlowGraph, error) {
	g := &DataFlowGraph{
		Transformer:  transformer,
		results:      slices.Clone(results),
		successors:   make(map[ops.Op]*types.OrderedSet[ops.Op]),
		predecessors: make(map[ops.Op]*types.OrderedSet[ops.Op]),
		ids:          make(map[ops.Op]int64),
	}
	visiting := types.MakeSet[ops.Op]()
	for idx, w := range results {
		if w == nil {
			return nil, errors.Errorf("dataflow: result op #%d is nil", idx)
		}
		if _, registered := g.successors[w]; registered {
			continue
		}
		if err := g.fillSuccessors(w, visiting, nil); err != nil {
			return nil, err
		}
	}
	klog.V(1).Infof("dataflow: built graph with %d ops from %d results", len(g.order), len(results))
	return g, nil
}

// fillSuccessors registers w and, depth-first, everything w depends on,
// recording the reverse edges. A dependency is registered before the edges
// into it are added, so the successors map doubles as the visited set.
//
// visiting holds the ops on the current traversal path (the "in progress"
// color of a three-color DFS); finding a dependency already in it means the
// graph has a cycle, which is rejected rather than recursed into forever.
// path is the same set in traversal order, for the error message.
func (g *DataFlowGraph) fillSuccessors(w ops.Op, visiting types.Set[ops.Op], path []ops.Op) error {
	if err := g.register(w); err != nil {
		return err
	}
	visiting.Insert(w)
	path = append(path, w)
	deps := append(slices.Clone(w.OtherDeps()), w.Args()...)
	for idx, v := range deps {
		if v == nil {
			return errors.Errorf("dataflow: op %q has a nil dependency (#%d)", w.Name(), idx)
		}
		if visiting.Has(v) {
			return errors.Errorf("dataflow: cyclic dependency: %s", cycleString(path, v))
		}
		if _, registered := g.successors[v]; !registered {
			if err := g.fillSuccessors(v, visiting, path); err != nil {
				return err
			}
		}
		// Duplicated deps yield a single edge; OrderedSet keeps the
		// first-discovered position.
		g.successors[v].Insert(w)
		g.predecessors[w].Insert(v)
	}
	delete(visiting, w)
	return nil
}

// register adds w as a node of the graph, assigning it the next discovery id.
// It also validates the fields the analyses will read later.
func (g *DataFlowGraph) register(w ops.Op) error {
	for idx, td := range w.Defs() {
		if td == nil {
			return errors.Errorf("dataflow: op %q reports a nil tensor definition (#%d)", w.Name(), idx)
		}
	}
	g.ids[w] = int64(len(g.order))
	g.order = append(g.order, w)
	g.successors[w] = types.MakeOrderedSet[ops.Op]()
	g.predecessors[w] = types.MakeOrderedSet[ops.Op]()
	return nil
}

// cycleString renders the portion of path that lies on the cycle closed by
// repeated, e.g. "a -> b -> c -> a".
func cycleString(path []ops.Op, repeated ops.Op) string {
	start := 0
	for idx, op := range path {
		if op == repeated {
			start = idx
			break
		}
	}
	var b strings.Builder
	for _, op := range path[start:] {
		b.WriteString(op.Name())
		b.WriteString(" -> ")
	}
	b.WriteString(repeated.Name())
	return b.String()
}

// Results returns the computation's result ops, as given at construction.
func (g *DataFlowGraph) Results() []ops.Op { return slices.Clone(g.results) }

// Ops returns every op reachable from the results, in discovery order.
func (g *DataFlowGraph) Ops() []ops.Op { return slices.Clone(g.order) }

// NumOps returns the number of reachable ops.
func (g *DataFlowGraph) NumOps() int { return len(g.order) }

// Contains reports whether op is reachable from the results.
func (g *DataFlowGraph) Contains(op ops.Op) bool {
	_, found := g.successors[op]
	return found
}

// Successors returns the ops that depend on op, in first-discovered order.
// It returns nil for an op not in the graph.
func (g *DataFlowGraph) Successors(op ops.Op) []ops.Op {
	return g.successors[op].Values()
}

// Predecessors returns the ops op depends on (args and other deps,
// deduplicated), in declaration order. It returns nil for an op not in the
// graph.
func (g *DataFlowGraph) Predecessors(op ops.Op) []ops.Op {
	return g.predecessors[op].Values()
}

// HasEdge reports whether v depends on u, i.e. whether u must execute before
// v.
func (g *DataFlowGraph) HasEdge(u, v ops.Op) bool {
	return g.successors[u].Has(v)
}
