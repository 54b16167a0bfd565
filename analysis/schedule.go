// Copyright 2026 The NGraph Authors. SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/topo"
	"k8s.io/klog/v2"

	"github.com/spillai/ngraph/ops"
)

// Instructions returns the ops in execution order: a topological order of the
// dependency graph, with ties among independent ops broken by first-discovery
// order, so identical inputs always schedule identically. An empty graph
// yields nil.
//
// The order is computed with gonum's stabilized topological sort on first
// call and cached; the graph is immutable, so the cache never goes stale.
func (g *DataFlowGraph) Instructions() ([]ops.Op, error) {
	if !g.scheduled {
		if err := g.schedule(); err != nil {
			return nil, err
		}
	}
	return slices.Clone(g.instructions), nil
}

func (g *DataFlowGraph) schedule() error {
	if len(g.order) == 0 {
		g.scheduled = true
		return nil
	}
	sorted, err := topo.SortStabilized(directed{g}, nil)
	if err != nil {
		// Construction rejects cycles, so this is only reachable with a
		// graph mutated behind the analysis' back.
		return errors.WithMessage(err, "dataflow: cannot schedule instructions")
	}
	g.instructions = make([]ops.Op, len(sorted))
	for idx, n := range sorted {
		g.instructions[idx] = n.(gonumNode).op
	}
	g.scheduled = true
	klog.V(2).Infof("dataflow: scheduled %d instructions", len(g.instructions))
	return nil
}

// gonumNode wraps an op with its discovery id, adapting it to gonum's
// graph.Node.
type gonumNode struct {
	id int64
	op ops.Op
}

func (n gonumNode) ID() int64 { return n.id }

// gonumEdge is a plain directed edge between two gonumNodes.
type gonumEdge struct {
	from, to graph.Node
}

func (e gonumEdge) From() graph.Node         { return e.from }
func (e gonumEdge) To() graph.Node           { return e.to }
func (e gonumEdge) ReversedEdge() graph.Edge { return gonumEdge{from: e.to, to: e.from} }

// directed adapts a DataFlowGraph to gonum's graph.Directed so scheduling can
// reuse gonum's topological sort. An edge u -> v means v depends on u, so the
// sort puts producers before consumers. Node ids are discovery order, which
// is what makes topo.SortStabilized's tie-breaking deterministic.
type directed struct {
	g *DataFlowGraph
}

var _ graph.Directed = directed{}

func (d directed) Node(id int64) graph.Node {
	if id < 0 || id >= int64(len(d.g.order)) {
		return nil
	}
	return gonumNode{id: id, op: d.g.order[id]}
}

func (d directed) Nodes() graph.Nodes {
	return d.nodesOf(d.g.order)
}

func (d directed) From(id int64) graph.Nodes {
	if node := d.Node(id); node != nil {
		return d.nodesOf(d.g.Successors(node.(gonumNode).op))
	}
	return graph.Empty
}

func (d directed) To(id int64) graph.Nodes {
	if node := d.Node(id); node != nil {
		return d.nodesOf(d.g.Predecessors(node.(gonumNode).op))
	}
	return graph.Empty
}

func (d directed) nodesOf(opsList []ops.Op) graph.Nodes {
	if len(opsList) == 0 {
		return graph.Empty
	}
	nodes := make([]graph.Node, len(opsList))
	for idx, op := range opsList {
		nodes[idx] = gonumNode{id: d.g.ids[op], op: op}
	}
	return iterator.NewOrderedNodes(nodes)
}

func (d directed) HasEdgeFromTo(uid, vid int64) bool {
	u, v := d.Node(uid), d.Node(vid)
	if u == nil || v == nil {
		return false
	}
	return d.g.HasEdge(u.(gonumNode).op, v.(gonumNode).op)
}

func (d directed) HasEdgeBetween(xid, yid int64) bool {
	return d.HasEdgeFromTo(xid, yid) || d.HasEdgeFromTo(yid, xid)
}

func (d directed) Edge(uid, vid int64) graph.Edge {
	if !d.HasEdgeFromTo(uid, vid) {
		return nil
	}
	return gonumEdge{from: d.Node(uid), to: d.Node(vid)}
}
