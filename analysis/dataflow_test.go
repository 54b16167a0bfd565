// Copyright 2026 The NGraph Authors. SPDX-License-Identifier: Apache-2.0

package analysis_test

import (
	"slices"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spillai/ngraph/analysis"
	"github.com/spillai/ngraph/ops"
	"github.com/spillai/ngraph/types/shapes"
)

func vec(size int) shapes.Shape { return shapes.Make(dtypes.Float32, size) }

// mlp builds a small two-layer perceptron forward graph and returns it with
// its ops by name.
func mlp(t *testing.T) (*analysis.DataFlowGraph, map[string]ops.Op) {
	x := ops.NewTensorOp("x", vec(16))
	w1 := ops.NewVariableOp("w1", shapes.Make(dtypes.Float32, 16, 32))
	w2 := ops.NewVariableOp("w2", shapes.Make(dtypes.Float32, 32, 8))
	h := ops.NewTensorOp("h", vec(32), x, w1)
	relu := ops.NewTensorOp("relu", vec(32), h)
	out := ops.NewTensorOp("out", vec(8), relu, w2)

	// A side-effect node ordered after the output, e.g. a checkpoint write.
	checkpoint := ops.NewControlOp("checkpoint")
	checkpoint.AddOtherDeps(out)

	g, err := analysis.NewDataFlowGraph(nil, out, checkpoint)
	require.NoError(t, err)
	byName := map[string]ops.Op{
		"x": x, "w1": w1, "w2": w2, "h": h, "relu": relu, "out": out, "checkpoint": checkpoint,
	}
	return g, byName
}

func TestNewDataFlowGraphReachability(t *testing.T) {
	g, byName := mlp(t)

	// Every op transitively reachable from the results is in the graph, and
	// nothing else.
	require.Equal(t, len(byName), g.NumOps())
	for name, op := range byName {
		assert.True(t, g.Contains(op), "op %q missing from graph", name)
	}
	unrelated := ops.NewTensorOp("unrelated", vec(4))
	assert.False(t, g.Contains(unrelated))
	assert.Nil(t, g.Successors(unrelated))
	assert.Nil(t, g.Predecessors(unrelated))
}

func TestNewDataFlowGraphEdges(t *testing.T) {
	g, byName := mlp(t)

	// u -> v iff v lists u in its args or other deps.
	for _, u := range g.Ops() {
		for _, v := range g.Ops() {
			listed := false
			for _, dep := range slices.Concat(v.OtherDeps(), v.Args()) {
				if dep == u {
					listed = true
				}
			}
			assert.Equal(t, listed, g.HasEdge(u, v), "edge %q -> %q", u.Name(), v.Name())
		}
	}

	assert.Equal(t, []ops.Op{byName["h"]}, g.Successors(byName["x"]))
	assert.Equal(t, []ops.Op{byName["x"], byName["w1"]}, g.Predecessors(byName["h"]))
	assert.Equal(t, []ops.Op{byName["out"]}, g.Predecessors(byName["checkpoint"]))
	assert.Empty(t, g.Successors(byName["checkpoint"]))
}

func TestNewDataFlowGraphDuplicateArgs(t *testing.T) {
	x := ops.NewTensorOp("x", vec(4))
	square := ops.NewTensorOp("square", vec(4), x, x)
	g, err := analysis.NewDataFlowGraph(nil, square)
	require.NoError(t, err)

	// Duplicated arguments produce a single edge.
	require.Equal(t, []ops.Op{square}, g.Successors(x))
}

func TestNewDataFlowGraphRepeatedResults(t *testing.T) {
	x := ops.NewTensorOp("x", vec(4))
	g, err := analysis.NewDataFlowGraph(nil, x, x)
	require.NoError(t, err)
	require.Equal(t, 1, g.NumOps())
	require.Equal(t, []ops.Op{x, x}, g.Results())
}

func TestNewDataFlowGraphErrors(t *testing.T) {
	x := ops.NewTensorOp("x", vec(4))

	_, err := analysis.NewDataFlowGraph(nil, x, nil)
	require.ErrorContains(t, err, "result op #1 is nil")

	bad := &customOp{name: "bad", args: []ops.Op{nil}}
	_, err = analysis.NewDataFlowGraph(nil, bad)
	require.ErrorContains(t, err, "nil dependency")

	badDefs := &customOp{name: "badDefs", defs: []*ops.TensorDescription{nil}}
	_, err = analysis.NewDataFlowGraph(nil, badDefs)
	require.ErrorContains(t, err, "nil tensor definition")
}

func TestNewDataFlowGraphCycle(t *testing.T) {
	a := ops.NewTensorOp("a", vec(4))
	b := ops.NewTensorOp("b", vec(4), a)
	c := ops.NewTensorOp("c", vec(4), b)
	a.AddOtherDeps(c) // a -> b -> c -> a

	_, err := analysis.NewDataFlowGraph(nil, c)
	require.ErrorContains(t, err, "cyclic dependency")
	require.ErrorContains(t, err, "a -> ")

	self := ops.NewControlOp("self")
	self.AddOtherDeps(self)
	_, err = analysis.NewDataFlowGraph(nil, self)
	require.ErrorContains(t, err, "cyclic dependency: self -> self")
}

func TestInstructionsTopologicalOrder(t *testing.T) {
	g, _ := mlp(t)
	order := must.M1(g.Instructions())
	require.Len(t, order, g.NumOps())

	position := make(map[ops.Op]int, len(order))
	for idx, op := range order {
		position[op] = idx
	}
	for _, u := range g.Ops() {
		for _, v := range g.Successors(u) {
			assert.Less(t, position[u], position[v],
				"%q must execute before %q", u.Name(), v.Name())
		}
	}
}

func TestInstructionsDeterministic(t *testing.T) {
	// Two independent builds over the same ops must schedule identically.
	build := func(t *testing.T) []string {
		g, _ := mlp(t)
		order := must.M1(g.Instructions())
		names := make([]string, len(order))
		for idx, op := range order {
			names[idx] = op.Name()
		}
		return names
	}
	first := build(t)
	for range 10 {
		require.Equal(t, first, build(t))
	}

	// And repeated calls on the same graph return the same (copied) slice.
	g, _ := mlp(t)
	order1 := must.M1(g.Instructions())
	order2 := must.M1(g.Instructions())
	require.Equal(t, order1, order2)
	order1[0] = nil
	require.Equal(t, order2, must.M1(g.Instructions()))
}

func TestEmptyComputation(t *testing.T) {
	g, err := analysis.NewDataFlowGraph(nil)
	require.NoError(t, err)
	require.Equal(t, 0, g.NumOps())

	order := must.M1(g.Instructions())
	require.Empty(t, order)

	liveness := must.M1(g.Liveness(nil))
	require.Empty(t, liveness)

	profile := must.M1(g.MemoryProfile(nil))
	require.Zero(t, profile.PeakBytes)
	require.Equal(t, "MemoryProfile: empty computation", profile.String())
}

func TestTransformerHandle(t *testing.T) {
	type fakeTransformer struct{ name string }
	handle := &fakeTransformer{name: "cpu"}
	x := ops.NewTensorOp("x", vec(4))
	g, err := analysis.NewDataFlowGraph(handle, x)
	require.NoError(t, err)
	require.Same(t, handle, g.Transformer)
}

// customOp is a minimal foreign implementation of ops.Op, to exercise the
// analyses over ops not built with this module's constructors.
type customOp struct {
	name       string
	args       []ops.Op
	otherDeps  []ops.Op
	defs       []*ops.TensorDescription
	persistent bool
	desc       *ops.TensorDescription
}

func (op *customOp) Name() string                   { return op.name }
func (op *customOp) Args() []ops.Op                 { return op.args }
func (op *customOp) OtherDeps() []ops.Op            { return op.otherDeps }
func (op *customOp) Defs() []*ops.TensorDescription { return op.defs }
func (op *customOp) Persistent() bool               { return op.persistent }

func (op *customOp) TensorDescription() *ops.TensorDescription {
	return op.desc
}
