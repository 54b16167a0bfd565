// Copyright 2026 The NGraph Authors. SPDX-License-Identifier: Apache-2.0

// Package ops defines the operation graph consumed by the ngraph analyses.
//
// An Op is one node of a computation graph: it reads the outputs of its
// argument ops, may carry extra ordering-only dependencies (side-effect
// sequencing), and -- if it produces a tensor value -- carries a
// TensorDescription identifying the storage it writes.
//
// The analyses in package analysis consume any Op implementation read-only.
// The concrete node types here (TensorOp, ControlOp) are the reference
// implementation, enough for a front end to assemble a graph directly.
package ops

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/spillai/ngraph/types/shapes"
)

// Op is a node in the computation graph. Implementations must be comparable
// (pointer identity) since analyses use ops as map keys.
type Op interface {
	// Name identifies the op, used for error messages and debugging.
	Name() string

	// Args are the ops whose outputs this op reads, in order. They execute
	// before this op.
	Args() []Op

	// OtherDeps are ops that must execute before this op for reasons other
	// than dataflow, e.g. side-effect ordering.
	OtherDeps() []Op

	// Defs are the tensor descriptions this op writes to. For a tensor op
	// this includes at least its own output description; it may include
	// more, e.g. a buffer updated in place on behalf of another op.
	Defs() []*TensorDescription

	// Persistent reports whether the op's storage must stay allocated for
	// the whole program lifetime (e.g. model weights), regardless of uses.
	Persistent() bool

	// TensorDescription of the op's output, or nil for ops that don't
	// produce a tensor value (pure control/ordering nodes).
	TensorDescription() *TensorDescription
}

// Compile-time checks:
var (
	_ Op = (*TensorOp)(nil)
	_ Op = (*ControlOp)(nil)
)

// node carries the fields common to all concrete op types.
type node struct {
	name       string
	args       []Op
	otherDeps  []Op
	extraDefs  []*TensorDescription
	persistent bool
}

func (n *node) Name() string     { return n.name }
func (n *node) Args() []Op       { return n.args }
func (n *node) OtherDeps() []Op  { return n.otherDeps }
func (n *node) Persistent() bool { return n.persistent }

// AddOtherDeps records ordering-only dependencies: the given ops must execute
// before this one even though no data flows between them.
func (n *node) AddOtherDeps(deps ...Op) {
	checkOps("AddOtherDeps", deps...)
	n.otherDeps = append(n.otherDeps, deps...)
}

// AddDefs records extra tensor descriptions this op writes to, beyond its own
// output.
func (n *node) AddDefs(descriptions ...*TensorDescription) {
	for idx, td := range descriptions {
		if td == nil {
			exceptions.Panicf("AddDefs(%q): description #%d is nil", n.name, idx)
		}
	}
	n.extraDefs = append(n.extraDefs, descriptions...)
}

// TensorOp is an op that produces a tensor value.
type TensorOp struct {
	node
	desc *TensorDescription
}

// NewTensorOp creates an op named name producing a tensor of the given shape,
// reading the outputs of args. It panics on nil args or an invalid shape.
func NewTensorOp(name string, shape shapes.Shape, args ...Op) *TensorOp {
	checkOps("NewTensorOp", args...)
	return &TensorOp{
		node: node{name: name, args: slices.Clone(args)},
		desc: NewTensorDescription(name, shape),
	}
}

// NewVariableOp creates a persistent tensor op: its storage (e.g. model
// weights) stays allocated for the whole program lifetime.
func NewVariableOp(name string, shape shapes.Shape) *TensorOp {
	op := NewTensorOp(name, shape)
	op.persistent = true
	return op
}

// NewViewOp creates an op whose output aliases the storage of `of`'s output:
// a reshape, slice or transpose over the same data. It panics if `of` does
// not produce a tensor.
func NewViewOp(name string, of Op, shape shapes.Shape) *TensorOp {
	checkOps("NewViewOp", of)
	source := of.TensorDescription()
	if source == nil {
		exceptions.Panicf("NewViewOp(%q): op %q does not produce a tensor value", name, of.Name())
	}
	return &TensorOp{
		node: node{name: name, args: []Op{of}},
		desc: source.View(name, shape),
	}
}

// TensorDescription of the op's output.
func (op *TensorOp) TensorDescription() *TensorDescription { return op.desc }

// Defs returns the op's own output description plus any extra definitions.
func (op *TensorOp) Defs() []*TensorDescription {
	defs := make([]*TensorDescription, 0, 1+len(op.extraDefs))
	defs = append(defs, op.desc)
	return append(defs, op.extraDefs...)
}

// ControlOp is an op that produces no tensor value: it exists for its side
// effects or purely to sequence other ops.
type ControlOp struct {
	node
}

// NewControlOp creates a control op named name ordered after args. It panics
// on nil args.
func NewControlOp(name string, args ...Op) *ControlOp {
	checkOps("NewControlOp", args...)
	return &ControlOp{node: node{name: name, args: slices.Clone(args)}}
}

// TensorDescription returns nil: control ops produce no tensor value.
func (op *ControlOp) TensorDescription() *TensorDescription { return nil }

// Defs returns the extra definitions recorded with AddDefs, if any.
func (op *ControlOp) Defs() []*TensorDescription {
	return slices.Clone(op.extraDefs)
}

// checkOps panics if any of the given ops is nil. Graph construction is an
// API-misuse boundary, so it panics instead of returning errors, as usual for
// graph building.
func checkOps(caller string, ops ...Op) {
	for idx, op := range ops {
		if op == nil {
			exceptions.Panicf("%s: op #%d is nil", caller, idx)
		}
	}
}
