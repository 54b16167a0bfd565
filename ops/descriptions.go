// Copyright 2026 The NGraph Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/spillai/ngraph/types"
	"github.com/spillai/ngraph/types/shapes"
)

// TensorDescription describes a tensor value: its name, its shape and the
// storage region that backs it.
//
// Views (reshapes, slices, broadcasts over the same data) get their own
// TensorDescription but share the storage of the description they were
// derived from. Base returns that shared root: two descriptions alias the
// same memory iff their bases are the same pointer. Liveness and buffer
// placement operate on bases, never on individual descriptions, so that a
// buffer is not released while a view of it is still needed.
type TensorDescription struct {
	name  string
	shape shapes.Shape

	// base is the root description of a view chain, nil if this description
	// is itself a base.
	base *TensorDescription
}

// NewTensorDescription creates the description of a new tensor with its own
// storage. It panics if shape is invalid.
func NewTensorDescription(name string, shape shapes.Shape) *TensorDescription {
	if !shape.Ok() {
		exceptions.Panicf("NewTensorDescription(%q): invalid shape", name)
	}
	return &TensorDescription{name: name, shape: shape}
}

// Name of the tensor.
func (td *TensorDescription) Name() string { return td.name }

// Shape of the tensor. For a view this is the view's shape, not the base's.
func (td *TensorDescription) Shape() shapes.Shape { return td.shape }

// Base returns the root description whose storage backs this tensor: itself
// for a non-view, the origin of the view chain otherwise. Base identity (by
// pointer) is what the liveness analysis tracks.
func (td *TensorDescription) Base() *TensorDescription {
	if td.base == nil {
		return td
	}
	return td.base
}

// IsView returns whether this description aliases another description's
// storage.
func (td *TensorDescription) IsView() bool { return td.base != nil }

// View derives a description with the given shape sharing this description's
// storage. Views of views share the original base; there are no chains of
// bases. It panics if the view would need more memory than the base provides.
func (td *TensorDescription) View(name string, shape shapes.Shape) *TensorDescription {
	if !shape.Ok() {
		exceptions.Panicf("TensorDescription(%q).View(%q): invalid shape", td.name, name)
	}
	base := td.Base()
	if shape.Memory() > base.shape.Memory() {
		exceptions.Panicf("TensorDescription(%q).View(%q): view shape %s needs more memory than base shape %s",
			td.name, name, shape, base.shape)
	}
	return &TensorDescription{name: name, shape: shape, base: base}
}

// String implements fmt.Stringer.
func (td *TensorDescription) String() string {
	if td.IsView() {
		return fmt.Sprintf("%s%s (view of %s)", td.name, td.shape, td.base.name)
	}
	return fmt.Sprintf("%s%s", td.name, td.shape)
}

// BaseDescriptions returns the set of base tensor descriptions of the outputs
// of a collection of ops. Ops that don't produce a tensor value contribute
// nothing.
func BaseDescriptions(ops []Op) types.Set[*TensorDescription] {
	bases := types.MakeSet[*TensorDescription](len(ops))
	for _, op := range ops {
		if td := op.TensorDescription(); td != nil {
			bases.Insert(td.Base())
		}
	}
	return bases
}
