// Copyright 2026 The NGraph Authors. SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"k8s.io/klog/v2"

	"github.com/spillai/ngraph/ops"
	"github.com/spillai/ngraph/types"
)

// InPlacePolicy decides whether an instruction may write its output over one
// of its input buffers.
//
// This is the extension point for backends with a real in-place eligibility
// analysis. Liveness only consults it once per instruction: an instruction
// that cannot run in place must keep its input buffers live through its own
// execution, not just through its predecessor's.
type InPlacePolicy interface {
	CanDoInplace(op ops.Op) bool
}

// NeverInPlace is the conservative default policy: no instruction may reuse
// an input buffer for its output.
type NeverInPlace struct{}

// CanDoInplace implements InPlacePolicy, always false.
func (NeverInPlace) CanDoInplace(ops.Op) bool { return false }

// Liveness computes, for each instruction of the schedule, the set of tensor
// storage bases that must be resident in memory at that program point,
// because some later instruction (or a computation result) still reads them.
// A nil policy means NeverInPlace.
//
// It is a single backward pass over the linear schedule: the schedule has no
// branches, so the next instruction in the order stands in for the dataflow
// successor. At each instruction the standard recurrence applies,
// liveIn = use ∪ (liveOut − defs), with the bases of persistent ops (and of
// the computation results, at the last instruction) unconditionally live
// since they are never freed. The result is a sound over-approximation: a
// buffer absent from an instruction's set is guaranteed dead there, and a
// linear-scan placer can reuse it.
//
// The mapping has exactly one entry per instruction. An empty schedule yields
// an empty mapping. The graph is immutable, so recomputing with the same
// policy yields the same mapping; different policies may be tried
// independently.
func (g *DataFlowGraph) Liveness(policy InPlacePolicy) (map[ops.Op]types.Set[*ops.TensorDescription], error) {
	if policy == nil {
		policy = NeverInPlace{}
	}
	order, err := g.Instructions()
	if err != nil {
		return nil, err
	}
	liveness := make(map[ops.Op]types.Set[*ops.TensorDescription], len(order))
	if len(order) == 0 {
		return liveness, nil
	}

	var persistentOps []ops.Op
	for _, op := range g.order {
		if op.Persistent() {
			persistentOps = append(persistentOps, op)
		}
	}
	persistent := ops.BaseDescriptions(persistentOps)
	results := ops.BaseDescriptions(g.results)

	// Seed: after the last instruction only the results (and persistent
	// storage) remain live.
	liveness[order[len(order)-1]] = results.Union(persistent)

	// Backward pass, pairwise (current, the instruction before it).
	for idx := len(order) - 1; idx > 0; idx-- {
		current, previous := order[idx], order[idx-1]
		use := ops.BaseDescriptions(current.Args())
		defs := defBases(current)
		liveness[previous] = use.Union(liveness[current].Sub(defs)).Union(persistent)
	}

	// An instruction that cannot run in place needs its inputs alive while
	// it executes, not only up to the previous instruction.
	for _, op := range order {
		if !policy.CanDoInplace(op) {
			liveness[op] = liveness[op].Union(ops.BaseDescriptions(op.Args()))
		}
	}

	if klog.V(2).Enabled() {
		maxLive := 0
		for _, live := range liveness {
			maxLive = max(maxLive, len(live))
		}
		klog.Infof("dataflow: liveness over %d instructions, at most %d bases live at once", len(order), maxLive)
	}
	return liveness, nil
}

// defBases returns the bases of the tensor descriptions op writes to.
func defBases(op ops.Op) types.Set[*ops.TensorDescription] {
	defs := op.Defs()
	bases := types.MakeSet[*ops.TensorDescription](len(defs))
	for _, td := range defs {
		bases.Insert(td.Base())
	}
	return bases
}
