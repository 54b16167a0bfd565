// Copyright 2026 The NGraph Authors. SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/spillai/ngraph/ops"
)

// MemoryProfile summarizes the memory pressure of a schedule: the total bytes
// of live tensor bases at each instruction, before any buffer reuse. It gives
// an upper bound on what a placer needs and points at the instruction where
// pressure peaks.
type MemoryProfile struct {
	// Instructions is the schedule the profile was computed over.
	Instructions []ops.Op

	// LiveBytes has one entry per instruction: the total bytes of the bases
	// live at that point.
	LiveBytes []uintptr

	// PeakBytes is the largest entry of LiveBytes, and PeakAt the first
	// instruction where it occurs. PeakAt is nil for an empty schedule.
	PeakBytes uintptr
	PeakAt    ops.Op
}

// MemoryProfile computes the live-memory profile of the computation under the
// given in-place policy (nil means NeverInPlace).
func (g *DataFlowGraph) MemoryProfile(policy InPlacePolicy) (*MemoryProfile, error) {
	order, err := g.Instructions()
	if err != nil {
		return nil, err
	}
	liveness, err := g.Liveness(policy)
	if err != nil {
		return nil, err
	}
	profile := &MemoryProfile{
		Instructions: order,
		LiveBytes:    make([]uintptr, len(order)),
	}
	for idx, op := range order {
		var total uintptr
		for td := range liveness[op] {
			total += td.Shape().Memory()
		}
		profile.LiveBytes[idx] = total
		if total > profile.PeakBytes {
			profile.PeakBytes = total
			profile.PeakAt = op
		}
	}
	return profile, nil
}

// String implements fmt.Stringer, e.g.
// "MemoryProfile: peak of 1.2 MB at "conv1" (12 instructions)".
func (p *MemoryProfile) String() string {
	if p.PeakAt == nil {
		return "MemoryProfile: empty computation"
	}
	return fmt.Sprintf("MemoryProfile: peak of %s at %q (%d instructions)",
		humanize.Bytes(uint64(p.PeakBytes)), p.PeakAt.Name(), len(p.Instructions))
}
