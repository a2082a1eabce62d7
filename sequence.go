package flow

import (
	"cmp"
	"slices"
)

// Resequence orders task nodes by ascending vertical position, keeping the
// given order for equal positions, and recomputes each node's sequence
// number and previous steps. PreviousSteps lists the nearest predecessor
// first. The input is not modified.
func Resequence(tasks []Node) []Node {
	ordered := orderByPosition(tasks)
	for i := range ordered {
		var prev []PreviousStep
		for j := i - 1; j >= 0; j-- {
			prev = append(prev, PreviousStep{
				ID:             ordered[j].ID,
				Label:          ordered[j].Data.Label,
				SequenceNumber: j + 1,
			})
		}
		ordered[i].Data.SequenceNumber = i + 1
		ordered[i].Data.PreviousSteps = prev
	}
	return ordered
}

// orderByPosition returns deep copies of nodes stably sorted by Y.
func orderByPosition(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.clone()
	}
	slices.SortStableFunc(out, func(a, b Node) int {
		return cmp.Compare(a.Position.Y, b.Position.Y)
	})
	return out
}
