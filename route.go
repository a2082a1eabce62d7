package flow

import "fmt"

// EdgeID is the id convention for an edge between two nodes.
func EdgeID(source, target string) string {
	return fmt.Sprintf("e-%s-%s", source, target)
}

// Split replaces the edge S→T identified by edgeID with S→N and N→T, where N
// is newNodeID. Both new edges inherit the rendering metadata of the
// replaced edge. Stale edges already carrying either new id are dropped.
func Split(edgeID, newNodeID string, edges []Edge) ([]Edge, error) {
	idx := -1
	for i, e := range edges {
		if e.ID == edgeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeID)
	}

	anchor := edges[idx]
	head := anchor.clone()
	head.Target = newNodeID
	head.ID = EdgeID(head.Source, head.Target)
	tail := anchor.clone()
	tail.Source = newNodeID
	tail.ID = EdgeID(tail.Source, tail.Target)

	out := make([]Edge, 0, len(edges)+1)
	for i, e := range edges {
		switch {
		case i == idx:
			out = append(out, head, tail)
		case e.ID == head.ID || e.ID == tail.ID:
		default:
			out = append(out, e.clone())
		}
	}
	return out, nil
}

// Bridge removes every edge touching removedID and joins each former
// predecessor to each former successor, so no neighbour is left without the
// link it had through the removed node. Each bridge takes the place of the
// inbound edge it replaces and carries that edge's metadata. Stale edges
// already carrying a bridge id are dropped.
func Bridge(removedID string, edges []Edge) []Edge {
	in, out := incident(removedID, edges)

	ids := make(map[string]bool, len(in)*len(out))
	for _, i := range in {
		for _, o := range out {
			if i.Source != removedID && o.Target != removedID {
				ids[EdgeID(i.Source, o.Target)] = true
			}
		}
	}

	emitted := make(map[string]bool, len(ids))
	result := make([]Edge, 0, len(edges))
	for _, e := range edges {
		switch {
		case e.Source == removedID:
		case e.Target == removedID:
			for _, o := range out {
				if o.Target == removedID {
					continue
				}
				b := e.clone()
				b.Target = o.Target
				b.ID = EdgeID(b.Source, b.Target)
				if emitted[b.ID] {
					continue
				}
				emitted[b.ID] = true
				result = append(result, b)
			}
		case ids[e.ID]:
		default:
			result = append(result, e.clone())
		}
	}
	return result
}

// incident returns the inbound and outbound edges of a node.
func incident(nodeID string, edges []Edge) (in, out []Edge) {
	for _, e := range edges {
		if e.Target == nodeID {
			in = append(in, e)
		}
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return in, out
}
