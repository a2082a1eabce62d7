package flow

import "fmt"

// CheckGraph verifies the structural invariants of a workflow graph: exactly
// one start and one end node, unique node ids, edges between existing
// nodes, no cycles, and every task node linked in and out.
func CheckGraph(g Graph) error {
	nodes := make(map[string]Node, len(g.Nodes))
	var starts, ends int
	for _, n := range g.Nodes {
		if _, dup := nodes[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrMalformedGraph, n.ID)
		}
		nodes[n.ID] = n
		switch n.Kind {
		case KindStart:
			starts++
		case KindEnd:
			ends++
		case KindTask:
			if !n.Data.TaskType.Valid() {
				return fmt.Errorf("%w: node %q has task type %q", ErrUnknownTaskType, n.ID, n.Data.TaskType)
			}
		default:
			return fmt.Errorf("%w: node %q has kind %q", ErrMalformedGraph, n.ID, n.Kind)
		}
	}
	if starts != 1 || ends != 1 {
		return fmt.Errorf("%w: want one start and one end node, got %d and %d", ErrMalformedGraph, starts, ends)
	}

	for _, e := range g.Edges {
		if _, ok := nodes[e.Source]; !ok {
			return fmt.Errorf("%w: edge %q source %q", ErrNodeNotFound, e.ID, e.Source)
		}
		if _, ok := nodes[e.Target]; !ok {
			return fmt.Errorf("%w: edge %q target %q", ErrNodeNotFound, e.ID, e.Target)
		}
	}

	if err := validateAcyclic(g.Nodes, g.Edges); err != nil {
		return err
	}

	for _, n := range g.Nodes {
		if !n.IsTask() {
			continue
		}
		in, out := incident(n.ID, g.Edges)
		if len(in) == 0 || len(out) == 0 {
			return fmt.Errorf("%w: task %q is not linked into the chain", ErrMalformedGraph, n.ID)
		}
	}
	return nil
}

// validateAcyclic checks that the edges don't form a cycle using DFS.
func validateAcyclic(nodes []Node, edges []Edge) error {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]int)
	for _, n := range nodes {
		state[n.ID] = unvisited
	}
	for _, e := range edges {
		if _, ok := state[e.Source]; !ok {
			state[e.Source] = unvisited
		}
		if _, ok := state[e.Target]; !ok {
			state[e.Target] = unvisited
		}
	}

	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for _, n := range nodes {
		if state[n.ID] == unvisited && dfs(n.ID) {
			return ErrCycleDetected
		}
	}

	return nil
}
