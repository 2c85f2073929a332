package pdg

// BFS returns the nodes reachable from the start node in breadth-first order.
// Successors are visited in insertion order so the result is reproducible.
func BFS(g *Graph) []*Node {
	start := g.Start()
	if start == nil {
		return nil
	}

	visited := map[int64]bool{start.ID: true}
	queue := []int64{start.ID}
	result := make([]*Node, 0, g.Len())

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, g.nodes[current])

		for _, next := range g.succ[current] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	return result
}

// CollectNodes is the canonical node enumeration used by the matchers:
// BFS order from the start node followed by any unreachable nodes in insertion order.
func CollectNodes(g *Graph) []*Node {
	nodes := BFS(g)
	if len(nodes) == g.Len() {
		return nodes
	}

	seen := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		seen[n.ID] = true
	}
	for _, id := range g.order {
		if !seen[id] {
			nodes = append(nodes, g.nodes[id])
		}
	}
	return nodes
}

// Neighbors returns the ids of successors and predecessors of a node, without duplicates
func Neighbors(g *Graph, id int64) []int64 {
	seen := make(map[int64]bool)
	var result []int64
	for _, list := range [][]int64{g.succ[id], g.pred[id]} {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				result = append(result, n)
			}
		}
	}
	return result
}
