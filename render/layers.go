package render

// backEdge is an edge that closes a cycle in depth-first order.
type backEdge struct {
	from, to string
}

// graph is the adjacency view of a diagram used for layering. order holds
// node ids in declaration order and is used for every tie break.
type graph struct {
	order    []string
	outgoing map[string][]string
}

func newGraph() *graph {
	return &graph{outgoing: make(map[string][]string)}
}

func (g *graph) addNode(id string) {
	if _, ok := g.outgoing[id]; ok {
		return
	}
	g.outgoing[id] = nil
	g.order = append(g.order, id)
}

func (g *graph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	if from == to {
		return
	}
	g.outgoing[from] = append(g.outgoing[from], to)
}

// assignLayers returns nodes grouped into layers so that every edge not
// closing a cycle points from an earlier layer to a later one.
func (g *graph) assignLayers() [][]string {
	backEdges := g.findBackEdges()
	isBack := make(map[backEdge]bool, len(backEdges))
	for _, e := range backEdges {
		isBack[e] = true
	}

	// Drop back edges so the rest is a DAG
	outgoing := make(map[string][]string, len(g.outgoing))
	for from, targets := range g.outgoing {
		for _, to := range targets {
			if !isBack[backEdge{from, to}] {
				outgoing[from] = append(outgoing[from], to)
			}
		}
	}
	return g.assignLayersDAG(outgoing)
}

func (g *graph) findBackEdges() []backEdge {
	var backEdges []backEdge
	visited := make(map[string]int) // 0=unvisited, 1=visiting, 2=visited

	var dfs func(id string)
	dfs = func(id string) {
		visited[id] = 1
		for _, next := range g.outgoing[id] {
			switch visited[next] {
			case 1:
				backEdges = append(backEdges, backEdge{from: id, to: next})
			case 0:
				dfs(next)
			}
		}
		visited[id] = 2
	}

	for _, id := range g.order {
		if visited[id] == 0 {
			dfs(id)
		}
	}
	return backEdges
}

// assignLayersDAG is Kahn's algorithm, one layer per round. Each node lands
// one layer below its deepest predecessor.
func (g *graph) assignLayersDAG(outgoing map[string][]string) [][]string {
	inDegree := make(map[string]int, len(g.order))
	for _, targets := range outgoing {
		for _, to := range targets {
			inDegree[to]++
		}
	}

	var queue []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var layers [][]string
	assigned := make(map[string]bool, len(g.order))
	for len(queue) > 0 {
		layers = append(layers, queue)
		for _, id := range queue {
			assigned[id] = true
		}

		ready := make(map[string]bool)
		for _, id := range queue {
			for _, next := range outgoing[id] {
				inDegree[next]--
				if inDegree[next] == 0 && !assigned[next] {
					ready[next] = true
				}
			}
		}

		// Keep declaration order inside a layer
		var next []string
		for _, id := range g.order {
			if ready[id] {
				next = append(next, id)
			}
		}
		queue = next
	}

	// Anything left sat on a cycle the back edge pass missed; give it its
	// own trailing layer.
	var remaining []string
	for _, id := range g.order {
		if !assigned[id] {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) > 0 {
		layers = append(layers, remaining)
	}
	return layers
}
