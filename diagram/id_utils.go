package diagram

import "fmt"

// KnownIDs collects every node id the document mentions: top-level nodes,
// subgraph members and edge endpoints.
func (d *Document) KnownIDs() map[string]bool {
	ids := make(map[string]bool, len(d.Nodes)+2*len(d.Edges))
	for _, node := range d.Nodes {
		ids[node.ID] = true
	}
	for _, sg := range d.Subgraphs {
		for _, id := range sg.ContainedNodeIDs {
			ids[id] = true
		}
	}
	for _, edge := range d.Edges {
		ids[edge.From] = true
		ids[edge.To] = true
	}
	return ids
}

// NextNodeID returns the first unused single letter A-Z. Once all letters
// are taken it falls back to Node<N>, starting at 26 and counting up until
// an unused id is found.
func (d *Document) NextNodeID() string {
	used := d.KnownIDs()

	attempts := 0
	for c := 'A'; c <= 'Z'; c++ {
		id := string(c)
		if !used[id] {
			return id
		}
		attempts++
	}

	for n := attempts; ; n++ {
		id := fmt.Sprintf("Node%d", n)
		if !used[id] {
			return id
		}
	}
}
