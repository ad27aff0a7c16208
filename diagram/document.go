package diagram

import "slices"

// FindNode returns the index of the top-level node with the given id, or -1.
func (d *Document) FindNode(id string) int {
	for i, node := range d.Nodes {
		if node.ID == id {
			return i
		}
	}
	return -1
}

// findSubgraphNode locates a node declared inside a subgraph body.
func (d *Document) findSubgraphNode(id string) (sg, idx int) {
	for i := range d.Subgraphs {
		for j, node := range d.Subgraphs[i].Nodes {
			if node.ID == id {
				return i, j
			}
		}
	}
	return -1, -1
}

// HasEdge reports whether an edge from -> to already exists. Direction
// matters: (A, B) does not match (B, A).
func (d *Document) HasEdge(from, to string) bool {
	for _, edge := range d.Edges {
		if edge.From == from && edge.To == to {
			return true
		}
	}
	return false
}

// AddNode appends a new node with a generated id and returns that id.
func (d *Document) AddNode(label string, shape Shape) string {
	id := d.NextNodeID()
	if label == "" {
		label = id
	}
	if shape == "" {
		shape = ShapeRectangle
	}
	d.Nodes = append(d.Nodes, Node{
		ID:         id,
		Label:      label,
		Shape:      shape,
		SourceLine: NewLine,
	})
	return id
}

// DeleteNode removes a node, top-level or declared in a subgraph, together
// with every edge touching it, its "style-<id>" class definition, every class
// application naming it and its style directives. Returns false if the node does not exist.
func (d *Document) DeleteNode(id string) bool {
	return d.DeleteMultiple([]string{id}, nil)
}

// DeleteEdge removes the edge at index and shifts the link styles above it
// down by one.
func (d *Document) DeleteEdge(index int) bool {
	if index < 0 || index >= len(d.Edges) {
		return false
	}
	d.Edges = slices.Delete(d.Edges, index, index+1)

	shifted := make(map[int]LinkStyle, len(d.LinkStyles))
	for j, style := range d.LinkStyles {
		switch {
		case j < index:
			shifted[j] = style
		case j > index:
			shifted[j-1] = style
		}
	}
	d.LinkStyles = shifted
	return true
}

// DeleteMultiple removes a set of nodes (with the same cascade as
// DeleteNode) and a set of edge indexes in one pass. Surviving edges are
// renumbered and each keeps the link style it had before.
func (d *Document) DeleteMultiple(nodeIDs []string, edgeIndices []int) bool {
	doomedNodes := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		if sg, _ := d.findSubgraphNode(id); d.FindNode(id) >= 0 || sg >= 0 {
			doomedNodes[id] = true
		}
	}
	doomedEdges := make(map[int]bool, len(edgeIndices))
	for _, i := range edgeIndices {
		if i >= 0 && i < len(d.Edges) {
			doomedEdges[i] = true
		}
	}
	if len(doomedNodes) == 0 && len(doomedEdges) == 0 {
		return false
	}

	// Remove nodes
	if len(doomedNodes) > 0 {
		d.Nodes = slices.DeleteFunc(d.Nodes, func(n Node) bool { return doomedNodes[n.ID] })
		for i := range d.Subgraphs {
			sg := &d.Subgraphs[i]
			sg.Nodes = slices.DeleteFunc(sg.Nodes, func(n Node) bool { return doomedNodes[n.ID] })
			sg.ContainedNodeIDs = slices.DeleteFunc(sg.ContainedNodeIDs, func(id string) bool { return doomedNodes[id] })
		}
	}

	// Rebuild edges and link styles from the keep-set
	keptEdges := make([]Edge, 0, len(d.Edges))
	keptStyles := make(map[int]LinkStyle, len(d.LinkStyles))
	for old, edge := range d.Edges {
		if doomedEdges[old] || doomedNodes[edge.From] || doomedNodes[edge.To] {
			continue
		}
		if style, ok := d.LinkStyles[old]; ok {
			keptStyles[len(keptEdges)] = style
		}
		keptEdges = append(keptEdges, edge)
	}
	d.Edges = keptEdges
	d.LinkStyles = keptStyles

	if len(doomedNodes) == 0 {
		return true
	}

	d.ClassDefs = slices.DeleteFunc(d.ClassDefs, func(c ClassDef) bool {
		for id := range doomedNodes {
			if c.Name == "style-"+id {
				return true
			}
		}
		return false
	})

	// An application naming a deleted node is dropped as a whole.
	apps := d.ClassApplications[:0]
	for _, app := range d.ClassApplications {
		if !slices.ContainsFunc(app.NodeIDs, func(id string) bool { return doomedNodes[id] }) {
			apps = append(apps, app)
		}
	}
	d.ClassApplications = apps

	d.NodeStyles = slices.DeleteFunc(d.NodeStyles, func(s NodeStyle) bool { return doomedNodes[s.NodeID] })
	return true
}

// RenameNode overwrites a node label. Nodes declared inside subgraphs are
// renamed too. The label is taken verbatim.
func (d *Document) RenameNode(id, label string) bool {
	if i := d.FindNode(id); i >= 0 {
		if d.Nodes[i].Label == label {
			return false
		}
		d.Nodes[i].Label = label
		return true
	}
	if sg, j := d.findSubgraphNode(id); sg >= 0 {
		if d.Subgraphs[sg].Nodes[j].Label == label {
			return false
		}
		d.Subgraphs[sg].Nodes[j].Label = label
		return true
	}
	return false
}

// RenameEdge overwrites the label of the edge at index.
func (d *Document) RenameEdge(index int, label string) bool {
	if index < 0 || index >= len(d.Edges) || d.Edges[index].Label == label {
		return false
	}
	d.Edges[index].Label = label
	return true
}

// Connect appends an arrow from -> to unless that exact pair already exists.
func (d *Document) Connect(from, to string) bool {
	if d.HasEdge(from, to) {
		return false
	}
	d.Edges = append(d.Edges, Edge{
		From:       from,
		To:         to,
		Kind:       EdgeArrow,
		SourceLine: NewLine,
	})
	return true
}

// SetNodeStyle replaces the "style <id>" directive for a node, adding one if
// none exists. Empty props remove the directive.
func (d *Document) SetNodeStyle(id string, props StyleProps) bool {
	for i, style := range d.NodeStyles {
		if style.NodeID != id {
			continue
		}
		if len(props) == 0 {
			d.NodeStyles = slices.Delete(d.NodeStyles, i, i+1)
			return true
		}
		if style.Props.Equal(props) {
			return false
		}
		d.NodeStyles[i].Props = props.Clone()
		return true
	}
	if len(props) == 0 {
		return false
	}
	d.NodeStyles = append(d.NodeStyles, NodeStyle{
		NodeID:     id,
		Props:      props.Clone(),
		SourceLine: NewLine,
	})
	return true
}

// SetThemeVariable sets one theme variable. An empty value removes it.
func (d *Document) SetThemeVariable(key, value string) bool {
	if d.ThemeVariables == nil {
		d.ThemeVariables = make(map[string]string)
	}
	current, ok := d.ThemeVariables[key]
	if value == "" {
		if !ok {
			return false
		}
		delete(d.ThemeVariables, key)
		return true
	}
	if ok && current == value {
		return false
	}
	d.ThemeVariables[key] = value
	return true
}
