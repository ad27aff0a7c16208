package render

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridEngineLayersTopDown(t *testing.T) {
	d, err := NewGridEngine().Render(context.Background(), "graph TD\n    A[Start] --> B[End]\n")
	require.NoError(t, err)
	require.Len(t, d.Nodes, 2)

	a, ok := d.Node("A")
	require.True(t, ok)
	b, ok := d.Node("B")
	require.True(t, ok)

	assert.Equal(t, "Start", a.Label)
	assert.Equal(t, 9.0, a.Width)
	assert.Equal(t, 7.0, b.Width)
	assert.Equal(t, 1.5, a.CenterY)
	assert.Equal(t, 7.5, b.CenterY)
	assert.Equal(t, a.CenterX, b.CenterX, "layers are centered across the flow")

	require.Len(t, d.Edges, 1)
	assert.Equal(t, []Point{{X: 4.5, Y: 3}, {X: 4.5, Y: 6}}, d.Edges[0].Points)
}

func TestGridEngineDirections(t *testing.T) {
	d, err := NewGridEngine().Render(context.Background(), "graph LR\n    A[Start] --> B[End]\n")
	require.NoError(t, err)
	a, _ := d.Node("A")
	b, _ := d.Node("B")
	assert.Equal(t, 4.5, a.CenterX)
	assert.Equal(t, 18.5, b.CenterX)
	assert.Equal(t, a.CenterY, b.CenterY)

	d, err = NewGridEngine().Render(context.Background(), "graph BT\n    A[Start] --> B[End]\n")
	require.NoError(t, err)
	a, _ = d.Node("A")
	b, _ = d.Node("B")
	assert.Equal(t, 7.5, a.CenterY)
	assert.Equal(t, 1.5, b.CenterY)
}

func TestGridEngineCycles(t *testing.T) {
	d, err := NewGridEngine().Render(context.Background(), "graph TD\n    A --> B\n    B --> A\n    B --> B\n")
	require.NoError(t, err)
	a, _ := d.Node("A")
	b, _ := d.Node("B")
	assert.Less(t, a.CenterY, b.CenterY)
	assert.Len(t, d.Edges, 3)
	assert.Len(t, d.Edges[2].Points, 5, "self loops detour around the box")
}

func TestGridEngineIncludesUndeclaredAndSubgraphNodes(t *testing.T) {
	src := "graph TD\n    subgraph S [Group]\n        X[Inside]\n        Y\n    end\n    X --> Z\n"
	d, err := NewGridEngine().Render(context.Background(), src)
	require.NoError(t, err)

	var ids []string
	for _, n := range d.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"X", "Y", "Z"}, ids)
}

func TestGridEngineFill(t *testing.T) {
	src := "graph TD\n    A --> B\n    classDef hot fill:#f00\n    class A,B hot\n    style B fill:#0f0\n"
	d, err := NewGridEngine().Render(context.Background(), src)
	require.NoError(t, err)
	a, _ := d.Node("A")
	b, _ := d.Node("B")
	assert.Equal(t, "#f00", a.Fill)
	assert.Equal(t, "#0f0", b.Fill, "style directives beat classes")
}

func TestGridEngineRejectsOtherDiagrams(t *testing.T) {
	_, err := NewGridEngine().Render(context.Background(), "sequenceDiagram\n    A->>B: hi\n")
	var unknown *UnknownDiagramError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "sequence", unknown.Type)

	_, err = NewGridEngine().Render(context.Background(), "  \n")
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "No diagram type detected", CleanErrorMessage(err.Error()))
}

func TestGridEngineHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGridEngine().Render(ctx, "graph TD\n    A\n")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	r.Register("flowchart", NewGridEngine())

	d, err := r.Render(context.Background(), "graph TD\n    A\n")
	require.NoError(t, err)
	assert.Len(t, d.Nodes, 1)

	_, err = r.Render(context.Background(), "gantt\n")
	var unknown *UnknownDiagramError
	require.True(t, errors.As(err, &unknown))

	called := false
	r.SetFallback(EngineFunc(func(context.Context, string) (*Diagram, error) {
		called = true
		return &Diagram{}, nil
	}))
	_, err = r.Render(context.Background(), "gantt\n")
	require.NoError(t, err)
	assert.True(t, called)
}
