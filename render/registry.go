package render

import (
	"context"
	"strings"

	"flowedit/diagram"
	"flowedit/parser"
)

// Registry dispatches rendering to an engine by diagram type.
type Registry struct {
	engines  map[diagram.DiagramType]Engine
	fallback Engine
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[diagram.DiagramType]Engine),
	}
}

// Register adds an engine for a diagram type, replacing any earlier one.
func (r *Registry) Register(t diagram.DiagramType, engine Engine) {
	r.engines[t] = engine
}

// SetFallback sets the engine used when no specific engine matches.
func (r *Registry) SetFallback(engine Engine) {
	r.fallback = engine
}

// EngineFor returns the engine for a diagram type.
func (r *Registry) EngineFor(t diagram.DiagramType) (Engine, error) {
	if engine, ok := r.engines[t]; ok {
		return engine, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, &UnknownDiagramError{Type: string(t)}
}

// Render detects the diagram type of source and renders it with the
// matching engine.
func (r *Registry) Render(ctx context.Context, source string) (*Diagram, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &UnknownDiagramError{}
	}
	engine, err := r.EngineFor(parser.Parse(source).Type)
	if err != nil {
		return nil, err
	}
	return engine.Render(ctx, source)
}
