package transport

import (
	"context"
	"fmt"
)

// Methods and events of the document host protocol.
const (
	MethodLoad = "document/load"
	MethodSave = "document/save"

	EventChanged = "document/changed"
	EventSaved   = "document/saved"
)

// Document is the payload of load results, save requests and document
// events.
type Document struct {
	Path   string `json:"path" msgpack:"path"`
	Source string `json:"source,omitempty" msgpack:"source,omitempty"`
}

// DocumentService loads and saves one document through a Client.
type DocumentService struct {
	client *Client
	path   string
}

// NewDocumentService binds a client to the document at path.
func NewDocumentService(client *Client, path string) *DocumentService {
	return &DocumentService{client: client, path: path}
}

// Load fetches the current source.
func (s *DocumentService) Load(ctx context.Context) (string, error) {
	var doc Document
	if err := s.client.Call(ctx, MethodLoad, Document{Path: s.path}, &doc); err != nil {
		return "", fmt.Errorf("load %s: %w", s.path, err)
	}
	return doc.Source, nil
}

// Save stores source.
func (s *DocumentService) Save(ctx context.Context, source string) error {
	if err := s.client.Call(ctx, MethodSave, Document{Path: s.path, Source: source}, nil); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}

// OnChangedExternally calls fn with the new source whenever the host
// reports that the document was changed by someone else.
func (s *DocumentService) OnChangedExternally(fn func(source string)) {
	s.client.On(EventChanged, func(p Params) {
		var doc Document
		if err := p.Decode(&doc); err != nil || !s.matches(doc) {
			return
		}
		fn(doc.Source)
	})
}

// OnSaved calls fn when the host confirms a save.
func (s *DocumentService) OnSaved(fn func()) {
	s.client.On(EventSaved, func(p Params) {
		var doc Document
		if err := p.Decode(&doc); err != nil || !s.matches(doc) {
			return
		}
		fn()
	})
}

// matches accepts events for our path and events that name no path.
func (s *DocumentService) matches(doc Document) bool {
	return doc.Path == "" || doc.Path == s.path
}
