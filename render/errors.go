package render

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrStale is returned for a render that finished after a newer one was
// requested. Its result has been discarded.
var ErrStale = errors.New("render superseded by a newer request")

// maxMessageLength is the length above which only the first line of an
// engine message is kept.
const maxMessageLength = 200

// RenderError is an engine failure with a message fit for display.
type RenderError struct {
	Message string
	Err     error
}

func (e *RenderError) Error() string {
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// UnknownDiagramError is returned by engines for a source whose diagram type
// they cannot draw.
type UnknownDiagramError struct {
	Type string
}

func (e *UnknownDiagramError) Error() string {
	if e.Type == "" {
		return "UnknownDiagramError: No diagram type detected"
	}
	return fmt.Sprintf("UnknownDiagramError: No renderer for diagram type %q", e.Type)
}

var noisyPrefix = regexp.MustCompile(`^(?:UnknownDiagramError:|Error:|Parse error on line \d+:)\s*`)

// CleanErrorMessage strips the labels engines put in front of their
// messages and keeps only the first line of long ones.
func CleanErrorMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	for {
		stripped := noisyPrefix.ReplaceAllString(msg, "")
		if stripped == msg {
			break
		}
		msg = strings.TrimSpace(stripped)
	}
	if len(msg) > maxMessageLength {
		if first, _, ok := strings.Cut(msg, "\n"); ok {
			msg = strings.TrimSpace(first)
		}
	}
	return msg
}
