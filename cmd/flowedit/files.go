package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// textFile persists a whole file as the diagram source.
type textFile struct {
	path string
}

func (f *textFile) Load(context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.path, err)
	}
	return string(data), nil
}

func (f *textFile) Save(_ context.Context, source string) error {
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(f.path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := os.WriteFile(f.path, []byte(source), perm); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// printer stands in for the file when results go to stdout instead.
type printer struct {
	w      io.Writer
	source string
}

func (p *printer) Load(context.Context) (string, error) {
	return p.source, nil
}

func (p *printer) Save(_ context.Context, source string) error {
	p.source = source
	_, err := io.WriteString(p.w, source)
	return err
}
