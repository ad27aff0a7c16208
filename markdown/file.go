package markdown

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// BlockFile loads and saves one mermaid block of a markdown file. A save
// fails if the block was changed on disk since it was last loaded.
type BlockFile struct {
	Path  string
	Index int

	mu   sync.Mutex
	last *Block
}

// Load reads the block source.
func (f *BlockFile) Load(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Path, err)
	}
	block, err := NewScanner(string(data)).Block(f.Index)
	if err != nil {
		return "", fmt.Errorf("%s: %w", f.Path, err)
	}

	f.mu.Lock()
	f.last = &block
	f.mu.Unlock()
	return block.Source, nil
}

// Save writes source into the block, keeping the rest of the file.
func (f *BlockFile) Save(_ context.Context, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return fmt.Errorf("%s: block %d was never loaded", f.Path, f.Index)
	}

	info, err := os.Stat(f.Path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", f.Path, err)
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.Path, err)
	}

	scanner := NewScanner(string(data))
	content, err := scanner.Replace(*f.last, source)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Path, err)
	}
	if err := os.WriteFile(f.Path, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", f.Path, err)
	}

	block, err := scanner.Block(f.Index)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Path, err)
	}
	f.last = &block
	return nil
}
