// Command flowedit edits Mermaid flowcharts in place: one-shot structural
// edits from the command line, or an interactive terminal editor.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
