package terminal

import "strings"

// Capabilities is what the editor assumes the terminal can draw.
type Capabilities struct {
	Name    string
	Unicode bool // box drawing glyphs and arrow heads
	Color   bool // cell backgrounds for node fills
}

// DetectCapabilities inspects the environment through getenv, usually
// os.Getenv. FLOWEDIT_TERMINAL_MODE=ascii or =unicode overrides detection.
func DetectCapabilities(getenv func(string) string) Capabilities {
	switch getenv("FLOWEDIT_TERMINAL_MODE") {
	case "ascii":
		return Capabilities{Name: "ascii"}
	case "unicode":
		return Capabilities{Name: "unicode", Unicode: true, Color: true}
	}

	term := getenv("TERM")
	caps := Capabilities{
		Name:    terminalName(getenv, term),
		Unicode: utf8Locale(getenv),
		Color:   term != "" && term != "dumb",
	}
	// The Linux console has no box drawing font
	if term == "linux" || term == "dumb" {
		caps.Unicode = false
	}
	if getenv("NO_COLOR") != "" {
		caps.Color = false
	}
	return caps
}

// terminalName identifies well known emulators, falling back to TERM.
func terminalName(getenv func(string) string, term string) string {
	switch {
	case getenv("WT_SESSION") != "":
		return "windows-terminal"
	case getenv("TERM_PROGRAM") == "iTerm.app":
		return "iterm2"
	case getenv("TERM_PROGRAM") == "Apple_Terminal":
		return "terminal.app"
	case getenv("WEZTERM_EXECUTABLE") != "":
		return "wezterm"
	case getenv("KONSOLE_VERSION") != "":
		return "konsole"
	case getenv("VTE_VERSION") != "":
		return "vte-based"
	case strings.HasPrefix(term, "xterm-kitty"):
		return "kitty"
	case getenv("TMUX") != "":
		return "tmux"
	}
	return term
}

// utf8Locale reports whether the first set locale variable names UTF-8,
// e.g. en_US.UTF-8 or C.utf8@euro.
func utf8Locale(getenv func(string) string) bool {
	for _, name := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		value := getenv(name)
		if value == "" {
			continue
		}
		upper := strings.ToUpper(value)
		return strings.Contains(upper, "UTF-8") || strings.Contains(upper, "UTF8")
	}
	return false
}
