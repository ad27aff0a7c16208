package parser

import (
	"regexp"
	"strings"

	"flowedit/diagram"
)

// ParseStyles splits a "k:v,k:v" list. Segments without a colon or with an
// empty key are dropped.
func ParseStyles(list string) diagram.StyleProps {
	var props diagram.StyleProps
	for _, segment := range strings.Split(list, ",") {
		key, value, ok := strings.Cut(segment, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		props = append(props, diagram.StyleProp{Key: key, Value: strings.TrimSpace(value)})
	}
	return props
}

var themeVariablesPattern = regexp.MustCompile(`themeVariables['"]?\s*:\s*\{([^}]*)\}`)

// ParseTheme extracts the themeVariables object from an init header such as
// %%{init: {'themeVariables': {'primaryColor': '#ff0000'}}}%%. Quotes are
// stripped from keys and values.
func ParseTheme(line string) map[string]string {
	vars := make(map[string]string)
	m := themeVariablesPattern.FindStringSubmatch(line)
	if m == nil {
		return vars
	}
	for _, segment := range strings.Split(m[1], ",") {
		key, value, ok := strings.Cut(segment, ":")
		if !ok {
			continue
		}
		key = unquote(key)
		if key == "" {
			continue
		}
		vars[key] = unquote(value)
	}
	return vars
}

// ThemeVariablesSpan returns the byte range of the themeVariables object
// body inside line, or false when the header carries none.
func ThemeVariablesSpan(line string) (start, end int, ok bool) {
	loc := themeVariablesPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return 0, 0, false
	}
	return loc[2], loc[3], true
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `'"`)
}
