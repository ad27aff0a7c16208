package generator

import (
	"strings"

	"flowedit/diagram"
)

// colorKeys are the style properties whose hex values get normalized.
var colorKeys = map[string]bool{
	"fill":   true,
	"stroke": true,
	"color":  true,
}

// NormalizeColor expands a short hex color to #rrggbb.
//
//	#f     -> #ffffff
//	#ab    -> #ababab
//	#f0f   -> #ff00ff
//	#abcd  -> #abcd00
//
// Six digit values, values longer than six digits, a bare "#" and anything
// not starting with "#" are returned unchanged.
func NormalizeColor(value string) string {
	if !strings.HasPrefix(value, "#") {
		return value
	}
	hex := value[1:]
	switch n := len(hex); {
	case n == 0 || n >= 6:
		return value
	case n == 1:
		return "#" + strings.Repeat(hex, 6)
	case n == 2:
		return "#" + strings.Repeat(hex, 3)
	case n == 3:
		var b strings.Builder
		b.WriteByte('#')
		for i := 0; i < 3; i++ {
			b.WriteByte(hex[i])
			b.WriteByte(hex[i])
		}
		return b.String()
	default:
		return "#" + hex + strings.Repeat("0", 6-n)
	}
}

// formatProps renders props as "k:v,k:v". Colors are normalized. Class
// definitions drop the px unit from stroke-width; per-node styles keep it.
func formatProps(props diagram.StyleProps, classDef bool) string {
	parts := make([]string, 0, len(props))
	for _, prop := range props {
		value := prop.Value
		if colorKeys[prop.Key] {
			value = NormalizeColor(value)
		}
		if classDef && prop.Key == "stroke-width" {
			value = strings.TrimSuffix(value, "px")
		}
		parts = append(parts, prop.Key+":"+value)
	}
	return strings.Join(parts, ",")
}
