package terminal

import "flowedit/diagram"

// Box is the outline of a node: top-left, top-right, bottom-left and
// bottom-right corners, then the horizontal and vertical edges.
type Box [6]rune

func outline(glyphs string) Box {
	var b Box
	copy(b[:], []rune(glyphs))
	return b
}

var (
	sharpBox  = outline("┌┐└┘─│")
	roundBox  = outline("╭╮╰╯─│")
	doubleBox = outline("╔╗╚╝═║")
	heavyBox  = outline("┏┓┗┛━┃")
	asciiBox  = outline("++++-|")
)

// shapeBoxes hints at the node shape through its outline. Other shapes
// get sharpBox.
var shapeBoxes = map[diagram.Shape]Box{
	diagram.ShapeStadium:    roundBox,
	diagram.ShapeCircle:     roundBox,
	diagram.ShapeDiamond:    doubleBox,
	diagram.ShapeHexagon:    doubleBox,
	diagram.ShapeSubroutine: heavyBox,
	diagram.ShapeCylinder:   heavyBox,
}

// BoxFor returns the outline for a node shape. ascii forces plain
// characters for terminals without box drawing glyphs.
func BoxFor(shape string, ascii bool) Box {
	if ascii {
		return asciiBox
	}
	if b, ok := shapeBoxes[diagram.Shape(shape)]; ok {
		return b
	}
	return sharpBox
}

// At returns the glyph for a cell given which sides of the box it lies on.
// Interior cells are blank.
func (b Box) At(top, bottom, left, right bool) rune {
	switch {
	case top && left:
		return b[0]
	case top && right:
		return b[1]
	case bottom && left:
		return b[2]
	case bottom && right:
		return b[3]
	case top || bottom:
		return b[4]
	case left || right:
		return b[5]
	}
	return ' '
}
