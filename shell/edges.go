package shell

// Edges describes which edge (or corner) of a window an interactive resize
// is dragging. The values match the xdg-shell resize_edge enum, so corner
// values are just the OR of their two edges.
type Edges uint32

const (
	EdgeNone   Edges = 0
	EdgeTop    Edges = 1
	EdgeBottom Edges = 2
	EdgeLeft   Edges = 4
	EdgeRight  Edges = 8

	EdgeTopLeft     = EdgeTop | EdgeLeft
	EdgeBottomLeft  = EdgeBottom | EdgeLeft
	EdgeTopRight    = EdgeTop | EdgeRight
	EdgeBottomRight = EdgeBottom | EdgeRight
)

// Valid reports whether e is one of the eight combinations a client may
// request: the four single edges or the four corners. EdgeNone and
// contradictory sets (e.g. top|bottom) are rejected.
func (e Edges) Valid() bool {
	switch e {
	case EdgeTop, EdgeBottom, EdgeLeft, EdgeRight,
		EdgeTopLeft, EdgeBottomLeft, EdgeTopRight, EdgeBottomRight:
		return true
	}
	return false
}

// Intersects reports whether e shares at least one edge with other
func (e Edges) Intersects(other Edges) bool {
	return e&other != 0
}

func (e Edges) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	case EdgeTopLeft:
		return "top-left"
	case EdgeBottomLeft:
		return "bottom-left"
	case EdgeTopRight:
		return "top-right"
	case EdgeBottomRight:
		return "bottom-right"
	}
	return "invalid"
}
