package flow

// Layout holds the constants of the vertical stack layout.
type Layout struct {
	VerticalSpacing float64 `json:"verticalSpacing"`
	StartY          float64 `json:"startY"`
	CenterX         float64 `json:"centerX"`
	TaskWidth       float64 `json:"taskWidth"`
	TerminalWidth   float64 `json:"terminalWidth"`
}

// DefaultLayout returns the layout used by the editor canvas.
func DefaultLayout() Layout {
	return Layout{
		VerticalSpacing: 150,
		StartY:          50,
		CenterX:         400,
		TaskWidth:       280,
		TerminalWidth:   120,
	}
}

func (l Layout) width(k NodeKind) float64 {
	if k == KindTask {
		return l.TaskWidth
	}
	return l.TerminalWidth
}

// Arrange assigns stack coordinates to nodes, which must already be in chain
// order. Every node is centred on CenterX whatever its width. The input is
// not modified.
func Arrange(nodes []Node, l Layout) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		n = n.clone()
		n.Position = Position{
			X: l.CenterX - l.width(n.Kind)/2,
			Y: l.StartY + float64(i)*l.VerticalSpacing,
		}
		out[i] = n
	}
	return out
}
