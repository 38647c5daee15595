package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// Bar renders a fixed-width bar filled to fraction of width, followed by
// the percentage.
func Bar(fraction float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(float64(width) * fraction)
	filled = max(0, min(filled, width))

	filledStr := lipgloss.NewStyle().
		Foreground(Level(fraction).GetForeground()).
		Render(strings.Repeat("█", filled))
	emptyStr := lipgloss.NewStyle().
		Foreground(Border).
		Render(strings.Repeat("░", width-filled))

	return filledStr + emptyStr + Subtitle.Render(fmt.Sprintf(" %3d%%", int(fraction*100+0.5)))
}
