package theme

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, Good.GetForeground(), Level(0.95).GetForeground())
	assert.Equal(t, Warn.GetForeground(), Level(0.5).GetForeground())
	assert.Equal(t, Bad.GetForeground(), Level(0.1).GetForeground())
}

func TestBar_Width(t *testing.T) {
	for _, f := range []float64{-0.2, 0, 0.33, 1, 1.4} {
		bar := Bar(f, 20)
		assert.Equal(t, 20+5, lipgloss.Width(bar), "fraction %v", f)
	}
	assert.Contains(t, Bar(0.5, 10), "50%")
}

func TestTable_AlignsColumns(t *testing.T) {
	out := NewTable("KC", "Mastery").
		Row("fractions", "0.50").
		Row("algebra-linear", Good.Render("0.90")).
		Row("short").
		String()

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 4)

	// Columns pad to the widest cell plus a two-space gutter.
	assert.Equal(t, 14+2+7, lipgloss.Width(lines[0]))
	assert.Equal(t, 14+2+4, lipgloss.Width(lines[1]))
	assert.Equal(t, 14+2+4, lipgloss.Width(lines[2]))
	assert.Contains(t, lines[3], "short")
}

func TestTable_Len(t *testing.T) {
	tbl := NewTable("a", "b")
	assert.Zero(t, tbl.Len())
	tbl.Row("1", "2", "3")
	assert.Equal(t, 1, tbl.Len())
}
