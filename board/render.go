package board

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// Render draws the board with row and column labels. Stones are coloured for
// profiles that support it; termenv.Ascii yields plain text.
func (pos *Position) Render(profile termenv.Profile) string {
	size := pos.geo.size
	var sb strings.Builder

	header := func() {
		sb.WriteString("   ")
		for x := 0; x < size; x++ {
			sb.WriteByte(' ')
			sb.WriteByte(columns[x])
		}
		sb.WriteByte('\n')
	}

	black := profile.String("X").Foreground(profile.Color("#000000")).Background(profile.Color("#d7af5f")).Bold()
	white := profile.String("O").Foreground(profile.Color("#ffffff")).Background(profile.Color("#d7af5f")).Bold()
	ko := profile.String("*").Foreground(profile.Color("#d70000"))

	header()
	for y := size - 1; y >= 0; y-- {
		row := y + 1
		fmt.Fprintf(&sb, "%2d ", row)
		for x := 0; x < size; x++ {
			p := PointAt(size, x, y)
			sb.WriteByte(' ')
			switch {
			case pos.stones[p] == Black:
				sb.WriteString(black.String())
			case pos.stones[p] == White:
				sb.WriteString(white.String())
			case p == pos.ko:
				sb.WriteString(ko.String())
			default:
				sb.WriteByte('.')
			}
		}
		fmt.Fprintf(&sb, " %d\n", row)
	}
	header()
	return sb.String()
}

func (pos *Position) String() string {
	return pos.Render(termenv.Ascii)
}
