package main

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"trenchline.gg/internal/board"
	"trenchline.gg/internal/grid"
)

// renderBoard draws saved records as a text grid, one fixed-width cell per
// slot. Empty slots print as dots. Row 0 is printed first.
func renderBoard(records map[grid.Coord]board.Record, cellWidth int) string {
	if cellWidth < 3 {
		cellWidth = 3
	}
	if len(records) == 0 {
		return "(empty board)\n"
	}
	cols, rows := 0, 0
	for c := range records {
		if c.X+1 > cols {
			cols = c.X + 1
		}
		if c.Y+1 > rows {
			rows = c.Y + 1
		}
	}

	var b strings.Builder
	sep := "+" + strings.Repeat(strings.Repeat("-", cellWidth)+"+", cols) + "\n"
	b.WriteString(sep)
	for y := 0; y < rows; y++ {
		b.WriteString("|")
		for x := 0; x < cols; x++ {
			text := "."
			if r, ok := records[grid.Coord{X: x, Y: y}]; ok {
				text = r.SoldierTypeName + "·" + tierMark(r.SoldierTierName)
			}
			text = runewidth.Truncate(text, cellWidth, "…")
			b.WriteString(runewidth.FillRight(text, cellWidth))
			b.WriteString("|")
		}
		b.WriteString("\n")
		b.WriteString(sep)
	}
	return b.String()
}

func tierMark(tier string) string {
	switch tier {
	case "Common":
		return "C"
	case "Uncommon":
		return "U"
	case "Rare":
		return "R"
	case "SuperRare":
		return "SR"
	case "Ultra":
		return "UR"
	case "":
		return "?"
	}
	return tier
}
