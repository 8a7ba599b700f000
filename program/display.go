package main

import (
	"fmt"
	"strings"
)

// halfBlocks renders a pixel buffer as truecolor terminal cells. Each cell
// packs two vertically stacked pixels into an upper-half-block glyph: the
// foreground carries the top pixel, the background the bottom one. The output
// is clipped to maxCols x maxRows cells.
func halfBlocks(buf *PixelBuffer, maxCols, maxRows int) string {
	if buf == nil || buf.Width < 1 || buf.Height < 1 || maxCols < 1 || maxRows < 1 {
		return ""
	}
	cols := buf.Width
	if cols > maxCols {
		cols = maxCols
	}
	rows := (buf.Height + 1) / 2
	if rows > maxRows {
		rows = maxRows
	}

	var sb strings.Builder
	sb.Grow(rows * cols * 40)
	for r := 0; r < rows; r++ {
		yTop, yBot := r*2, r*2+1
		for x := 0; x < cols; x++ {
			tr, tg, tb := buf.RGBAt(x, yTop)
			br, bg, bb := buf.RGBAt(x, yBot)
			fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%d;48;2;%d;%d;%dm▀", tr, tg, tb, br, bg, bb)
		}
		sb.WriteString("\x1b[0m")
		if r < rows-1 {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}
