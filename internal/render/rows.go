package render

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Cell truncates or pads a string to an exact display width, honoring wide
// runes.
func Cell(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

// Row is the display data for one list line.
type Row struct {
	Sender  string
	Title   string
	Date    string
	Unread  bool
	Replies int
}

// RowText renders one list row: sender, title with reply count, date. Unread
// rows get a marker so the style layer does not have to re-derive it.
func RowText(r Row, senderWidth, titleWidth, dateWidth int) string {
	marker := " "
	if r.Unread {
		marker = "●"
	}
	title := r.Title
	if title == "" {
		title = "(no subject)"
	}
	if r.Replies > 0 {
		title = fmt.Sprintf("%s (%d)", title, r.Replies+1)
	}
	return fmt.Sprintf("%s %s  %s  %s",
		marker,
		Cell(r.Sender, senderWidth),
		Cell(title, titleWidth),
		Cell(r.Date, dateWidth))
}
