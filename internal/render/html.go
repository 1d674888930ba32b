package render

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags force a line break around their content when flattening HTML.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "table": true, "ul": true, "ol": true,
}

// cellTags separate adjacent table cells with a space instead of a break.
var cellTags = map[string]bool{"td": true, "th": true}

// skipTags contribute no visible text.
var skipTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true, "noscript": true,
}

// HTMLToText flattens an HTML body to readable plain text: block elements
// become line breaks, inline whitespace collapses, invisible elements are
// dropped. Malformed markup is tolerated; the tokenizer never fails hard.
func HTMLToText(src string) string {
	tz := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skipDepth := 0

	for {
		tt := tz.Next()
		switch tt {
		case html.ErrorToken:
			return tidyText(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tz.TagName()
			tag := string(name)
			if skipTags[tag] && tt == html.StartTagToken {
				skipDepth++
				continue
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			} else if cellTags[tag] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tz.TagName()
			tag := string(name)
			if skipTags[tag] && skipDepth > 0 {
				skipDepth--
				continue
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			b.WriteString(string(tz.Text()))
		}
	}
}

// tidyText collapses runs of spaces within lines and runs of blank lines.
func tidyText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
