// Package markup parses the lightweight markup of generated study plans and
// renders it for the terminal.
package markup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
)

// DefaultWidth is the wrap width used when Render is given zero.
const DefaultWidth = 80

// Kind is the type of a block.
type Kind int

const (
	Paragraph Kind = iota
	Heading2
	Heading3
	List
)

// Block is one element of a plan. List blocks carry their items; the others
// carry Text.
type Block struct {
	Kind  Kind
	Text  string
	Items []string
}

// Parse splits text into blocks. Lines starting with "* " or "- " are list
// items and consecutive items share one list. Blank lines are dropped.
func Parse(text string) []Block {
	var blocks []Block
	var items []string

	flush := func() {
		if len(items) == 0 {
			return
		}
		blocks = append(blocks, Block{Kind: List, Items: items})
		items = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "- ") {
			items = append(items, line[2:])
			continue
		}
		flush()
		switch {
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, Block{Kind: Heading2, Text: line[3:]})
		case strings.HasPrefix(line, "### "):
			blocks = append(blocks, Block{Kind: Heading3, Text: line[4:]})
		case strings.TrimSpace(line) != "":
			blocks = append(blocks, Block{Kind: Paragraph, Text: line})
		}
	}
	flush()

	return blocks
}

// Markdown writes blocks back as CommonMark with one block per paragraph,
// so every plan line keeps its own paragraph as in the app.
func Markdown(blocks []Block) string {
	out := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		switch blk.Kind {
		case Heading2:
			out = append(out, "## "+blk.Text)
		case Heading3:
			out = append(out, "### "+blk.Text)
		case List:
			items := make([]string, len(blk.Items))
			for i, item := range blk.Items {
				items[i] = "- " + item
			}
			out = append(out, strings.Join(items, "\n"))
		default:
			out = append(out, paragraph(blk.Text))
		}
	}
	return strings.Join(out, "\n\n")
}

// paragraph keeps the indent of nested list lines and drops it elsewhere,
// where four spaces would start a code block.
func paragraph(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if listMarker.MatchString(trimmed) {
		return line
	}
	return trimmed
}

var listMarker = regexp.MustCompile(`^([*+-]|\d+[.)])\s`)

// Render formats plan text for a terminal of the given width. style names a
// glamour standard style such as "dark" or "notty".
func Render(text string, width int, style string) (string, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("markup renderer: %w", err)
	}
	return r.Render(Markdown(Parse(text)))
}
