package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour/styles"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/mattn/go-isatty"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
	"github.com/spf13/viper"
)

// textWidth is the wrap width of prose in text output.
const textWidth = 80

func textFormat() bool {
	return viper.GetString("format") == "text"
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// printTable writes a header and rows as an aligned table.
func printTable(header []string, rows [][]any) {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.MaxColWidth = 60
	tbl.Wrap = true

	h := make([]any, len(header))
	for i, c := range header {
		h[i] = bold.Sprint(c)
	}
	tbl.AddRow(h...)
	for _, r := range rows {
		tbl.AddRow(r...)
	}
	_, _ = fmt.Fprintln(color.Output, tbl)
}

// swatch renders a colored dot for a #rrggbb subject color.
func swatch(hex string) string {
	if hex == "" {
		return " "
	}
	p := termenv.ColorProfile()
	return termenv.String("●").Foreground(p.Color(hex)).String()
}

// readStdin returns piped stdin, or "" when stdin is a terminal.
func readStdin() (string, error) {
	if isTerminal(os.Stdin) {
		return "", nil
	}
	b, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// renderStyle picks the glamour style for plan output.
func renderStyle() string {
	if isTerminal(os.Stdout) {
		return styles.DarkStyle
	}
	return styles.NoTTYStyle
}

// bullet wraps text to width and hangs it under a "  • " marker.
func bullet(text string, width int) string {
	body := wordwrap.String(text, width-4)
	return "  • " + strings.TrimPrefix(indent.String(body, 4), "    ")
}

// Accepted --at layouts, tried in order. Layouts without a zone are local.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q (use RFC 3339 or \"2006-01-02 15:04\")", s)
}

// localTime renders a stored instant in local time for tables.
func localTime(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}
