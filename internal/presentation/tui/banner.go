package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the mise banner with its version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Warm gradient, from basil to tomato
	lines := []struct{ text, color string }{
		{"            _          ", "#4ade80"},
		{"  _ __ ___ (_)___  ___ ", "#a3e635"},
		{" | '_ ` _ \\| / __|/ _ \\", "#facc15"},
		{" | | | | | | \\__ \\  __/", "#fb923c"},
		{" |_| |_| |_|_|___/\\___|", "#f87171"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
