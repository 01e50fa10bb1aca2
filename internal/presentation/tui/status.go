package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/mise/pkg/view"
	"github.com/muesli/termenv"
)

// BarWidth is the number of cells of the progress bar.
const BarWidth = 20

// Bar draws a fixed-width bar filled to percent.
func Bar(percent int) string {
	filled := percent * BarWidth / 100
	filled = max(0, min(BarWidth, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", BarWidth-filled) + "]"
}

// StatusLine renders one line of cook progress. Colors follow profile;
// termenv.Ascii yields plain text.
func StatusLine(p view.Progress, profile termenv.Profile) string {
	status := profile.String(string(p.Status))
	switch p.Status {
	case view.StatusRunning:
		status = status.Foreground(profile.Color("#4ade80")).Bold()
	case view.StatusPaused:
		status = status.Foreground(profile.Color("#facc15"))
	}

	return fmt.Sprintf("%s %3d%%  Step %d/%d %s  %s left · %s overall · %s",
		profile.String(Bar(p.StepPercent)).Foreground(profile.Color("#fb923c")),
		p.StepPercent,
		p.StepNumber, p.StepCount, p.StepDescription,
		p.StepRemaining, p.OverallRemaining,
		status,
	)
}
