package view

import (
	"fmt"
	"math"
)

// Percent returns the completed share of durationSec as a whole percentage in
// [0, 100], rounding halves up. A zero duration is 0%.
func Percent(durationSec, remainingSec int) int {
	if durationSec <= 0 {
		return 0
	}
	elapsed := float64(durationSec - remainingSec)
	p := int(math.Floor(100*elapsed/float64(durationSec) + 0.5))
	return min(100, max(0, p))
}

// StepPercent is the completed share of the current step.
func StepPercent(stepDurationSec, stepRemainingSec int) int {
	return Percent(stepDurationSec, stepRemainingSec)
}

// OverallPercent is the completed share of the whole recipe.
func OverallPercent(totalDurationSec, overallRemainingSec int) int {
	return Percent(totalDurationSec, overallRemainingSec)
}

// MMSS formats seconds as mm:ss. Zero and negative values render as 00:00;
// minutes are not capped at 99.
func MMSS(sec int) string {
	if sec <= 0 {
		return "00:00"
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}
