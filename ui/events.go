package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ftahirops/xtune/model"
)

// RenderEvents lists level transitions, newest first.
func RenderEvents(events []model.LevelEvent, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("TRANSITIONS  (%d shown)", len(events))))
	sb.WriteString("\n")

	if len(events) == 0 {
		sb.WriteString(dimStyle.Render("  No level changes recorded yet"))
		sb.WriteString("\n")
		return sb.String()
	}

	hdr := fmt.Sprintf("  %-8s %-14s %-10s %-8s %-9s %5s  %s",
		"TIME", "AGE", "INSTANCE", "DEVICE", "CHANGE", "APM", "RESULT")
	sb.WriteString(headerStyle.Render(hdr))
	sb.WriteString("\n")

	for _, e := range events {
		change := fmt.Sprintf("%d -> %d", e.From, e.To)
		changeStyle := okStyle
		if e.Direction() == "promote" {
			changeStyle = orangeStyle
		}
		result := okStyle.Render("ok")
		if e.Error != "" {
			result = critStyle.Render(truncate(e.Error, 40))
		}
		sb.WriteString(fmt.Sprintf("  %-8s %-14s %-10s %-8s %s %5d  %s\n",
			e.Time.Format("15:04:05"),
			humanize.RelTime(e.Time, now, "ago", "from now"),
			truncate(e.Instance, 10),
			string(e.Device),
			changeStyle.Render(fmt.Sprintf("%-9s", change)),
			e.APM,
			result,
		))
	}
	return sb.String()
}
