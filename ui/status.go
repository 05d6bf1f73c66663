package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ftahirops/xtune/model"
)

// RenderStatus draws the per-device table of a daemon snapshot.
func RenderStatus(st *model.Status, profile model.PowerProfile, now time.Time) string {
	var sb strings.Builder

	if st == nil {
		sb.WriteString(warnStyle.Render("  No status available, is the daemon running?"))
		sb.WriteString("\n")
		return sb.String()
	}

	age := now.Sub(st.Timestamp)
	stamp := valueStyle.Render(humanize.RelTime(st.Timestamp, now, "ago", "from now"))
	if st.Interval > 0 && age > 3*st.Interval {
		stamp = critStyle.Render(fmt.Sprintf("stale, updated %s", humanize.RelTime(st.Timestamp, now, "ago", "from now")))
	}
	sb.WriteString(titleStyle.Render(fmt.Sprintf("XTUNE  (%d devices, %d instances)", len(st.Devices), len(st.Instances))))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  %s %s  %s %s  %s %s  %s %s\n",
		labelStyle.Render("pid"), valueStyle.Render(fmt.Sprintf("%d", st.PID)),
		labelStyle.Render("interval"), valueStyle.Render(st.Interval.String()),
		labelStyle.Render("ticks"), valueStyle.Render(humanize.Comma(int64(st.Ticks))),
		labelStyle.Render("updated"), stamp,
	))
	sb.WriteString("\n")

	if len(st.Devices) == 0 {
		sb.WriteString(dimStyle.Render("  No devices tuned"))
		sb.WriteString("\n")
		return sb.String()
	}

	hdr := fmt.Sprintf("  %-10s %-8s %-7s %4s %8s  %7s %7s  %-9s %-22s %s",
		"INSTANCE", "DEVICE", "LEVEL", "APM", "SPINDOWN", "READ", "WRITE", "IDLE R/W", "ELEVATOR", "SINCE")
	sb.WriteString(headerStyle.Render(hdr))
	sb.WriteString("\n")

	for _, d := range st.Devices {
		setting := profile.At(d.Level)
		level := fmt.Sprintf("%d/%d", d.Level, d.Levels-1)
		elevator := "-"
		if d.Elevator != "" {
			elevator = fmt.Sprintf("%s (was %s)", d.Elevator, d.SavedElevator)
		}
		since := "-"
		if !d.LevelSince.IsZero() {
			since = humanize.RelTime(d.LevelSince, now, "", "")
		}
		sb.WriteString(fmt.Sprintf("  %-10s %-8s %s %4d %8s  %s %s  %-9s %-22s %s\n",
			truncate(d.Instance, 10),
			string(d.Device),
			levelColor(d.Level, d.Levels).Render(fmt.Sprintf("%-7s", level)),
			setting.APM,
			spindownText(setting.Spindown),
			loadColor(d.ReadLoad).Render(fmt.Sprintf("%6.1f%%", d.ReadLoad*100)),
			loadColor(d.WriteLoad).Render(fmt.Sprintf("%6.1f%%", d.WriteLoad*100)),
			fmt.Sprintf("%d/%d", d.ReadIdleTicks, d.WriteIdleTicks),
			truncate(elevator, 22),
			dimStyle.Render(strings.TrimSpace(since)),
		))
	}
	return sb.String()
}

// spindownText decodes the hdparm -S encoding.
func spindownText(v int) string {
	switch {
	case v == 0:
		return "off"
	case v <= 240:
		return (time.Duration(v) * 5 * time.Second).String()
	case v <= 251:
		return (time.Duration(v-240) * 30 * time.Minute).String()
	default:
		return fmt.Sprintf("#%d", v)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "~"
}
