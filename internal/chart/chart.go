// Package chart provides sparkline rendering colour-coded by roast phase,
// minute tick marks, elapsed-time labels, stage marker rows and a phase
// scale bar.
package chart

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/roaster/internal/history"
	"github.com/luki/roaster/internal/roast"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Phase boundaries in °C.
const (
	DryingEnd   = 150.0
	MaillardEnd = 196.0
	Scorch      = 228.0
)

// Phase names the roast phase a bean temperature falls in.
func Phase(temp float64) string {
	switch {
	case math.IsNaN(temp):
		return ""
	case temp < DryingEnd:
		return "drying"
	case temp < MaillardEnd:
		return "maillard"
	default:
		return "development"
	}
}

// PhaseColor returns the colour for a bean temperature.
func PhaseColor(v float64) lipgloss.Color {
	switch {
	case math.IsNaN(v):
		return lipgloss.Color("240") // grey
	case v >= Scorch:
		return lipgloss.Color("196") // red
	case v >= MaillardEnd:
		return lipgloss.Color("130") // brown
	case v >= DryingEnd:
		return lipgloss.Color("214") // amber
	default:
		return lipgloss.Color("149") // green
	}
}

// RoRColor returns the colour for a rate of rise in °C/min.
func RoRColor(ror float64) lipgloss.Color {
	switch {
	case math.IsNaN(ror):
		return lipgloss.Color("240")
	case ror < 0:
		return lipgloss.Color("75") // blue, falling
	case ror > 25:
		return lipgloss.Color("208") // orange, running hot
	default:
		return lipgloss.Color("252")
	}
}

// RenderSparkline renders a sparkline of values without tick marks.
func RenderSparkline(values []float64, width int, rangeMin, rangeMax float64) string {
	if width <= 0 {
		return ""
	}
	pts := make([]history.Point, len(values))
	for i, v := range values {
		pts[i] = history.Point{Temp: v}
	}
	return RenderSparklinePoints(pts, width, rangeMin, rangeMax, time.Time{})
}

// RenderSparklinePoints renders a sparkline with a subtle pipe at each
// minute boundary. Minutes count from start, or follow the wall clock when
// start is zero.
func RenderSparklinePoints(points []history.Point, width int, rangeMin, rangeMax float64, start time.Time) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if len(points) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)
	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, p := range points {
		if isMinuteTick(points, i, start) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}
		if math.IsNaN(p.Temp) {
			sb.WriteString(dim.Render("·"))
			continue
		}

		norm := (p.Temp - rangeMin) / span
		norm = math.Max(0, math.Min(1, norm))
		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}

		style := lipgloss.NewStyle().Foreground(PhaseColor(p.Temp))
		if p.Temp >= Scorch {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

func minuteOf(t, start time.Time) int {
	if start.IsZero() {
		return t.Minute()
	}
	return int(t.Sub(start) / time.Minute)
}

func isMinuteTick(points []history.Point, i int, start time.Time) bool {
	p := points[i]
	if p.Time.IsZero() || i == 0 || points[i-1].Time.IsZero() {
		return false
	}
	return minuteOf(p.Time, start) != minuteOf(points[i-1].Time, start)
}

// RenderTimeline renders labels under the sparkline at each minute tick:
// elapsed minutes ("3m") from start, or HH:MM when start is zero.
func RenderTimeline(points []history.Point, width int, start time.Time) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	type tick struct {
		pos   int
		label string
	}
	var ticks []tick

	for i, p := range points {
		if !isMinuteTick(points, i, start) {
			continue
		}
		label := p.Time.Format("15:04")
		if !start.IsZero() {
			label = fmt.Sprintf("%dm", minuteOf(p.Time, start))
		}
		ticks = append(ticks, tick{pos: padLen + i, label: label})
	}

	lastEnd := -1
	for _, t := range ticks {
		start := t.pos - len(t.label)/2
		if start < 0 {
			start = 0
		}
		end := start + len(t.label)
		if end > width {
			continue
		}
		if start <= lastEnd+1 {
			continue
		}
		for j, ch := range t.label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	return lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render(string(line))
}

// Marker is a stage note at a point in time.
type Marker struct {
	Time  time.Time
	Stage roast.Stage
}

var markerGlyphs = map[roast.Stage]string{
	roast.StageCharge:      "C",
	roast.StageFirstCrack:  "1",
	roast.StageSecondCrack: "2",
	roast.StageDrop:        "D",
}

// RenderMarkers renders a row aligned with the sparkline holding a glyph
// under each point that carries a stage marker.
func RenderMarkers(points []history.Point, markers []Marker, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}
	padLen := width - len(points)

	at := make(map[int64]roast.Stage, len(markers))
	for _, m := range markers {
		at[m.Time.Unix()] = m.Stage
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", padLen))
	for _, p := range points {
		if g, ok := markerGlyphs[at[p.Time.Unix()]]; ok {
			sb.WriteString(style.Render(g))
		} else {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// RenderPhaseScale renders a scale bar showing the current temperature
// against the drying and maillard boundaries.
func RenderPhaseScale(current, rangeMin, rangeMax float64, width int) string {
	if width <= 0 {
		return ""
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}
	pos := func(v float64) int {
		return int(float64(width-1) * (v - rangeMin) / span)
	}

	marks := map[int]lipgloss.Color{}
	for _, b := range []float64{DryingEnd, MaillardEnd} {
		if b > rangeMin && b < rangeMax {
			marks[pos(b)] = PhaseColor(b)
		}
	}

	curPos := -1
	if !math.IsNaN(current) {
		curPos = max(0, min(width-1, pos(current)))
	}

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch c, isMark := marks[i]; {
		case i == curPos:
			style := lipgloss.NewStyle().Foreground(PhaseColor(current)).Bold(true)
			sb.WriteString(style.Render("◆"))
		case isMark:
			sb.WriteString(lipgloss.NewStyle().Foreground(c).Render("▪"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Render("·"))
		}
	}

	return sb.String()
}

// RenderTempValue renders a temperature with phase colouring; NaN renders
// as dashes.
func RenderTempValue(temp float64) string {
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return lipgloss.NewStyle().Foreground(PhaseColor(math.NaN())).Render("  --.-°C")
	}
	style := lipgloss.NewStyle().Foreground(PhaseColor(temp))
	if temp >= Scorch {
		style = style.Bold(true)
	}
	return style.Render(fmt.Sprintf("%5.1f°C", temp))
}

// RenderRoRValue renders a rate of rise in °C/min.
func RenderRoRValue(ror float64) string {
	if math.IsNaN(ror) || math.IsInf(ror, 0) {
		return lipgloss.NewStyle().Foreground(RoRColor(math.NaN())).Render(" --.-/m")
	}
	return lipgloss.NewStyle().Foreground(RoRColor(ror)).Render(fmt.Sprintf("%+5.1f/m", ror))
}
