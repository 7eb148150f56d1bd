package monitor

import (
	"math"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/luki/roaster/internal/roast"
)

// messenger is the part of *tea.Program the sink needs.
type messenger interface {
	Send(msg tea.Msg)
}

// Sink forwards engine callbacks into a running program. It serves as both
// the engine's Display and one of its Indicators.
type Sink struct {
	p messenger
}

func NewSink(p *tea.Program) *Sink {
	return &Sink{p: p}
}

func (s *Sink) Refresh(st roast.Status) { s.p.Send(StatusMsg(st)) }

func (s *Sink) SetActive(active bool) { s.p.Send(SendingMsg(active)) }

// LogDisplay is the headless display: every tick becomes one log line with
// the fields the TUI shows.
type LogDisplay struct {
	log zerolog.Logger
}

func NewLogDisplay(log zerolog.Logger) *LogDisplay {
	return &LogDisplay{log: log.With().Str("component", "display").Logger()}
}

func (d *LogDisplay) Refresh(st roast.Status) {
	e := d.log.Info().Str("time", st.Elapsed)
	if !math.IsNaN(st.Temp) {
		e = e.Float64("bean", round1(st.Temp))
	}
	if !math.IsNaN(st.RoR) {
		e = e.Float64("ror", round1(st.RoR))
	}
	if st.Note != roast.StageNone {
		e = e.Str("note", string(st.Note))
	}
	e.Int("wait", st.Pending).Msg("tick")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
