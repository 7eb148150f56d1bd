// Package monitor implements the live roast display: a BubbleTea TUI with
// the current bean temperature, rate of rise, stage notes and a sparkline of
// the roast curve, plus a headless display that logs each tick instead.
package monitor

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/roaster/internal/chart"
	"github.com/luki/roaster/internal/history"
	"github.com/luki/roaster/internal/roast"
)

const historySize = 1800 // 30 minutes at 1s ticks

// ── Messages ─────────────────────────────────────────────────────────

// StatusMsg carries one tick's summary into the program.
type StatusMsg roast.Status

// SendingMsg switches the SENDING badge.
type SendingMsg bool

// StoppingMsg tells the model the session is shutting down.
type StoppingMsg struct{}

// StartedMsg carries the engine's session start time.
type StartedMsg time.Time

// ── Model ────────────────────────────────────────────────────────────

// Info describes the session for the title bar.
type Info struct {
	Session   string
	Probe     string
	Transport string
	Start     time.Time
}

// Model is the BubbleTea model for the live roast.
type Model struct {
	info     Info
	onMark   func(roast.Stage)
	status   roast.Status
	hasData  bool
	temps    *history.Buffer
	rors     *history.Buffer
	markers  []chart.Marker
	pending  roast.Stage // marked, not yet seen on a tick
	sending  bool
	stopping bool
	width    int
	height   int
	scroll   int
}

// New creates the live model. onMark receives stage keys; it may be nil.
func New(info Info, onMark func(roast.Stage)) Model {
	if onMark == nil {
		onMark = func(roast.Stage) {}
	}
	return Model{
		info:   info,
		onMark: onMark,
		temps:  history.NewBuffer(historySize),
		rors:   history.NewBuffer(historySize),
	}
}

var stageKeys = map[string]roast.Stage{
	"1": roast.StageCharge,
	"2": roast.StageFirstCrack,
	"3": roast.StageSecondCrack,
	"4": roast.StageDrop,
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		key := msg.String()
		if s, ok := stageKeys[key]; ok && !m.stopping {
			m.onMark(s)
			m.pending = s
			return m, nil
		}
		switch key {
		case "q", "ctrl+c":
			m.stopping = true
			return m, tea.Quit
		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		case "home":
			m.scroll = 0
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case StatusMsg:
		st := roast.Status(msg)
		m.status = st
		m.hasData = true
		m.temps.Push(st.Temp, st.Time)
		m.rors.Push(st.RoR, st.Time)
		if st.Note != roast.StageNone {
			m.markers = append(m.markers, chart.Marker{Time: st.Time, Stage: st.Note})
			m.pending = roast.StageNone
		}

	case SendingMsg:
		m.sending = bool(msg)

	case StoppingMsg:
		m.stopping = true

	case StartedMsg:
		m.info.Start = time.Time(msg)
	}

	return m, nil
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("52")
	colorTitleFg  = lipgloss.Color("223")
	colorBorder   = lipgloss.Color("94")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorNote     = lipgloss.Color("212")
	colorSending  = lipgloss.Color("46")
	colorStopping = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string
	sections = append(sections, m.renderTitleBar(contentWidth))

	if !m.hasData {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Waiting for the first reading...")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderReadout(contentWidth), m.renderCurve(contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := max(m.height, 5)
	maxScroll := max(len(lines)-visibleLines, 0)
	start := min(m.scroll, maxScroll)
	end := min(start+visibleLines, len(lines))

	return strings.Join(lines[start:end], "\n")
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("ROASTER")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	var statusParts []string
	if m.info.Session != "" {
		statusParts = append(statusParts, dimS.Render(shortID(m.info.Session)))
	}
	if m.info.Probe != "" {
		statusParts = append(statusParts, dimS.Render(m.info.Probe))
	}
	if m.info.Transport != "" {
		statusParts = append(statusParts, dimS.Render("→ "+m.info.Transport))
	}
	if m.sending {
		statusParts = append(statusParts, lipgloss.NewStyle().Foreground(colorSending).Bold(true).Render("SENDING"))
	}
	if m.stopping {
		statusParts = append(statusParts, lipgloss.NewStyle().Foreground(colorStopping).Bold(true).Render("STOPPING"))
	}

	sep := dimS.Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := max(width-lipgloss.Width(logo)-lipgloss.Width(right)-4, 1)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderReadout(width int) string {
	st := m.status
	labelS := lipgloss.NewStyle().Foreground(colorDim).Width(6)
	valS := lipgloss.NewStyle().Foreground(colorLabel).Bold(true)

	note := string(st.Note)
	if note == "" && len(m.markers) > 0 {
		note = string(m.markers[len(m.markers)-1].Stage)
	}
	noteText := lipgloss.NewStyle().Foreground(colorNote).Bold(true).Render(note)
	if m.pending != roast.StageNone {
		noteText += lipgloss.NewStyle().Foreground(colorDim).Render(" (" + string(m.pending) + " next tick)")
	}

	phase := chart.Phase(st.Temp)
	phaseText := lipgloss.NewStyle().Foreground(chart.PhaseColor(st.Temp)).Render(phase)

	rows := []string{
		labelS.Render("Time") + valS.Render(st.Elapsed),
		labelS.Render("Bean") + chart.RenderTempValue(st.Temp) + "  " + phaseText,
		labelS.Render("RoR") + chart.RenderRoRValue(st.RoR),
		labelS.Render("Note") + noteText,
		labelS.Render("Wait") + valS.Render(fmt.Sprintf("%d", st.Pending)),
		labelS.Render("Peak") + chart.RenderTempValue(st.Peak),
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderCurve(width int) string {
	chartWidth := max(width-16, 15)
	labelW := 6

	pts := m.temps.LastNPoints(chartWidth)
	rangeMin := math.Max(0, m.temps.Min-5)
	rangeMax := math.Max(m.temps.Peak+5, chart.MaillardEnd)
	if math.IsNaN(rangeMin) || m.temps.Min > m.temps.Peak {
		rangeMin, rangeMax = 0, chart.Scorch
	}

	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")
	labelS := lipgloss.NewStyle().Foreground(colorDim).Width(labelW)
	pad := strings.Repeat(" ", labelW+1)

	rows := []string{
		labelS.Render("Bean") + frameL + chart.RenderSparklinePoints(pts, chartWidth, rangeMin, rangeMax, m.info.Start) + frameR,
		pad + chart.RenderMarkers(pts, m.markers, chartWidth),
	}

	rorPts := m.rors.LastN(chartWidth)
	rorMax := math.Max(m.rors.Peak, 1)
	rows = append(rows, labelS.Render("RoR")+frameL+chart.RenderSparkline(rorPts, chartWidth, 0, rorMax)+frameR)

	if timeline := chart.RenderTimeline(pts, chartWidth, m.info.Start); strings.TrimSpace(timeline) != "" {
		rows = append(rows, pad+timeline)
	}
	rows = append(rows, pad+chart.RenderPhaseScale(m.status.Temp, 80, chart.Scorch, chartWidth))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	legend := lipgloss.NewStyle().Foreground(chart.PhaseColor(100)).Render("██") + dimS.Render(" drying ") +
		lipgloss.NewStyle().Foreground(chart.PhaseColor(170)).Render("██") + dimS.Render(" maillard ") +
		lipgloss.NewStyle().Foreground(chart.PhaseColor(205)).Render("██") + dimS.Render(" development")

	keys := dimS.Render("1") + keyS.Render(":charge") +
		dimS.Render("  2") + keyS.Render(":1st crack") +
		dimS.Render("  3") + keyS.Render(":2nd crack") +
		dimS.Render("  4") + keyS.Render(":drop") +
		dimS.Render("  q") + keyS.Render(":stop")

	gap := max(width-lipgloss.Width(legend)-lipgloss.Width(keys)-4, 1)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + strings.Repeat(" ", gap) + keys)
}

func shortID(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:8]
}
