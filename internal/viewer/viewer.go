// Package viewer implements the browser for collected roasts: day and
// session navigation, a scrub cursor, temperature and RoR sparkline windows
// and stage markers.
package viewer

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/roaster/internal/chart"
	"github.com/luki/roaster/internal/history"
	"github.com/luki/roaster/internal/roast"
	"github.com/luki/roaster/internal/store"
)

// Run launches the viewer over the CSV files in dir ("" means the default
// data directory).
func Run(dir string) error {
	if dir == "" {
		dir = store.DataDir()
	}
	days, err := store.ListDays(dir)
	if err != nil || len(days) == 0 {
		return fmt.Errorf("no roast data found in %s", dir)
	}

	p := tea.NewProgram(
		initModel(dir, days),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = p.Run()
	return err
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("52")
	colorTitleFg  = lipgloss.Color("223")
	colorBorder   = lipgloss.Color("94")
	colorSession  = lipgloss.Color("180")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorCursor   = lipgloss.Color("214")
	colorNote     = lipgloss.Color("212")
	colorCrit     = lipgloss.Color("196")
)

// ── Model ────────────────────────────────────────────────────────────

type model struct {
	dir      string
	days     []string        // available dates, newest first
	dayIdx   int             // currently selected day
	sessions []store.Session // roasts of the current day
	sessIdx  int             // currently selected roast
	cursor   int             // record index within the roast
	scroll   int             // vertical scroll offset
	width    int
	height   int
	err      error
}

func initModel(dir string, days []string) model {
	m := model{dir: dir, days: days}
	m.loadDay()
	return m
}

func (m *model) loadDay() {
	records, err := store.LoadDay(m.dir, m.days[m.dayIdx])
	if err != nil {
		m.err = err
		m.sessions = nil
		return
	}
	m.err = nil
	m.sessions = store.GroupSessions(records)
	m.sessIdx = max(len(m.sessions)-1, 0)
	m.selectSession()
}

func (m *model) selectSession() {
	m.cursor = max(len(m.current().Records)-1, 0)
	m.scroll = 0
}

func (m model) current() store.Session {
	if m.sessIdx < 0 || m.sessIdx >= len(m.sessions) {
		return store.Session{}
	}
	return m.sessions[m.sessIdx]
}

// ── Init / Update ────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		last := len(m.current().Records) - 1
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < last {
				m.cursor++
			}
		case "shift+left", "H":
			m.cursor = max(m.cursor-60, 0)
		case "shift+right", "L":
			m.cursor = max(min(m.cursor+60, last), 0)
		case "home":
			m.cursor = 0
		case "end":
			m.cursor = max(last, 0)
		case "m":
			m.cursor = m.nextMarker()

		case "tab", "n":
			if m.sessIdx < len(m.sessions)-1 {
				m.sessIdx++
				m.selectSession()
			}
		case "shift+tab", "p":
			if m.sessIdx > 0 {
				m.sessIdx--
				m.selectSession()
			}

		case "[":
			if m.dayIdx < len(m.days)-1 {
				m.dayIdx++
				m.loadDay()
			}
		case "]":
			if m.dayIdx > 0 {
				m.dayIdx--
				m.loadDay()
			}

		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// nextMarker returns the index of the first marked record after the
// cursor, wrapping to the first marker.
func (m model) nextMarker() int {
	recs := m.current().Records
	first := -1
	for i, r := range recs {
		if r.Note == roast.StageNone {
			continue
		}
		if first < 0 {
			first = i
		}
		if i > m.cursor {
			return i
		}
	}
	if first < 0 {
		return m.cursor
	}
	return first
}

// ── View ─────────────────────────────────────────────────────────────

func (m model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	contentWidth := max(m.width-2, 40)

	var sections []string
	sections = append(sections, m.renderTitle(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	if len(m.current().Records) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(2, 0).
			Align(lipgloss.Center).
			Width(contentWidth).
			Render("No roasts on this day.")
		sections = append(sections, empty)
	} else {
		sections = append(sections, m.renderCursorInfo(contentWidth), m.renderPanel(contentWidth))
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

func (m model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("ROAST HISTORY")

	dayText := lipgloss.NewStyle().
		Foreground(colorCursor).
		Bold(true).
		Render(m.days[m.dayIdx])

	nav := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  [ %d/%d ]", m.dayIdx+1, len(m.days)))

	sessInfo := ""
	if s := m.current(); len(s.Records) > 0 {
		sessInfo = lipgloss.NewStyle().
			Foreground(colorDim).
			Render(fmt.Sprintf("  roast %d/%d  %s - %s  (%d records)",
				m.sessIdx+1, len(m.sessions),
				s.Start.Format("15:04:05"), s.End.Format("15:04:05"), len(s.Records)))
	}

	right := dayText + nav + sessInfo
	gap := max(width-lipgloss.Width(logo)-lipgloss.Width(right)-4, 1)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m model) renderCursorInfo(width int) string {
	s := m.current()
	if m.cursor < 0 || m.cursor >= len(s.Records) {
		return ""
	}

	r := s.Records[m.cursor]
	ts := lipgloss.NewStyle().
		Foreground(colorCursor).
		Bold(true).
		Render(roast.FormatElapsed(s.Start, r.Time))

	pos := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  %s  %d/%d", r.Time.Format("15:04:05"), m.cursor+1, len(s.Records)))

	scrubber := m.renderScrubber(max(width-34, 10))

	return lipgloss.NewStyle().
		Padding(0, 1).
		Render("  " + ts + pos + "  " + scrubber)
}

func (m model) renderScrubber(width int) string {
	recs := m.current().Records
	if len(recs) == 0 || width <= 0 {
		return ""
	}

	slotOf := func(i int) int {
		if len(recs) <= 1 || width <= 1 {
			return 0
		}
		return i * (width - 1) / (len(recs) - 1)
	}

	marks := make(map[int]bool)
	for i, r := range recs {
		if r.Note != roast.StageNone {
			marks[slotOf(i)] = true
		}
	}
	pos := min(slotOf(m.cursor), width-1)

	var sb strings.Builder
	dimS := lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	curS := lipgloss.NewStyle().Foreground(colorCursor).Bold(true)
	markS := lipgloss.NewStyle().Foreground(colorNote)

	for i := 0; i < width; i++ {
		switch {
		case i == pos:
			sb.WriteString(curS.Render("◆"))
		case marks[i]:
			sb.WriteString(markS.Render("│"))
		default:
			sb.WriteString(dimS.Render("─"))
		}
	}

	return sb.String()
}

func (m model) renderPanel(totalWidth int) string {
	s := m.current()
	r := s.Records[m.cursor]

	innerWidth := max(totalWidth-4, 30)
	chartWidth := min(max(innerWidth-40, 15), 140)
	labelW := 6
	valW := 9

	temps, rors := buildSparkWindow(s.Records, m.cursor, chartWidth)

	minV, maxV := math.Inf(1), math.Inf(-1)
	minR, maxR := 0.0, 1.0
	for _, p := range s.Records {
		if !math.IsNaN(p.Temp) {
			minV = math.Min(minV, p.Temp)
			maxV = math.Max(maxV, p.Temp)
		}
		if !math.IsNaN(p.RoR) {
			minR = math.Min(minR, p.RoR)
			maxR = math.Max(maxR, p.RoR)
		}
	}
	if math.IsInf(minV, 1) {
		minV, maxV = 0, chart.Scorch
	}

	var markers []chart.Marker
	for _, rec := range s.Markers() {
		markers = append(markers, chart.Marker{Time: rec.Time, Stage: rec.Note})
	}

	labelS := lipgloss.NewStyle().Foreground(colorLabel).Bold(true).Width(labelW)
	valS := lipgloss.NewStyle().Width(valW).Align(lipgloss.Right)
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	numS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	pad := strings.Repeat(" ", labelW+valW+2)

	header := lipgloss.NewStyle().Bold(true).Foreground(colorSession).Render("Roast") + "  " +
		dimS.Render(s.ID)

	beanRow := labelS.Render("Bean") + " " + valS.Render(chart.RenderTempValue(r.Temp)) + " " +
		frameL + chart.RenderSparklinePoints(temps, chartWidth, math.Max(0, minV-5), maxV+5, s.Start) + frameR +
		dimS.Render(" lo") + numS.Render(fmt.Sprintf("%5.1f", minV)) +
		dimS.Render(" pk") + numS.Render(fmt.Sprintf("%5.1f", s.Peak()))

	rorRow := labelS.Render("RoR") + " " + valS.Render(chart.RenderRoRValue(r.RoR)) + " " +
		frameL + chart.RenderSparklinePoints(rors, chartWidth, minR, maxR, s.Start) + frameR

	rows := []string{header, beanRow, pad + chart.RenderMarkers(temps, markers, chartWidth), rorRow}
	if timeline := chart.RenderTimeline(temps, chartWidth, s.Start); strings.TrimSpace(timeline) != "" {
		rows = append(rows, pad+timeline)
	}

	var notes []string
	for _, mk := range markers {
		notes = append(notes, lipgloss.NewStyle().Foreground(colorNote).Render(string(mk.Stage))+
			dimS.Render(" "+roast.FormatElapsed(s.Start, mk.Time)))
	}
	if len(notes) > 0 {
		rows = append(rows, dimS.Render("Notes ")+strings.Join(notes, dimS.Render("  ·  ")))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  h/l") + keyS.Render(":scrub") +
		dimS.Render("  H/L") + keyS.Render(":skip 1m") +
		dimS.Render("  m") + keyS.Render(":next note") +
		dimS.Render("  n/p") + keyS.Render(":roast") +
		dimS.Render("  [/]") + keyS.Render(":day") +
		dimS.Render("  j/k") + keyS.Render(":scroll")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}

// ── Helpers ──────────────────────────────────────────────────────────

// buildSparkWindow returns the width records ending at the cursor as
// temperature and RoR points.
func buildSparkWindow(recs []store.StoredRecord, cursor, width int) (temps, rors []history.Point) {
	if len(recs) == 0 || width <= 0 {
		return nil, nil
	}
	cursor = max(0, min(cursor, len(recs)-1))
	from := max(cursor-width+1, 0)

	for _, r := range recs[from : cursor+1] {
		temps = append(temps, history.Point{Temp: r.Temp, Time: r.Time})
		rors = append(rors, history.Point{Temp: r.RoR, Time: r.Time})
	}
	return temps, rors
}
