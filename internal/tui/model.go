package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/quantracode/VibeCheck-sub003/internal/progress"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type detectorState struct {
	RuleID       string
	Status       string
	FindingCount int
	DurationMS   int64
	StartedAt    time.Time
	Error        string
}

type eventMsg struct {
	event progress.Event
	ok    bool
}

type uiModel struct {
	events <-chan progress.Event

	runID      string
	runStatus  string
	startedAt  time.Time
	finishedAt time.Time
	findings   int
	files      int
	skipped    int

	showDetails bool
	done        bool

	detectors map[string]detectorState

	logLines []string
	tick     int
}

func newModel(events <-chan progress.Event) uiModel {
	return uiModel{
		events:      events,
		runStatus:   "running",
		detectors:   make(map[string]detectorState),
		showDetails: true,
		logLines:    make([]string, 0, 24),
	}
}

func waitForEvent(ch <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return eventMsg{event: ev, ok: ok}
	}
}

type tickMsg time.Time

func nextTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), nextTick())
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "d":
			m.showDetails = !m.showDetails
		case "q", "ctrl+c":
			if m.done {
				return m, tea.Quit
			}
		}
		return m, nil
	case eventMsg:
		if !msg.ok {
			m.done = true
			return m, tea.Quit
		}
		m.applyEvent(msg.event)
		if m.done {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, nextTick()
	default:
		return m, nil
	}
}

func (m uiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("VibeCheck Scan"))
	b.WriteString("\n")
	if m.runStatus == "running" {
		b.WriteString(fmt.Sprintf("Active: %s\n", runningStyle.Render(m.runningFrame())))
	}
	b.WriteString(fmt.Sprintf("Run: %s\n", valueOrDash(m.runID)))
	b.WriteString(fmt.Sprintf("Status: %s\n", styleStatus(m.runStatus).Render(strings.ToUpper(valueOrDash(m.runStatus)))))
	b.WriteString(fmt.Sprintf("Files: %d  Skipped: %d  Findings: %d\n", m.files, m.skipped, m.findings))
	b.WriteString(fmt.Sprintf("Elapsed: %s\n", m.elapsedString()))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-22s %-11s %-9s %-10s", "Rule", "Status", "Findings", "Duration")))
	b.WriteString("\n")

	for idx, ruleID := range m.orderedDetectors() {
		d := m.detectors[ruleID]
		baseStatus := d.Status
		if strings.TrimSpace(baseStatus) == "" {
			baseStatus = "pending"
		}
		displayStatus := m.detectorStatusDisplay(baseStatus, idx)
		durationMS := m.detectorDurationMS(d, baseStatus)
		line := fmt.Sprintf("%-22s %-11s %-9d %-10s", ruleID, displayStatus, d.FindingCount, durationString(durationMS))
		b.WriteString(styleStatus(baseStatus).Render(line))
		b.WriteString("\n")
	}

	if m.showDetails {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Recent Events"))
		b.WriteString("\n")
		if len(m.logLines) == 0 {
			b.WriteString(idleStyle.Render("No events yet."))
			b.WriteString("\n")
		} else {
			for _, line := range m.logLines {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(helpStyle.Render("Press q to close"))
	} else {
		b.WriteString(helpStyle.Render("d toggle details"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m *uiModel) applyEvent(e progress.Event) {
	switch e.Type {
	case progress.EventScanStarted:
		m.runID = e.RunID
		m.runStatus = "running"
		m.files = e.FileCount
		if !e.At.IsZero() {
			m.startedAt = e.At
		}
		m.appendEventLine(e, fmt.Sprintf("scan started (%s) files=%d", valueOrDash(e.RunID), e.FileCount))
	case progress.EventScanWarning:
		m.appendEventLine(e, fmt.Sprintf("warning: %s", firstNonEmpty(e.Message, e.Error)))
	case progress.EventFileSkipped:
		m.skipped++
		m.appendEventLine(e, fmt.Sprintf("skipped %s: %s", e.Path, firstNonEmpty(e.Message, e.Error)))
	case progress.EventDetectorStarted:
		d := m.ensureDetector(e.RuleID)
		d.Status = "running"
		if !e.At.IsZero() {
			d.StartedAt = e.At
		}
		m.detectors[e.RuleID] = d
		m.appendEventLine(e, fmt.Sprintf("%s started", e.RuleID))
	case progress.EventDetectorFinished:
		d := m.ensureDetector(e.RuleID)
		d.Status = "success"
		if strings.TrimSpace(e.Error) != "" {
			d.Status = "failed"
		}
		d.FindingCount = e.FindingCount
		d.DurationMS = e.DurationMS
		if d.StartedAt.IsZero() && !e.At.IsZero() && e.DurationMS > 0 {
			d.StartedAt = e.At.Add(-time.Duration(e.DurationMS) * time.Millisecond)
		}
		d.Error = firstNonEmpty(e.Error, d.Error)
		m.detectors[e.RuleID] = d
		msg := fmt.Sprintf("%s finished findings=%d duration=%s", e.RuleID, e.FindingCount, durationString(e.DurationMS))
		if strings.TrimSpace(e.Error) != "" {
			msg += " error=" + strings.TrimSpace(e.Error)
		}
		m.appendEventLine(e, msg)
	case progress.EventScanFinished:
		m.runStatus = "success"
		if strings.TrimSpace(e.Error) != "" {
			m.runStatus = "failed"
		}
		m.findings = e.FindingCount
		if !e.At.IsZero() {
			m.finishedAt = e.At
		}
		m.done = true
		m.appendEventLine(e, fmt.Sprintf("scan finished findings=%d duration=%s", e.FindingCount, durationString(e.DurationMS)))
	}
}

func (m *uiModel) ensureDetector(ruleID string) detectorState {
	if ruleID == "" {
		return detectorState{}
	}
	d, ok := m.detectors[ruleID]
	if !ok {
		d = detectorState{
			RuleID: ruleID,
			Status: "pending",
		}
	}
	return d
}

// orderedDetectors sorts running rules first, then failed, then the rest
// alphabetically so the busy rows stay at the top of the table.
func (m uiModel) orderedDetectors() []string {
	out := make([]string, 0, len(m.detectors))
	for ruleID := range m.detectors {
		out = append(out, ruleID)
	}
	rank := func(status string) int {
		switch strings.ToLower(strings.TrimSpace(status)) {
		case "running":
			return 0
		case "failed":
			return 1
		default:
			return 2
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := rank(m.detectors[out[i]].Status), rank(m.detectors[out[j]].Status)
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

func (m uiModel) elapsedString() string {
	if m.startedAt.IsZero() {
		return "0s"
	}
	end := time.Now().UTC()
	if !m.finishedAt.IsZero() {
		end = m.finishedAt
	}
	return end.Sub(m.startedAt).Round(time.Second).String()
}

func (m *uiModel) appendEventLine(e progress.Event, text string) {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	line := fmt.Sprintf("[%s] %s", ts.Format("15:04:05"), strings.TrimSpace(text))
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > 12 {
		m.logLines = m.logLines[len(m.logLines)-12:]
	}
}

func durationString(ms int64) string {
	if ms <= 0 {
		return "0s"
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func valueOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

func styleStatus(status string) lipgloss.Style {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success":
		return okStyle
	case "warning":
		return warnStyle
	case "failed":
		return errorStyle
	case "running":
		return runningStyle
	default:
		return idleStyle
	}
}

func (m uiModel) runningFrame() string {
	frames := []string{"-", "\\", "|", "/"}
	return frames[m.tick%len(frames)]
}

func (m uiModel) detectorStatusDisplay(status string, idx int) string {
	if strings.EqualFold(strings.TrimSpace(status), "running") {
		return "running " + m.detectorFrame(idx)
	}
	return strings.TrimSpace(status)
}

func (m uiModel) detectorFrame(idx int) string {
	frames := []string{"-", "\\", "|", "/"}
	return frames[(m.tick+idx)%len(frames)]
}

func (m uiModel) detectorDurationMS(d detectorState, status string) int64 {
	if strings.EqualFold(strings.TrimSpace(status), "running") && !d.StartedAt.IsZero() {
		return time.Since(d.StartedAt).Milliseconds()
	}
	return d.DurationMS
}
