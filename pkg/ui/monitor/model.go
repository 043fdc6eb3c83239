package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"adsbridge/pkg/bus"
	"adsbridge/pkg/event"
)

const maxResponseWidth = 96

// SubmitFunc queues an operator command on the running bridge.
type SubmitFunc func(ctx context.Context, cmd bus.Command) bool

// Info describes the session shown in the header.
type Info struct {
	Provider  string
	SessionID string
	Script    string
	Fill      map[event.AdUnitType]bool
}

type deliveryMsg struct {
	delivery bus.Delivery
}

type streamClosedMsg struct{}

type model struct {
	ctx        context.Context
	submit     SubmitFunc
	deliveries <-chan bus.Delivery
	info       Info
	keys       keyMap

	theme     theme
	spinner   spinner.Model
	viewport  viewport.Model
	entries   []bus.Delivery
	counts    map[bus.Status]int
	fill      map[event.AdUnitType]bool
	units     []event.AdUnitType
	selected  int
	width     int
	height    int
	isReady   bool
	pending   bool
	suspended bool
	closed    bool
	lastErr   string
	followLog bool
}

func newModel(ctx context.Context, info Info, deliveries <-chan bus.Delivery, submit SubmitFunc) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	fill := make(map[event.AdUnitType]bool, len(info.Fill))
	for unit, filled := range info.Fill {
		fill[unit] = filled
	}

	return &model{
		ctx:        ctx,
		submit:     submit,
		deliveries: deliveries,
		info:       info,
		keys:       defaultKeyMap(),
		theme:      defaultTheme(),
		spinner:    spin,
		viewport:   viewport.New(80, 12),
		counts:     make(map[bus.Status]int),
		fill:       fill,
		units:      event.AdUnitTypes(),
		width:      100,
		height:     28,
		followLog:  true,
	}
}

func (m *model) Init() tea.Cmd {
	return waitForDelivery(m.deliveries)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil
	case deliveryMsg:
		m.entries = append(m.entries, typed.delivery)
		m.counts[typed.delivery.Status]++
		m.pending = false
		m.refreshViewport(false)
		return m, waitForDelivery(m.deliveries)
	case streamClosedMsg:
		m.closed = true
		m.pending = false
		return m, nil
	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case tea.MouseMsg:
		m.handleViewportMouse(typed)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	}

	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.handleViewportKey(msg) {
		return m, nil
	}

	unit := m.selectedUnit()
	switch {
	case key.Matches(msg, m.keys.Next):
		m.selected = (m.selected + 1) % len(m.units)
	case key.Matches(msg, m.keys.Prev):
		m.selected = (m.selected + len(m.units) - 1) % len(m.units)
	case key.Matches(msg, m.keys.Load):
		return m, m.send(bus.Command{Action: bus.ActionLoad, Unit: unit})
	case key.Matches(msg, m.keys.Show):
		return m, m.send(bus.Command{Action: bus.ActionShow, Unit: unit})
	case key.Matches(msg, m.keys.Click):
		return m, m.send(bus.Command{Action: bus.ActionClick, Unit: unit})
	case key.Matches(msg, m.keys.Fill):
		enabled := !m.fill[unit]
		cmd := m.send(bus.Command{Action: bus.ActionFill, Unit: unit, Enabled: enabled})
		if m.lastErr == "" {
			m.fill[unit] = enabled
		}
		return m, cmd
	case key.Matches(msg, m.keys.Pause):
		action := bus.ActionSuspend
		if m.suspended {
			action = bus.ActionResume
		}
		cmd := m.send(bus.Command{Action: action})
		if m.lastErr == "" {
			m.suspended = !m.suspended
		}
		return m, cmd
	}

	return m, nil
}

// send submits cmd and starts the spinner until the next delivery arrives.
func (m *model) send(cmd bus.Command) tea.Cmd {
	if m.closed || m.submit == nil {
		m.lastErr = "session closed"
		return nil
	}
	if !m.submit(m.ctx, cmd) {
		m.lastErr = fmt.Sprintf("%s command was not accepted", cmd.Action)
		return nil
	}

	m.lastErr = ""
	m.pending = true
	return m.spinner.Tick
}

func (m *model) selectedUnit() event.AdUnitType {
	return m.units[m.selected]
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}

	header := m.theme.header.Width(m.width - 2).Render("📡 adsbridge monitor")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"provider:%s · session:%s · script:%s · delivered/dropped/failed:%d/%d/%d",
		displayOrNA(m.info.Provider),
		displayOrNA(m.info.SessionID),
		displayOrNA(m.info.Script),
		m.counts[bus.StatusDelivered],
		m.counts[bus.StatusDropped],
		m.counts[bus.StatusFailed],
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	parts := []string{
		header,
		meta,
		m.surfacesView(),
		line,
		m.theme.viewport.Width(m.width - 2).Render(m.viewport.View()),
		m.statusView(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *model) surfacesView() string {
	tabs := make([]string, 0, len(m.units))
	for i, unit := range m.units {
		marker := m.theme.fillOff.Render("○")
		if m.fill[unit] {
			marker = m.theme.fillOn.Render("●")
		}
		label := fmt.Sprintf("%s %s", marker, unit)

		style := m.theme.surface
		if i == m.selected {
			style = m.theme.selected
		}
		tabs = append(tabs, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *model) statusView() string {
	switch {
	case m.lastErr != "":
		return m.theme.statusErr.Render("🚨 " + m.lastErr)
	case m.closed:
		return m.theme.statusErr.Render("🛑 session closed · q quit")
	case m.pending:
		return m.theme.statusBusy.Render(fmt.Sprintf("%s ⚡ waiting for the SDK...", m.spinner.View()))
	}

	hints := make([]string, 0, len(m.keys.hints()))
	for _, binding := range m.keys.hints() {
		help := binding.Help()
		hints = append(hints, help.Key+" "+help.Desc)
	}
	status := strings.Join(hints, "  ·  ")
	if m.suspended {
		status = "⏸ suspended  ·  " + status
	}
	return m.theme.status.Render(status)
}

func (m *model) resizeComponents() {
	w := max(50, m.width-6)
	h := max(8, m.height-10)

	m.viewport.Width = w
	m.viewport.Height = h
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	lines := make([]string, 0, len(m.entries))
	for _, d := range m.entries {
		lines = append(lines, m.renderDelivery(d))
	}

	m.viewport.SetContent(strings.Join(lines, "\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := max(0, m.viewport.TotalLineCount()-m.viewport.Height)
	m.viewport.SetYOffset(min(previousOffset, maxOffset))
}

func (m *model) renderDelivery(d bus.Delivery) string {
	badge := m.theme.delivered
	switch d.Status {
	case bus.StatusDropped:
		badge = m.theme.dropped
	case bus.StatusFailed:
		badge = m.theme.failed
	}

	unit := string(d.Event.Type())
	if unit == "" {
		unit = "-"
	}

	parts := []string{
		m.theme.timestamp.Render(d.At.Local().Format("15:04:05.000")),
		badge.Render(strings.ToUpper(string(d.Status))),
		m.theme.phase.Render(string(d.Event.Phase())),
		m.theme.unit.Render(unit),
	}
	if response, ok := d.Event.Response(); ok && response != "" {
		parts = append(parts, m.theme.response.Render(truncate(response, maxResponseWidth)))
	}
	if d.Error != "" {
		parts = append(parts, m.theme.statusErr.Render(d.Error))
	}
	return strings.Join(parts, " ")
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.PageUp()
		m.followLog = false
		return true
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.PageDown()
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.SetYOffset(m.viewport.YOffset - 3)
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.SetYOffset(m.viewport.YOffset + 3)
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	default:
		return false
	}
}

func waitForDelivery(deliveries <-chan bus.Delivery) tea.Cmd {
	if deliveries == nil {
		return nil
	}
	return func() tea.Msg {
		d, ok := <-deliveries
		if !ok {
			return streamClosedMsg{}
		}
		return deliveryMsg{delivery: d}
	}
}

func displayOrNA(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "n/a"
	}

	return trimmed
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}
