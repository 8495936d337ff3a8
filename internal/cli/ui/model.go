// Package ui renders a conversion run as a Bubble Tea program: a scrolling
// list of files with their status, a header with the wage in use and a footer
// with running totals.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkapulica/Time-is-Money/internal/cli/hooks"
	"github.com/mkapulica/Time-is-Money/pkg/converter"
)

const (
	listHeightMargin = 4

	phaseInitializing = "Initializing..."
	phaseScanning     = "Scanning..."
	phaseProcessing   = "Processing..."
	phaseComplete     = "Complete"

	listUpdateDebounce = 50 * time.Millisecond
)

// Model is the TUI state. Bubble Tea calls Update and View from a single
// goroutine, so no locking is needed.
type Model struct {
	list    list.Model
	spinner spinner.Model

	width       int
	height      int
	initialized bool

	version string
	wage    string // e.g. "15.00/h"; empty when substitution is disabled

	items   []listItem
	itemIdx map[string]int

	summary      Summary
	phaseMessage string
	fatalError   string

	listDirty   bool // a debounce tick is in flight
	quitting    bool
	runComplete bool
}

type listItem struct {
	path     string
	status   converter.Status
	message  string
	prices   int
	duration time.Duration
}

// Summary holds the running totals shown in the footer.
type Summary struct {
	TotalFilesScanned int
	ProcessedCount    int
	CachedCount       int
	SkippedCount      int
	ErrorCount        int
	Prices            int
	StartTime         time.Time
	Elapsed           time.Duration // set once the run completes
}

// updateListMsg flushes pending item changes into the list component.
type updateListMsg struct{}

// NewModel returns the initial model. wage is shown in the header as is.
func NewModel(version, wage string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return &Model{
		list:         l,
		spinner:      s,
		version:      version,
		wage:         wage,
		itemIdx:      make(map[string]int),
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: phaseInitializing,
	}
}

func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Aborted reports whether the user quit before the run completed.
func (m *Model) Aborted() bool {
	return m.quitting && !m.runComplete
}

// Summary returns the current totals.
func (m *Model) Summary() Summary {
	return m.summary
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.width, max(m.height-listHeightMargin, 1))
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		if m.quitting || m.runComplete {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case hooks.FileDiscoveredMsg:
		if _, ok := m.itemIdx[msg.Path]; !ok {
			m.addItem(listItem{path: msg.Path, status: converter.StatusPending})
			cmds = append(cmds, m.scheduleListUpdate())
		}
		if m.phaseMessage == phaseInitializing {
			m.phaseMessage = phaseScanning
		}

	case hooks.FileStatusUpdateMsg:
		idx, ok := m.itemIdx[msg.Path]
		if !ok {
			m.addItem(listItem{path: msg.Path, status: converter.StatusPending})
			idx = m.itemIdx[msg.Path]
		}
		item := &m.items[idx]
		wasFinal := isFinalStatus(item.status)
		switch {
		case isFinalStatus(msg.Status) && !wasFinal:
			m.count(msg.Status, msg.Prices, 1)
		case !isFinalStatus(msg.Status) && wasFinal:
			m.count(item.status, item.prices, -1)
		}
		item.status = msg.Status
		item.message = msg.Message
		item.prices = msg.Prices
		item.duration = msg.Duration
		cmds = append(cmds, m.scheduleListUpdate())

		if msg.Status == converter.StatusProcessing && !m.runComplete {
			m.phaseMessage = phaseProcessing
		}

	case hooks.RunCompleteMsg:
		s := msg.Report.Summary
		m.runComplete = true
		m.phaseMessage = phaseComplete
		m.summary.TotalFilesScanned = max(m.summary.TotalFilesScanned, s.TotalFilesScanned)
		m.summary.ProcessedCount = s.ProcessedCount
		m.summary.CachedCount = s.CachedCount
		m.summary.SkippedCount = s.SkippedCount
		m.summary.ErrorCount = s.ErrorCount
		m.summary.Prices = s.Prices.Matches
		m.summary.Elapsed = time.Since(m.summary.StartTime)
		if s.FatalErrorOccurred {
			m.fatalError = "Run halted due to fatal error."
			for _, e := range msg.Report.Errors {
				if e.IsFatal {
					m.fatalError = fmt.Sprintf("Fatal Error: %s (%s)", e.Error, e.Path)
					break
				}
			}
		}
		m.quitting = true
		return m, tea.Sequence(m.list.SetItems(m.listItems()), tea.Quit)

	case updateListMsg:
		m.listDirty = false
		cmds = append(cmds, m.list.SetItems(m.listItems()))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if !m.initialized {
		return phaseInitializing
	}

	headerLeft := fmt.Sprintf("Time is Money v%s", m.version)
	if m.wage != "" {
		headerLeft += " · " + m.wage
	}
	headerRight := m.phaseMessage
	if m.phaseMessage != phaseComplete && m.phaseMessage != phaseInitializing {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	header := bar(HeaderStyle, m.width, headerLeft, headerRight)

	elapsed := m.summary.Elapsed
	if !m.runComplete {
		elapsed = time.Since(m.summary.StartTime)
	}
	summaryText := fmt.Sprintf(
		"Processed: %d (Cached: %d) | Skipped: %d | Failed: %d | Prices: %d | Total: %d | %s",
		m.summary.ProcessedCount,
		m.summary.CachedCount,
		m.summary.SkippedCount,
		m.summary.ErrorCount,
		m.summary.Prices,
		m.summary.TotalFilesScanned,
		elapsed.Round(time.Millisecond),
	)
	footer := bar(FooterStyle, m.width, summaryText, "q: quit")

	parts := []string{header, m.list.View()}
	if m.fatalError != "" {
		parts = append(parts, StatusStyleFailed.Render(m.fatalError))
	}
	return lipgloss.JoinVertical(lipgloss.Left, append(parts, footer)...)
}

// bar renders a full-width line in style with left and right at its inner
// edges. Style width includes padding, so the content gets what is left.
func bar(style lipgloss.Style, width int, left, right string) string {
	return style.Width(width).Render(spread(width-style.GetHorizontalFrameSize(), left, right))
}

// spread places left and right at the edges of a line of the given width.
func spread(width int, left, right string) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	middle := ""
	if gap > 0 {
		middle = lipgloss.PlaceHorizontal(gap, lipgloss.Center, " ")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, middle, right)
}

func (m *Model) addItem(item listItem) {
	m.items = append(m.items, item)
	m.itemIdx[item.path] = len(m.items) - 1
	m.summary.TotalFilesScanned++
}

// count adds delta to the counter for a final status.
func (m *Model) count(status converter.Status, prices, delta int) {
	switch status {
	case converter.StatusSuccess:
		m.summary.ProcessedCount += delta
		m.summary.Prices += delta * prices
	case converter.StatusCached:
		m.summary.ProcessedCount += delta
		m.summary.CachedCount += delta
		m.summary.Prices += delta * prices
	case converter.StatusSkipped:
		m.summary.SkippedCount += delta
	case converter.StatusFailed:
		m.summary.ErrorCount += delta
	}
}

// scheduleListUpdate coalesces list refreshes into one per debounce window.
func (m *Model) scheduleListUpdate() tea.Cmd {
	if m.listDirty {
		return nil
	}
	m.listDirty = true
	return tea.Tick(listUpdateDebounce, func(time.Time) tea.Msg { return updateListMsg{} })
}

func (m *Model) listItems() []list.Item {
	items := make([]list.Item, len(m.items))
	for i, item := range m.items {
		items[i] = item
	}
	return items
}

func isFinalStatus(status converter.Status) bool {
	switch status {
	case converter.StatusSuccess, converter.StatusFailed, converter.StatusSkipped, converter.StatusCached:
		return true
	}
	return false
}

func (i listItem) FilterValue() string { return i.path }

func (i listItem) Title() string { return i.path }

func (i listItem) Description() string {
	style, icon := StatusStylePending, " "
	switch i.status {
	case converter.StatusSuccess:
		style, icon = StatusStyleSuccess, "✓"
	case converter.StatusFailed:
		style, icon = StatusStyleFailed, "✗"
	case converter.StatusSkipped:
		style, icon = StatusStyleSkipped, "S"
	case converter.StatusCached:
		style, icon = StatusStyleCached, "C"
	case converter.StatusProcessing:
		style, icon = StatusStyleProcessing, "…"
	}

	var details []string
	switch i.status {
	case converter.StatusFailed:
		details = append(details, i.message)
	case converter.StatusSkipped:
		reason, _, _ := strings.Cut(i.message, ":")
		details = append(details, strings.TrimSpace(reason))
	case converter.StatusSuccess, converter.StatusCached:
		if i.message != "" {
			details = append(details, i.message)
		}
		if d := formatDuration(i.duration); d != "" {
			details = append(details, d)
		}
	}
	return strings.TrimRight(style.Render("["+icon+"]")+" "+strings.Join(details, " · "), " ")
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
