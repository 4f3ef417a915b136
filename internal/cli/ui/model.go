// Package ui implements the interactive terminal view of a run.
package ui

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stackvity/utf-cast/internal/cli/hooks"
	"github.com/stackvity/utf-cast/pkg/converter"
)

const listHeightMargin = 4

const (
	phaseStarting   = "Starting..."
	phaseScanning   = "Scanning..."
	phaseCancelling = "Cancelling..."
)

// Model represents the state of the TUI application. It owns the result
// list; records arrive as hooks.FileRecordMsg in discovery order.
type Model struct {
	list    list.Model
	spinner spinner.Model

	width       int
	height      int
	initialized bool

	appVersion string
	directory  string
	cancel     func()

	fileItems     []listItem
	summary       Summary
	phaseMessage  string
	finished      bool
	runError      string
	cancelling    bool
	quitting      bool
	updatePending bool
}

// listItem is one file row.
type listItem struct {
	path     string // relative to the scanned directory
	encoding string
	hasBOM   bool
	state    converter.State
	message  string
}

// Summary holds the aggregated counts displayed in the footer.
type Summary struct {
	Total     int
	Detected  int
	Converted int
	Failed    int
	WithBOM   int
	StartTime time.Time
	Elapsed   time.Duration // set when the run finishes
}

// UpdateListMsg asks the model to push its items into the list component.
type UpdateListMsg struct{}

const listUpdateDebounceDuration = 50 * time.Millisecond

// NewModel creates the initial model. cancel is invoked when the user quits
// while the run is still active; it may be nil.
func NewModel(appVersion, directory string, cancel func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorStatusScanning)

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

	if appVersion == "" {
		appVersion = "dev"
	}
	return Model{
		list:         l,
		spinner:      s,
		appVersion:   appVersion,
		directory:    directory,
		cancel:       cancel,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: phaseStarting,
		fileItems:    make([]listItem, 0, 256),
	}
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles key input, window resizes, and run notifications.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			// First press cancels an active run and waits for it to finish;
			// a second press, or a press after the run ended, exits.
			if m.finished || m.cancelling {
				m.quitting = true
				return m, tea.Quit
			}
			m.cancelling = true
			m.phaseMessage = phaseCancelling
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting || m.finished {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case hooks.FileRecordMsg:
		m.addRecord(msg.Record)
		if !m.cancelling && !m.finished {
			m.phaseMessage = phaseScanning
		}
		cmds = append(cmds, m.scheduleListUpdate())

	case hooks.RunFinishedMsg:
		m.finished = true
		m.summary.Elapsed = msg.Info.Duration()
		m.phaseMessage = string(msg.Info.Outcome)
		if msg.Info.Err != nil {
			m.runError = msg.Info.Err.Error()
		}
		cmds = append(cmds, m.scheduleListUpdate())
		if m.cancelling {
			m.quitting = true
			cmds = append(cmds, tea.Quit)
		}

	case UpdateListMsg:
		m.updatePending = false
		items := make([]list.Item, len(m.fileItems))
		for i, item := range m.fileItems {
			items[i] = item
		}
		cmds = append(cmds, m.list.SetItems(items))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) addRecord(r converter.FileRecord) {
	item := listItem{
		path:     m.displayPath(r.FullPath),
		encoding: r.EncodingName,
		hasBOM:   r.HasBOM,
		state:    r.State,
		message:  r.ErrorMessage,
	}
	m.fileItems = append(m.fileItems, item)

	m.summary.Total++
	if r.HasBOM {
		m.summary.WithBOM++
	}
	switch r.State {
	case converter.StateDetected:
		m.summary.Detected++
	case converter.StateConverted:
		m.summary.Converted++
	case converter.StateFailed:
		m.summary.Failed++
	}
}

func (m *Model) displayPath(full string) string {
	if m.directory == "" {
		return full
	}
	rel, err := filepath.Rel(m.directory, full)
	if err != nil {
		return full
	}
	return filepath.ToSlash(rel)
}

// scheduleListUpdate coalesces bursts of records into one list refresh.
func (m *Model) scheduleListUpdate() tea.Cmd {
	if m.updatePending {
		return nil
	}
	m.updatePending = true
	return tea.Tick(listUpdateDebounceDuration, func(time.Time) tea.Msg {
		return UpdateListMsg{}
	})
}

// View renders the header, the result list and the summary footer.
func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return "Initializing..."
	}

	headerLeft := fmt.Sprintf("UTFCast v%s  %s", m.appVersion, m.directory)
	headerRight := m.phaseMessage
	if !m.finished {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	header := HeaderStyle.Width(m.width).Render(joinSpread(m.width, headerLeft, headerRight, lipgloss.Top))

	elapsed := m.summary.Elapsed
	if !m.finished {
		elapsed = time.Since(m.summary.StartTime)
	}
	footerLeft := fmt.Sprintf(
		"Files: %d | Converted: %d | Detected: %d | Failed: %d | BOM: %d | Elapsed: %s",
		m.summary.Total,
		m.summary.Converted,
		m.summary.Detected,
		m.summary.Failed,
		m.summary.WithBOM,
		elapsed.Round(time.Millisecond),
	)
	footerRight := "q: cancel"
	if m.finished || m.cancelling {
		footerRight = "q: quit"
	}
	footer := FooterStyle.Width(m.width).Render(joinSpread(m.width, footerLeft, footerRight, lipgloss.Bottom))

	errorView := ""
	if m.runError != "" {
		errorView = StatusStyleFailed.Render("Run failed: "+m.runError) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.list.View(),
		errorView,
		footer,
	)
}

func joinSpread(width int, left, right string, pos lipgloss.Position) string {
	center := ""
	if gap := width - lipgloss.Width(left) - lipgloss.Width(right); gap > 0 {
		center = lipgloss.PlaceHorizontal(gap, lipgloss.Center, " ")
	}
	return lipgloss.JoinHorizontal(pos, left, center, right)
}

// FilterValue implements list.Item.
func (i listItem) FilterValue() string { return i.path }

// Title implements list.DefaultItem.
func (i listItem) Title() string { return i.path }

// Description implements list.DefaultItem.
func (i listItem) Description() string {
	var style lipgloss.Style
	var icon string
	switch i.state {
	case converter.StateConverted:
		style, icon = StatusStyleConverted, "✓"
	case converter.StateFailed:
		style, icon = StatusStyleFailed, "✗"
	default:
		style, icon = StatusStyleDetected, "?"
	}

	bom := "no BOM"
	if i.hasBOM {
		bom = "BOM"
	}
	details := fmt.Sprintf("%s, %s", i.encoding, bom)
	if i.state == converter.StateFailed && i.message != "" {
		details += ": " + i.message
	}
	return fmt.Sprintf("%s %s", style.Render(fmt.Sprintf("[%s]", icon)), details)
}

const (
	ColorHeaderFg = lipgloss.Color("252")
	ColorHeaderBg = lipgloss.Color("62")

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56")

	ColorNormalFg     = lipgloss.Color("250")
	ColorNormalDescFg = lipgloss.Color("244")

	ColorSelectedFg     = lipgloss.Color("255")
	ColorSelectedBg     = lipgloss.Color("56")
	ColorSelectedDescFg = lipgloss.Color("248")

	ColorStatusConverted = lipgloss.Color("40")
	ColorStatusFailed    = lipgloss.Color("196")
	ColorStatusDetected  = lipgloss.Color("39")
	ColorStatusScanning  = lipgloss.Color("205")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleConverted = lipgloss.NewStyle().Foreground(ColorStatusConverted)
	StatusStyleFailed    = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleDetected  = lipgloss.NewStyle().Foreground(ColorStatusDetected)
)
