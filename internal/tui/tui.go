// Package tui provides a Bubble Tea terminal user interface for multitok.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/multitok/internal/config"
	"github.com/handiism/multitok/internal/download"
	"github.com/handiism/multitok/internal/model"
	"github.com/handiism/multitok/internal/provider"
	"github.com/spf13/afero"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

// maxLogs is how many progress lines stay on screen.
const maxLogs = 10

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	fs        afero.Fs
	logger    *slog.Logger
	logs      []LogEntry
	links     int
	summary   *download.Summary
	err       error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// Download session and the channel its progress events arrive on
	session *download.Session
	events  chan download.ProgressEvent

	// Download progress
	totalFiles      int32
	downloadedFiles int32
	totalBytes      int64
	receivedBytes   int64

	verbose bool

	// quitting is set when the user quits while a session is running; the
	// program exits once the session has been closed.
	quitting bool

	width  int
	height int
}

// NewModel creates a new TUI model. The settings are modified by the
// option toggles.
func NewModel(settings *config.Settings, fs afero.Fs, logger *slog.Logger) Model {
	ti := textinput.New()
	ti.Placeholder = "links.txt"
	ti.SetValue(settings.LinksPath)
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		fs:        fs,
		logger:    logger,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent when download progress updates.
	ProgressMsg struct {
		Event download.ProgressEvent

		// events is the channel the event came from
		events <-chan download.ProgressEvent
	}

	// InitDoneMsg is sent when the links are read and the session is open.
	InitDoneMsg struct {
		Links   []model.Link
		Session *download.Session
		Err     error
	}

	// DownloadDoneMsg is sent when all downloads complete.
	DownloadDoneMsg struct {
		Summary  *download.Summary
		Received int64
		Total    int64
		Files    int32
		TotalF   int32
		Err      error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			if m.state == StateDownloading || m.state == StateInitializing {
				// Workers may still be marking links done
				m.quitting = true
				return m, nil
			}
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				m.settings.LinksPath = m.textInput.Value()
				m.events = make(chan download.ProgressEvent, 1024)
				m.state = StateInitializing
				return m, tea.Batch(m.initializeDownload(), m.spinner.Tick)
			}

		// Option toggles use control keys so they don't collide with typing
		case "ctrl+t", "ctrl+o", "ctrl+s", "ctrl+l", "ctrl+g", "tab":
			if m.state == StateInput {
				m.toggle(msg.String())
			}
			return m, nil

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for new download
				m.closeSession()
				m.state = StateInput
				m.logs = nil
				m.links = 0
				m.summary = nil
				m.err = nil
				m.downloadedFiles = 0
				m.totalFiles = 0
				m.receivedBytes = 0
				m.totalBytes = 0
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.Focus()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, waitForEvent(msg.events))
		// Filter verbose messages if not in verbose mode
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			break
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case InitDoneMsg:
		if m.quitting {
			if msg.Session != nil {
				msg.Session.Close()
			}
			return m, tea.Quit
		}
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.links = len(msg.Links)
			m.session = msg.Session
			m.state = StateDownloading
			// Start the actual download and tick for progress updates
			cmds = append(cmds, m.startDownload(msg.Links), m.tickProgress(), waitForEvent(m.events))
		}

	case DownloadDoneMsg:
		m.summary = msg.Summary
		m.receivedBytes = msg.Received
		m.totalBytes = msg.Total
		m.downloadedFiles = msg.Files
		m.totalFiles = msg.TotalF
		m.closeSession()
		if m.quitting {
			return m, tea.Quit
		}
		if m.ctx.Err() != nil {
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		} else if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.state = StateComplete
		}

	case TickMsg:
		// Update progress from manager
		if m.session != nil && m.state == StateDownloading {
			received, total, files, totalFiles := m.session.GetProgress()
			m.receivedBytes = received
			m.totalBytes = total
			m.downloadedFiles = files
			m.totalFiles = totalFiles

			var percent float64
			if totalFiles > 0 {
				percent = float64(files) / float64(totalFiles)
			}
			progressCmd := m.progress.SetPercent(percent)
			cmds = append(cmds, progressCmd, m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) toggle(key string) {
	switch key {
	case "ctrl+t":
		m.settings.Watermark = !m.settings.Watermark
	case "ctrl+o":
		m.settings.SaveMetadata = !m.settings.SaveMetadata
	case "ctrl+s":
		m.settings.SkipExisting = !m.settings.SkipExisting
	case "ctrl+l":
		m.settings.NoFolders = !m.settings.NoFolders
	case "ctrl+g":
		m.verbose = !m.verbose
	case "tab":
		m.settings.Provider = nextProvider(m.settings.Provider)
	}
}

func nextProvider(current string) string {
	names := provider.Names()
	i := slices.Index(names, current)
	return names[(i+1)%len(names)]
}

func (m *Model) closeSession() {
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent delivers the next progress event as a ProgressMsg. It
// returns nil once the channel is closed.
func waitForEvent(events <-chan download.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: event, events: events}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("🎬 multitok"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Bulk download videos and photo posts"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Links file:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Keep watermark (ctrl+t)\n", checkbox(m.settings.Watermark)))
	b.WriteString(fmt.Sprintf("  %s Save metadata (ctrl+o)\n", checkbox(m.settings.SaveMetadata)))
	b.WriteString(fmt.Sprintf("  %s Skip existing files (ctrl+s)\n", checkbox(m.settings.SkipExisting)))
	b.WriteString(fmt.Sprintf("  %s No author folders (ctrl+l)\n", checkbox(m.settings.NoFolders)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+g)\n", checkbox(m.verbose)))
	b.WriteString(fmt.Sprintf("  Provider: %s (tab)\n", m.settings.Provider))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output: %s | Workers: %d | Cache: %s",
		m.settings.OutputDir, m.settings.Workers, m.settings.CachePath)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Reading links..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(successStyle.Render(fmt.Sprintf("%d link(s) via %s", m.links, m.settings.Provider)))
	b.WriteString("\n\n")

	// Progress bar
	var percent float64
	if m.totalFiles > 0 {
		percent = float64(m.downloadedFiles) / float64(m.totalFiles)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Files: %d/%d | Downloaded: %.2f MB",
		m.downloadedFiles,
		m.totalFiles,
		float64(m.receivedBytes)/1024/1024,
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	var succeeded, skipped, failed int
	if m.summary != nil {
		succeeded, skipped, failed = m.summary.Succeeded, m.summary.Skipped, m.summary.Failed
	}

	box := boxStyle.Render(fmt.Sprintf(
		"✨ Download Complete!\n\n"+
			"Downloaded: %d\n"+
			"Skipped: %d\n"+
			"Failed: %d\n"+
			"Files: %d\n"+
			"Size: %.2f MB",
		succeeded,
		skipped,
		failed,
		m.downloadedFiles,
		float64(m.receivedBytes)/1024/1024,
	))
	b.WriteString(box)
	b.WriteString("\n")
	if failed > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf("Failed links were appended to %s", m.settings.ErrorLogPath)))
		b.WriteString("\n")
	}
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+t/o/s/l/g: toggle options • tab: provider • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// initializeDownload reads the links file and opens a download session.
func (m *Model) initializeDownload() tea.Cmd {
	ctx, settings, fs, logger, events := m.ctx, *m.settings, m.fs, m.logger, m.events

	return func() tea.Msg {
		links, err := download.ReadLinks(fs, settings.LinksPath)
		if err != nil {
			return InitDoneMsg{Err: err}
		}

		session, err := download.NewSession(ctx, &settings, fs, logger, func(event download.ProgressEvent) {
			select {
			case events <- event:
			default:
				// The screen only shows the last few lines
			}
		})
		if err != nil {
			return InitDoneMsg{Err: err}
		}

		return InitDoneMsg{Links: links, Session: session}
	}
}

// startDownload runs the session in background. The events channel is
// closed when the run returns; the session is closed by the
// DownloadDoneMsg handler.
func (m *Model) startDownload(links []model.Link) tea.Cmd {
	ctx, session, events := m.ctx, m.session, m.events

	return func() tea.Msg {
		summary, err := session.Run(ctx, links)
		close(events)
		received, total, files, totalFiles := session.GetProgress()

		return DownloadDoneMsg{
			Summary:  summary,
			Received: received,
			Total:    total,
			Files:    files,
			TotalF:   totalFiles,
			Err:      err,
		}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings, fs afero.Fs, logger *slog.Logger) error {
	m := NewModel(settings, fs, logger)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	m.cancel()
	return err
}
