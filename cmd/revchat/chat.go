package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/revchat/chat"
	"github.com/a-h/revchat/models"
	"github.com/a-h/revchat/settings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type ChatCommand struct {
	ClientFlags   `embed:""`
	SettingsFlags `embed:""`
	LogFile       string `help:"Write logs to this file. Logs are discarded if not set." env:"REVCHAT_LOG_FILE" default:""`
	LogLevel      string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ChatCommand) Run(ctx context.Context) (err error) {
	// The terminal belongs to the UI, so logs can't go to stderr.
	log := slog.New(slog.DiscardHandler)
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		log = newLogger(f, c.LogLevel)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	saved, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	saved = withDefaults(saved, c.ClientFlags)

	b := newBackend(log, c.ClientFlags, saved.PortOverride)
	events := make(chan chat.Event, 64)
	dispatch := func(e chat.Event) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	}

	if fs, ok := store.(*settings.FileStore); ok {
		if err = os.MkdirAll(filepath.Dir(fs.Path), 0o700); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
		go func() {
			err := settings.Watch(ctx, log, fs, func(s models.Settings) {
				dispatch(chat.SettingsLoaded{Settings: withDefaults(s, c.ClientFlags)})
			})
			if err != nil {
				log.Warn("settings watcher stopped", slog.Any("error", err))
			}
		}()
	}

	m := newModel(ctx, log, chat.NewState(saved), chat.NewSession(log, b), b, store, events, dispatch)
	p := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err = p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Dracula color scheme.
var (
	Background  = lipgloss.Color("#282a36")
	CurrentLine = lipgloss.Color("#44475a")
	Comment     = lipgloss.Color("#6272a4")
	Cyan        = lipgloss.Color("#8be9fd")
	Green       = lipgloss.Color("#50fa7b")
	Pink        = lipgloss.Color("#ff79c6")
	Purple      = lipgloss.Color("#bd93f9")
	Red         = lipgloss.Color("#ff5555")
)

var (
	headerStyle = lipgloss.NewStyle().Background(CurrentLine).Foreground(Purple).Bold(true).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(Comment)
)

type model struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	status   string
	ctx      context.Context
	log      *slog.Logger

	state     chat.State
	nextID    int
	session   *chat.Session
	backend   *backend
	store     settings.Store
	events    chan chat.Event
	dispatch  func(chat.Event)
	wrapWidth int
}

func newModel(ctx context.Context, log *slog.Logger, state chat.State, session *chat.Session, b *backend, store settings.Store, events chan chat.Event, dispatch func(chat.Event)) model {
	ta := textarea.New()
	ta.Placeholder = "Send a message, or /help..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 4000

	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(Purple)))

	m := model{
		ctx:       ctx,
		log:       log,
		textarea:  ta,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		state:     state,
		session:   session,
		backend:   b,
		store:     store,
		events:    events,
		dispatch:  dispatch,
		wrapWidth: 80,
	}
	m.render()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.subscribeToEvents(),
	)
}

func (m model) subscribeToEvents() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-m.events:
			return e
		case <-m.ctx.Done():
			return nil
		}
	}
}

var roleToStyle = map[models.Role]lipgloss.Style{
	models.RoleSystem:    lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).MaxWidth(90).Background(Background).Foreground(Green),
	models.RoleUser:      lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Pink),
	models.RoleAssistant: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Cyan),
	models.RoleError:     lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Red),
}

var roleToIcon = map[models.Role]string{
	models.RoleSystem:    "🤖",
	models.RoleUser:      "🥷",
	models.RoleAssistant: "✨",
	models.RoleError:     "💥",
}

func formatMessage(msg models.ChatMessage, width int) string {
	style, ok := roleToStyle[msg.Role]
	if !ok {
		return msg.Content
	}
	icon, ok := roleToIcon[msg.Role]
	if !ok {
		icon = "🤷"
	}
	wrapped := wordwrap.String(strings.TrimSpace(icon+" "+msg.Content), width)
	return style.Render(wrapped)
}

func (m *model) render() {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("revchat " + m.state.Form.Model))
	sb.WriteString("\n")
	for _, cm := range m.state.Transcript {
		sb.WriteString(formatMessage(cm, m.wrapWidth))
		sb.WriteString("\n")
	}
	if m.state.InFlight {
		pending := models.ChatMessage{Role: models.RoleAssistant, Content: m.state.Pending + " " + m.spinner.View()}
		sb.WriteString(formatMessage(pending, m.wrapWidth))
		sb.WriteString("\n")
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

// apply reduces the event into the state.
func (m *model) apply(e chat.Event) {
	m.state = chat.Reduce(m.state, e)
	m.backend.SetPortOverride(m.state.Form.PortOverride)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case chat.Event:
		m.apply(msg)
		if _, ok := msg.(chat.SettingsLoaded); ok {
			m.status = "settings reloaded"
		}
		m.render()
		return m, m.subscribeToEvents()
	case spinner.TickMsg:
		if !m.state.InFlight {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.render()
		return m, cmd
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 4
		m.textarea.SetWidth(msg.Width)
		m.wrapWidth = max(msg.Width-6, 20)
		m.render()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.session.Cancel()
			return m, tea.Quit
		case "esc":
			if m.state.InFlight {
				m.session.Cancel()
				return m, nil
			}
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		default:
			// Send all other keypresses to the textarea.
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}
	case cursor.BlinkMsg:
		// Textarea should also process cursor blinks.
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m model) submit() (tea.Model, tea.Cmd) {
	v := strings.TrimSpace(m.textarea.Value())
	if c, ok := parseCommand(v); ok {
		m.runCommand(c)
		m.textarea.Reset()
		m.render()
		return m, nil
	}
	if m.state.InFlight {
		m.status = "wait for the response, or press esc to cancel"
		return m, nil
	}

	m.apply(chat.FieldChanged{Field: chat.FieldUserMessage, Value: v})
	m.nextID++
	id := m.nextID
	m.apply(chat.Submitted{RequestID: id})
	m.status = ""
	if !m.state.InFlight {
		// Validation failed. The error is in the transcript.
		m.render()
		return m, nil
	}
	m.textarea.Reset()
	req := m.state.Form.Request()
	m.session.Start(m.ctx, id, req, m.dispatch)
	m.render()
	return m, m.spinner.Tick
}

func (m *model) runCommand(c command) {
	if c.name == commandSave {
		if err := m.store.Save(m.ctx, m.state.Form.Settings()); err != nil {
			m.log.Error("failed to save settings", slog.Any("error", err))
			m.status = "failed to save settings: " + err.Error()
			return
		}
		m.status = "settings saved"
		return
	}
	events, status, err := c.apply()
	if err != nil {
		m.status = err.Error()
		return
	}
	for _, e := range events {
		m.apply(e)
	}
	m.status = status
	if c.name == commandKey {
		m.status = fmt.Sprintf("%s (%s)", status, maskKey(c.arg))
	}
}

func (m model) View() string {
	return fmt.Sprintf("%s\n%s\n%s",
		m.viewport.View(),
		statusStyle.Render(m.status),
		m.textarea.View(),
	) + "\n\n"
}
