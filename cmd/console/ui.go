package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/room-engine/internal/config"
	"github.com/jwebster45206/room-engine/internal/storage"
	"github.com/jwebster45206/room-engine/pkg/engine"
)

const (
	Title           = "ROOM ENGINE"
	PlaceHolderText = "Type a command..."
	storeTimeout    = 5 * time.Second
)

type entryKind int

const (
	entryGame entryKind = iota
	entryPlayer
	entryConsole
	entryError
)

type entry struct {
	kind entryKind
	text string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *config.Config
	game         *Game
	transcript   []entry
	ended        bool
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int

	// Start menu state
	showStartModal bool
	saves          []storage.SessionInfo
	selected       int
	loadingSaves   bool
	startErr       error

	// Quit confirmation state
	showQuitModal bool
}

type outputMsg struct {
	out engine.Output
	err error
}

type pollMsg time.Time

type savesLoadedMsg struct {
	saves []storage.SessionInfo
	err   error
}

type consoleMsg struct {
	lines []string
	err   error
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *config.Config, game *Game) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:         cfg,
		game:           game,
		textarea:       ta,
		chatViewport:   chatVp,
		metaViewport:   metaVp,
		showStartModal: true,
		loadingSaves:   true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadSaves()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showStartModal {
		return m.updateStartModal(msg)
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			m.add(entryPlayer, input)
			m.refresh()
			return m, m.send(input)
		}

	case outputMsg:
		m.apply(msg.out, msg.err)
		m.refresh()
		return m, nil

	case pollMsg:
		out, err := m.game.Poll()
		m.apply(out, err)
		m.refresh()
		return m, m.pollTick()

	case consoleMsg:
		if msg.err != nil {
			m.add(entryError, "Error: "+msg.err.Error())
		}
		for _, line := range msg.lines {
			m.add(entryConsole, line)
		}
		m.refresh()
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) add(kind entryKind, text string) {
	m.transcript = append(m.transcript, entry{kind: kind, text: text})
}

func (m *ConsoleUI) apply(out engine.Output, err error) {
	for _, line := range out.Lines {
		m.add(entryGame, line)
	}
	if err != nil {
		m.add(entryError, "Error: "+err.Error())
	}
	m.ended = out.Ended
}

func (m *ConsoleUI) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
	m.ready = true
}

// refresh rebuilds both panels for the current width.
func (m *ConsoleUI) refresh() {
	m.chatViewport.SetContent(m.writeChatContent(m.chatViewport.Width - 6))
	m.chatViewport.GotoBottom()
	m.metaViewport.SetContent(m.writeMetadata())
}

func (m ConsoleUI) writeChatContent(width int) string {
	if width < 20 {
		width = 20
	}
	var content strings.Builder
	content.WriteString(titleStyle.Render(Title) + "\n\n")
	content.WriteString("Type commands below. 'help' lists what you can do here, /help lists console commands.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, e := range m.transcript {
		content.WriteString(formatEntry(e, width) + "\n")
	}
	return content.String()
}

func formatEntry(e entry, width int) string {
	switch e.kind {
	case entryPlayer:
		return userStyle.Render("> ") + wordwrap.String(e.text, width-2)
	case entryConsole:
		return promptStyle.Render(wordwrap.String(e.text, width))
	case entryError:
		return errorStyle.Render(wordwrap.String(e.text, width))
	}

	wrapped := wordwrap.String(e.text, width)
	switch {
	case strings.HasPrefix(e.text, "==="):
		return bannerStyle.Render(wrapped)
	case strings.Contains(e.text, "WARNING") || strings.Contains(e.text, "TIME"):
		return warningStyle.Render(wrapped)
	case strings.HasPrefix(e.text, ">>"):
		return systemStyle.Render(wrapped)
	default:
		return wrapped
	}
}

func (m ConsoleUI) writeMetadata() string {
	s := m.game.Session()
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	content.WriteString("ID:\n")
	content.WriteString(s.ID().String()[:8] + "...\n\n")

	content.WriteString("Room:\n")
	content.WriteString(s.CurrentRoom() + "\n\n")

	content.WriteString(fmt.Sprintf("Score: %d\n", s.Score()))
	content.WriteString(fmt.Sprintf("Health: %d\n\n", s.Health()))

	if status := m.game.ChallengeStatus(); status != "" {
		content.WriteString(warningStyle.Render(strings.TrimPrefix(status, ">> ")) + "\n\n")
	}

	content.WriteString("Inventory:\n")
	if inv := s.Inventory(); len(inv) > 0 {
		for _, item := range inv {
			content.WriteString("• " + item + "\n")
		}
	} else {
		content.WriteString("Empty\n")
	}

	if m.ended {
		content.WriteString("\n" + errorStyle.Render("SESSION ENDED") + "\n")
	}

	content.WriteString("\n")
	content.WriteString("Console:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /save, /saves\n")
	content.WriteString("• /load <id>\n")
	content.WriteString("• /copy, /reload\n")

	return content.String()
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(input), " ")

	switch strings.ToLower(cmd) {
	case "/help":
		m.add(entryConsole, "Console commands:")
		m.add(entryConsole, "  /save          - save this session")
		m.add(entryConsole, "  /saves         - list saved sessions")
		m.add(entryConsole, "  /load <id>     - resume a saved session by id prefix")
		m.add(entryConsole, "  /copy          - copy the transcript to the clipboard")
		m.add(entryConsole, "  /reload        - re-read the current room from disk")
		m.add(entryConsole, "  Ctrl+C         - quit")

	case "/save":
		return m, m.save()

	case "/saves":
		return m, m.listSaves()

	case "/load":
		return m, m.load(arg)

	case "/reload":
		return m, m.reload()

	case "/copy":
		if err := clipboard.WriteAll(m.plainTranscript()); err != nil {
			m.add(entryError, "Error: "+err.Error())
		} else {
			m.add(entryConsole, "Transcript copied to clipboard.")
		}

	default:
		m.add(entryError, "Unknown console command "+cmd+". Try /help.")
	}

	m.refresh()
	return m, nil
}

func (m ConsoleUI) plainTranscript() string {
	var b strings.Builder
	for _, e := range m.transcript {
		if e.kind == entryPlayer {
			b.WriteString("> ")
		}
		b.WriteString(e.text + "\n")
	}
	return b.String()
}

func (m ConsoleUI) send(input string) tea.Cmd {
	out, err := m.game.Send(input)
	return func() tea.Msg {
		return outputMsg{out: out, err: err}
	}
}

func (m ConsoleUI) start() tea.Cmd {
	out, err := m.game.Start()
	return func() tea.Msg {
		return outputMsg{out: out, err: err}
	}
}

func (m ConsoleUI) save() tea.Cmd {
	game := m.game
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		id, err := game.Save(ctx)
		if err != nil {
			return consoleMsg{err: err}
		}
		return consoleMsg{lines: []string{"Saved session " + id.String()}}
	}
}

func (m ConsoleUI) listSaves() tea.Cmd {
	game := m.game
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		saves, err := game.Saves(ctx)
		if err != nil {
			return consoleMsg{err: err}
		}
		if len(saves) == 0 {
			return consoleMsg{lines: []string{"No saved sessions."}}
		}
		lines := make([]string, 0, len(saves))
		for _, info := range saves {
			lines = append(lines, describeSave(info))
		}
		return consoleMsg{lines: lines}
	}
}

// load runs synchronously: the engine must not be touched from a command goroutine.
func (m ConsoleUI) load(prefix string) tea.Cmd {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	out, err := m.game.Load(ctx, prefix)
	if err != nil {
		return func() tea.Msg { return consoleMsg{err: err} }
	}
	return func() tea.Msg { return outputMsg{out: out} }
}

func (m ConsoleUI) reload() tea.Cmd {
	out, err := m.game.ReloadRoom()
	return func() tea.Msg {
		return outputMsg{out: out, err: err}
	}
}

func (m ConsoleUI) loadSaves() tea.Cmd {
	game := m.game
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		saves, err := game.Saves(ctx)
		return savesLoadedMsg{saves: saves, err: err}
	}
}

func (m ConsoleUI) pollTick() tea.Cmd {
	return tea.Tick(m.config.PollInterval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func describeSave(info storage.SessionInfo) string {
	return fmt.Sprintf("%s  %-14s %s", info.ID.String()[:8], info.Room, info.UpdatedAt.Local().Format("2006-01-02 15:04"))
}

func (m ConsoleUI) updateStartModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case savesLoadedMsg:
		m.loadingSaves = false
		m.startErr = msg.err
		m.saves = msg.saves

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selected > 0 {
				m.selected--
			}
		case tea.KeyDown:
			if m.selected < len(m.saves) {
				m.selected++
			}
		case tea.KeyEnter:
			if m.loadingSaves {
				return m, nil
			}
			m.showStartModal = false
			m.layout()
			m.textarea.Focus()

			var first tea.Cmd
			if m.selected == 0 {
				first = m.start()
			} else {
				first = m.load(m.saves[m.selected-1].ID.String())
			}
			m.refresh()
			return m, tea.Batch(first, m.pollTick(), textarea.Blink)
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case pollMsg:
		// keep the clock running behind the modal
		out, err := m.game.Poll()
		m.apply(out, err)
		m.refresh()
		return m, m.pollTick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Unsaved progress will be lost. Use /save first to keep it.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderStartModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	switch {
	case m.loadingSaves:
		content.WriteString(modalTitleStyle.Render("Loading Saves..."))
		content.WriteString("\n\n")
		content.WriteString(warningStyle.Render("Please wait..."))
	default:
		content.WriteString(modalTitleStyle.Render(Title))
		content.WriteString("\n\n")
		if m.startErr != nil {
			content.WriteString(errorStyle.Render(fmt.Sprintf("Saves unavailable: %v", m.startErr)))
			content.WriteString("\n\n")
		}

		options := []string{"New game"}
		for _, info := range m.saves {
			options = append(options, "Resume "+describeSave(info))
		}
		for i, opt := range options {
			if i == m.selected {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + opt))
			} else {
				content.WriteString(modalItemStyle.Render("  " + opt))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showStartModal {
		return m.renderStartModal()
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
