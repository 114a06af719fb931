package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"

	"github.com/spyglasshq/spyglass/pkg/api"
	"github.com/spyglasshq/spyglass/pkg/appstate"
	"github.com/spyglasshq/spyglass/pkg/chat"
)

// SnapshotMsg carries a fresh controller snapshot into the program.
type SnapshotMsg struct {
	Snapshot chat.Snapshot
}

// NoticeMsg carries a transient controller notice into the program.
type NoticeMsg struct {
	Notice chat.Notice
}

type clearNoticeMsg struct{}

const (
	sidebarWidth  = 28
	noticeTimeout = 4 * time.Second
)

// Model is the interactive chat view. It is a pure consumer of controller
// snapshots; every mutation goes through the controller.
type Model struct {
	ctrl  *chat.Controller
	store *appstate.Store

	input    textinput.Model
	spin     spinner.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	codec    tokenizer.Codec

	snapshot chat.Snapshot
	notice   string
	noticeAt chat.NoticeLevel

	width  int
	height int
	ready  bool
}

func NewModel(ctrl *chat.Controller, store *appstate.Store) Model {
	input := textinput.New()
	input.Placeholder = "Ask about your services, traces and errors..."
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		log.Warn().Str("component", "ui").Err(err).Msg("tokenizer unavailable, footer count disabled")
	}

	return Model{
		ctrl:     ctrl,
		store:    store,
		input:    input,
		spin:     spin,
		codec:    codec,
		snapshot: ctrl.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, func() tea.Msg {
		m.ctrl.LoadSessions(context.Background())
		return nil
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshTranscript()
		return m, nil

	case SnapshotMsg:
		m.snapshot = msg.Snapshot
		m.refreshTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case NoticeMsg:
		m.notice = msg.Notice.Text
		m.noticeAt = msg.Notice.Level
		return m, tea.Tick(noticeTimeout, func(time.Time) tea.Msg { return clearNoticeMsg{} })

	case clearNoticeMsg:
		m.notice = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.ctrl.Close()
			return m, tea.Quit
		case "enter":
			content := m.input.Value()
			m.input.Reset()
			return m, m.sendCmd(content)
		case "ctrl+n":
			return m, func() tea.Msg {
				m.ctrl.StartNewSession()
				return nil
			}
		case "ctrl+r":
			return m, func() tea.Msg {
				m.ctrl.LoadSessions(context.Background())
				return nil
			}
		case "ctrl+b":
			if m.store != nil {
				m.store.Dispatch(appstate.ToggleSidebar{})
				m.layout()
				m.refreshTranscript()
			}
			return m, nil
		case "ctrl+y":
			return m, m.copyLastAnswerCmd()
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) sendCmd(content string) tea.Cmd {
	return func() tea.Msg {
		m.ctrl.SendMessage(context.Background(), content)
		return nil
	}
}

func (m *Model) copyLastAnswerCmd() tea.Cmd {
	var last string
	for i := len(m.snapshot.Messages) - 1; i >= 0; i-- {
		msg := m.snapshot.Messages[i]
		if msg.Role == chat.RoleAssistant && msg.Content != "" {
			last = msg.Content
			break
		}
	}
	if last == "" {
		return nil
	}
	return func() tea.Msg {
		if err := clipboard.WriteAll(last); err != nil {
			return NoticeMsg{Notice: chat.Notice{Level: chat.NoticeError, Text: "Could not copy to clipboard"}}
		}
		return NoticeMsg{Notice: chat.Notice{Level: chat.NoticeInfo, Text: "Copied last answer"}}
	}
}

func (m *Model) sidebarVisible() bool {
	if m.store == nil {
		return true
	}
	return !m.store.State().SidebarCollapsed
}

func (m *Model) layout() {
	transcriptWidth := m.width
	if m.sidebarVisible() {
		transcriptWidth -= sidebarWidth
	}
	if transcriptWidth < 20 {
		transcriptWidth = 20
	}
	// header + notice + input + footer
	transcriptHeight := m.height - 4
	if transcriptHeight < 3 {
		transcriptHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(transcriptWidth, transcriptHeight)
	} else {
		m.viewport.Width = transcriptWidth
		m.viewport.Height = transcriptHeight
	}
	m.input.Width = m.width - 4

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(transcriptWidth-2),
	)
	if err != nil {
		log.Warn().Str("component", "ui").Err(err).Msg("markdown renderer unavailable")
		renderer = nil
	}
	m.renderer = renderer
}

func (m *Model) refreshTranscript() {
	var b strings.Builder
	for _, msg := range m.snapshot.Messages {
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(userStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
			b.WriteString("\n\n")
		case chat.RoleAssistant:
			b.WriteString(assistantStyle.Render("Spyglass"))
			b.WriteString(m.assistantSuffix(msg))
			b.WriteString("\n")
			for _, step := range msg.Steps {
				b.WriteString(renderStep(step))
				b.WriteString("\n")
			}
			b.WriteString(m.renderMarkdown(msg))
			b.WriteString("\n")
		}
	}
	m.viewport.SetContent(b.String())
}

func (m *Model) assistantSuffix(msg chat.Message) string {
	switch {
	case msg.ID == m.snapshot.StreamingTurnID:
		return " " + m.spin.View()
	case msg.Status == api.TurnFailed:
		return " " + failedStyle.Render("(failed)")
	case msg.FeedbackScore != nil:
		return footerStyle.Render(" [" + string(*msg.FeedbackScore) + "]")
	default:
		return ""
	}
}

func (m *Model) renderMarkdown(msg chat.Message) string {
	content := msg.Content
	if content == "" {
		return "\n"
	}
	if m.renderer == nil {
		return content + "\n"
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}

func renderStep(step chat.Step) string {
	label := step.ToolName
	if label == "" {
		label = step.ID
	}
	switch step.Status {
	case chat.StepRunning:
		return stepRunningStyle.Render("  ◦ " + label + " ...")
	case chat.StepFailed:
		return stepFailedStyle.Render("  ✗ " + label)
	default:
		return stepCompletedStyle.Render("  ✓ " + label)
	}
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	header := headerStyle.Render("Spyglass Chat")
	if m.snapshot.CurrentSessionID != "" {
		header += footerStyle.Render("  session " + m.snapshot.CurrentSessionID)
	}

	body := m.viewport.View()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), body)
	}

	notice := ""
	if m.notice != "" {
		if m.noticeAt == chat.NoticeError {
			notice = noticeErrorStyle.Render(m.notice)
		} else {
			notice = noticeInfoStyle.Render(m.notice)
		}
	}

	return strings.Join([]string{
		header,
		body,
		notice,
		m.input.View(),
		m.footerView(),
	}, "\n")
}

func (m Model) sidebarView() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Sessions (Ctrl+B)"))
	b.WriteString("\n")
	if len(m.snapshot.Sessions) == 0 {
		b.WriteString(footerStyle.Render("no sessions yet"))
	}
	for _, s := range m.snapshot.Sessions {
		title := s.Title
		if title == "" {
			title = s.ID
		}
		title = truncateTitle(title, sidebarWidth-4)
		line := "  " + title
		if s.ID == m.snapshot.CurrentSessionID {
			line = sidebarActiveStyle.Render("▸ " + title)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return sidebarStyle.Width(sidebarWidth - 2).Height(m.viewport.Height).Render(b.String())
}

// truncateTitle shortens a title to max runes; slicing bytes would cut
// multi-byte characters in half.
func truncateTitle(title string, max int) string {
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return string(runes[:max-1]) + "…"
}

func (m Model) footerView() string {
	parts := []string{
		fmt.Sprintf("state: %s", m.snapshot.State),
		"enter send · ctrl+n new · ctrl+y copy · ctrl+r refresh · esc quit",
	}
	if m.codec != nil {
		if draft := m.input.Value(); draft != "" {
			if ids, _, err := m.codec.Encode(draft); err == nil {
				parts = append(parts, fmt.Sprintf("~%d tokens", len(ids)))
			}
		}
	}
	return footerStyle.Render(strings.Join(parts, "  |  "))
}
