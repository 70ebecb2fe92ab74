// Package tui hosts the recording session in a bubbletea program.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rbright/rehearse/internal/dashboard"
	"github.com/rbright/rehearse/internal/indicator"
	"github.com/rbright/rehearse/internal/notify"
	"github.com/rbright/rehearse/internal/session"
)

const (
	fillStep       = 4
	fillInterval   = 100 * time.Millisecond
	bannerLifetime = 5 * time.Second

	msgNothingToCopy  = "No analysis to copy yet."
	msgCopied         = "Analysis copied to clipboard."
	msgNoQuestion     = "Press n for a question."
	msgQuestionFailed = "Failed to load new question. Please try again."
)

// Controller is the session surface the model drives.
type Controller interface {
	Initialize(ctx context.Context) error
	Toggle(ctx context.Context) error
	Hidden(ctx context.Context) error
	SetQuestion(question string)
	SetNotes(notes string)
	Teardown()
}

// QuestionSource fetches interview questions.
type QuestionSource interface {
	NewQuestion(ctx context.Context) (string, error)
}

// Copier exports an analysis view.
type Copier interface {
	CopyView(ctx context.Context, view dashboard.View) error
}

// Notifier is the shared notification channel. Its sinks feed back into the
// program, so it is only called from commands.
type Notifier interface {
	Success(message string)
	Warning(message string)
	Error(message string)
}

// Model is the root bubbletea model for the rehearse TUI.
type Model struct {
	ctx        context.Context
	controller Controller
	questions  QuestionSource
	copier     Copier
	notifier   Notifier

	// Session surface
	controls session.Controls
	status   indicator.Status

	// Interview
	question     string
	notes        string
	editingNotes bool

	// Dashboard
	view *dashboard.View
	fill int

	// Banner
	banner    *notify.Notification
	bannerSeq int

	width  int
	height int
}

// New creates a model. questions and copier may be nil.
func New(ctx context.Context, controller Controller, questions QuestionSource, copier Copier) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	return Model{
		ctx:        ctx,
		controller: controller,
		questions:  questions,
		copier:     copier,
		status:     indicator.Ready(),
	}
}

// WithNotifier routes model-originated notifications through n instead of
// the local banner.
func (m Model) WithNotifier(n Notifier) Model {
	m.notifier = n
	return m
}

// Init acquires the devices and fetches the first question.
func (m Model) Init() tea.Cmd {
	if m.questions == nil {
		return m.initCmd()
	}
	return tea.Batch(m.initCmd(), m.questionCmd())
}

func (m Model) initCmd() tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{Err: m.controller.Initialize(m.ctx)}
	}
}

func (m Model) toggleCmd() tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{Err: m.controller.Toggle(m.ctx)}
	}
}

func (m Model) hiddenCmd() tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{Err: m.controller.Hidden(m.ctx)}
	}
}

func (m Model) questionCmd() tea.Cmd {
	return func() tea.Msg {
		question, err := m.questions.NewQuestion(m.ctx)
		return QuestionMsg{Question: question, Err: err}
	}
}

func (m Model) copyCmd(view dashboard.View) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Err: m.copier.CopyView(m.ctx, view)}
	}
}

func (m Model) teardownCmd() tea.Cmd {
	return func() tea.Msg {
		m.controller.Teardown()
		return nil
	}
}

func fillTickCmd() tea.Cmd {
	return tea.Tick(fillInterval, func(time.Time) tea.Msg {
		return fillTickMsg{}
	})
}

func clearBannerCmd(seq int) tea.Cmd {
	return tea.Tick(bannerLifetime, func(time.Time) tea.Msg {
		return clearBannerMsg{seq: seq}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.BlurMsg:
		return m, m.hiddenCmd()

	case ControlsMsg:
		m.controls = msg.Controls
		return m, nil

	case StatusMsg:
		m.status = msg.Status
		return m, nil

	case NotificationMsg:
		return m.showBanner(msg.Notification)

	case clearBannerMsg:
		if msg.seq == m.bannerSeq {
			m.banner = nil
		}
		return m, nil

	case DashboardMsg:
		view := msg.View
		m.view = &view
		m.fill = 0
		return m, fillTickCmd()

	case fillTickMsg:
		if m.view == nil || m.fill >= m.view.BarFill {
			return m, nil
		}
		m.fill = min(m.fill+fillStep, m.view.BarFill)
		if m.fill < m.view.BarFill {
			return m, fillTickCmd()
		}
		return m, nil

	case QuestionMsg:
		if msg.Err != nil {
			return m.notify(notify.LevelError, msgQuestionFailed)
		}
		m.question = msg.Question
		m.controls.Dashboard = false
		m.controller.SetQuestion(msg.Question)
		return m, nil

	case CopiedMsg:
		if msg.Err != nil {
			return m.notify(notify.LevelError, msg.Err.Error())
		}
		return m.notify(notify.LevelSuccess, msgCopied)

	case actionDoneMsg:
		return m, nil
	}

	return m, nil
}

// notify sends through the shared notifier when one is set, otherwise it
// shows the message in the local banner.
func (m Model) notify(level notify.Level, message string) (tea.Model, tea.Cmd) {
	if m.notifier == nil {
		return m.showBanner(notify.Notification{Level: level, Message: message, At: time.Now()})
	}
	n := m.notifier
	return m, func() tea.Msg {
		switch level {
		case notify.LevelError:
			n.Error(message)
		case notify.LevelWarning:
			n.Warning(message)
		default:
			n.Success(message)
		}
		return nil
	}
}

func (m Model) showBanner(n notify.Notification) (tea.Model, tea.Cmd) {
	m.banner = &n
	m.bannerSeq++
	return m, clearBannerCmd(m.bannerSeq)
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC {
		return m, tea.Sequence(m.teardownCmd(), tea.Quit)
	}
	if m.editingNotes {
		return m.handleNotesKey(msg)
	}

	switch key {
	case KeyQuit, KeyQuitUpper:
		return m, tea.Sequence(m.teardownCmd(), tea.Quit)

	case KeySpace, KeyCtrlR:
		// Analyzing still forwards so the session can explain the wait.
		if !m.controls.StartEnabled && !m.controls.StopEnabled && m.status.Kind != indicator.StatusAnalyzing {
			return m, nil
		}
		return m, m.toggleCmd()

	case KeyQuestion:
		if m.questions == nil {
			return m, nil
		}
		return m, m.questionCmd()

	case KeyNotes:
		m.editingNotes = true
		return m, nil

	case KeyCopy:
		if m.view == nil || m.copier == nil {
			return m.notify(notify.LevelWarning, msgNothingToCopy)
		}
		return m, m.copyCmd(*m.view)
	}

	return m, nil
}

// handleNotesKey edits the notes buffer. Enter or esc commits it.
func (m Model) handleNotesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEnter, KeyEsc:
		m.editingNotes = false
		m.controller.SetNotes(m.notes)
		return m, nil
	case KeyBackspace:
		if runes := []rune(m.notes); len(runes) > 0 {
			m.notes = string(runes[:len(runes)-1])
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyRunes:
		m.notes += string(msg.Runes)
	case tea.KeySpace:
		m.notes += " "
	}
	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderQuestion())
	sections = append(sections, m.renderNotes())

	if m.controls.Overlay {
		sections = append(sections, OverlayStyle.Render("● REC  Answer now. Press space to stop."))
	}
	if m.banner != nil {
		sections = append(sections, bannerStyle(m.banner.Level).Render(m.banner.Message))
	}
	if m.controls.Dashboard && m.view != nil {
		sections = append(sections, dashboard.Render(*m.view, m.fill, m.width))
	}

	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	return HeaderStyle.Render("REHEARSE") + "  " + badgeStyle(m.status.Kind).Render(m.status.Label())
}

func (m Model) renderQuestion() string {
	if m.question == "" {
		return NotesStyle.Render(msgNoQuestion)
	}
	return QuestionStyle.Width(max(20, m.width)).Render("Q: " + m.question)
}

func (m Model) renderNotes() string {
	if m.editingNotes {
		return NotesActiveStyle.Render("Notes: " + m.notes + "▏")
	}
	if m.notes == "" {
		return NotesStyle.Render("Notes: (e to edit)")
	}
	return NotesStyle.Render("Notes: " + m.notes)
}

func (m Model) renderFooter() string {
	if m.editingNotes {
		return FooterStyle.Render("enter/esc save notes · ctrl+c quit")
	}
	return FooterStyle.Render("space record/stop · n question · e notes · c copy · q quit")
}

// Run starts the program on the alternate screen with focus reporting and
// blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, model Model, bridge *Bridge) error {
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithReportFocus())
	bridge.Attach(program.Send)
	_, err := program.Run()
	bridge.Attach(nil)
	return err
}
