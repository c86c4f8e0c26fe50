package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mermaidlive/internal/diagram"
	"mermaidlive/internal/pipeline"
	"mermaidlive/internal/view"
)

// Editor is the controller side of the live model.
type Editor interface {
	view.Source
	Submit(in diagram.Input) diagram.Generation
}

// LiveOptions configures NewLiveModel.
type LiveOptions struct {
	Title   string
	Initial string
	Theme   diagram.Theme
	// OutPath, when set, receives the SVG of every successful render.
	OutPath string
	// Changes signals that the controller published a new snapshot.
	Changes <-chan struct{}
}

// Notifier returns an OnChange callback and the channel it signals. The
// callback never blocks; bursts collapse into one pending signal.
func Notifier() (func(pipeline.Snapshot), <-chan struct{}) {
	ch := make(chan struct{}, 1)
	return func(pipeline.Snapshot) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}, ch
}

type changeMsg struct{}

type noticeMsg struct {
	text string
	err  bool
}

type liveModel struct {
	title   string
	editor  Editor
	surface *view.Surface
	changes <-chan struct{}
	outPath string

	input   textarea.Model
	spinner spinner.Model
	preview viewport.Model

	theme   diagram.Theme
	state   view.State
	notice  noticeMsg
	written diagram.Generation
	width   int
	height  int
}

// NewLiveModel returns the interactive editor model. The initial text is
// submitted immediately.
func NewLiveModel(ed Editor, surface *view.Surface, opts LiveOptions) tea.Model {
	ta := textarea.New()
	ta.Placeholder = "flowchart TD\n  A --> B"
	ta.CharLimit = 0
	ta.ShowLineNumbers = true
	ta.SetValue(opts.Initial)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	m := &liveModel{
		title:   opts.Title,
		editor:  ed,
		surface: surface,
		changes: opts.Changes,
		outPath: opts.OutPath,
		input:   ta,
		spinner: sp,
		preview: viewport.New(40, 20),
		theme:   opts.Theme,
		width:   80,
		height:  24,
	}
	m.layout()
	m.submit()
	m.state = surface.View()
	m.refreshPreview()
	return m
}

func (m *liveModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.listen())
}

func (m *liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refreshPreview()
		return m, nil
	case changeMsg:
		cmd := m.applySnapshot()
		return m, tea.Batch(cmd, m.listen())
	case noticeMsg:
		m.notice = msg
		m.refreshPreview()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Status == view.StatusLoading {
			m.refreshPreview()
		}
		return m, cmd
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.submit()
	}
	return m, cmd
}

func (m *liveModel) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return tea.Quit, true
	case "ctrl+t":
		m.theme = m.theme.Toggle()
		m.submit()
		return nil, true
	case "ctrl+y":
		return m.copy("original", m.surface.CopyOriginal), true
	case "ctrl+k":
		return m.copy("repaired text", m.surface.CopyRepaired), true
	case "ctrl+r":
		if m.state.Can(view.ActionRetry) {
			m.surface.Retry()
		}
		return nil, true
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return cmd, true
	}
	return nil, false
}

func (m *liveModel) submit() {
	m.editor.Submit(diagram.Input{Text: m.input.Value(), Theme: m.theme})
}

func (m *liveModel) copy(what string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			return noticeMsg{text: err.Error(), err: true}
		}
		return noticeMsg{text: "copied " + what}
	}
}

func (m *liveModel) listen() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-m.changes; !ok {
			return nil
		}
		return changeMsg{}
	}
}

func (m *liveModel) applySnapshot() tea.Cmd {
	snap := m.editor.Snapshot()
	m.state = m.surface.Publish(snap)
	m.refreshPreview()
	if m.outPath == "" || m.state.Status != view.StatusSuccess || m.state.Generation == m.written {
		return nil
	}
	m.written = m.state.Generation
	path, svg := m.outPath, m.state.Artifact.SVG
	return func() tea.Msg {
		if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
			return noticeMsg{text: fmt.Sprintf("write %s: %v", path, err), err: true}
		}
		return noticeMsg{text: "wrote " + path}
	}
}

func (m *liveModel) layout() {
	editorWidth := max(m.width/2, 20)
	bodyHeight := max(m.height-4, 5)
	m.input.SetWidth(editorWidth)
	m.input.SetHeight(bodyHeight)
	m.preview.Width = max(m.width-editorWidth-3, 20)
	m.preview.Height = bodyHeight
}

func (m *liveModel) refreshPreview() {
	spin := ""
	if m.state.Status == view.StatusLoading {
		spin = m.spinner.View()
	}
	m.preview.SetContent(previewText(m.state, spin, m.outPath, m.preview.Width))
}

func (m *liveModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s  [%s]", m.title, m.theme)

	border := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.input.View(), " ", border.Render(m.preview.View()))

	footer := actionHints(m.state)
	if m.notice.text != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
		if m.notice.err {
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
		}
		footer += "  " + style.Render(m.notice.text)
	}
	return titleStyle.Render(header) + "\n" + body + "\n" + footer
}

// previewText renders the preview pane for st.
func previewText(st view.State, spin, outPath string, width int) string {
	var b strings.Builder
	headline := st.Headline
	if spin != "" {
		headline = spin + " " + headline
	}
	b.WriteString(statusStyle(st.Status).Render(headline))
	b.WriteString("\n\n")

	switch st.Status {
	case view.StatusSuccess:
		fmt.Fprintf(&b, "svg: %d bytes\n", len(st.Artifact.SVG))
		if outPath != "" {
			b.WriteString("output: " + truncate(outPath, width-8) + "\n")
		}
		if st.AutoCorrected {
			b.WriteString("\nfixes: " + strings.Join(st.RepairRules, ", ") + "\n\n")
			b.WriteString(st.EffectiveText)
			b.WriteString("\n")
		}
	case view.StatusError:
		for _, line := range strings.Split(st.Message, "\n") {
			b.WriteString(truncate(line, width))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// actionHints lists the key bindings available in st.
func actionHints(st view.State) string {
	hints := []string{"ctrl+t theme"}
	if st.Can(view.ActionCopyOriginal) {
		hints = append(hints, "ctrl+y copy")
	}
	if st.Can(view.ActionCopyRepaired) {
		hints = append(hints, "ctrl+k copy fix")
	}
	if st.Can(view.ActionRetry) {
		hints = append(hints, "ctrl+r retry")
	}
	hints = append(hints, "esc quit")
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(strings.Join(hints, " · "))
}

func statusStyle(s view.Status) lipgloss.Style {
	switch s {
	case view.StatusSuccess:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	case view.StatusError:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	case view.StatusLoading:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

// DetectTheme reports the terminal background as a theme.
func DetectTheme() diagram.Theme {
	if lipgloss.HasDarkBackground() {
		return diagram.ThemeDark
	}
	return diagram.ThemeLight
}

// LiveText returns the editor text of a model built by NewLiveModel.
func LiveText(m tea.Model) (string, bool) {
	lm, ok := m.(*liveModel)
	if !ok {
		return "", false
	}
	return lm.input.Value(), true
}
