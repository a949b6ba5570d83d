package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ishaan812/gitinsight/internal/cache"
)

// Day groups the cached commits made on one UTC calendar day.
type Day struct {
	Date    string
	Commits []cache.Commit
}

// GroupDays buckets commits by UTC day, newest day first. Commits within a
// day are newest first as well.
func GroupDays(commits []cache.Commit) []Day {
	byDay := make(map[string][]cache.Commit)
	for _, c := range commits {
		label := cache.DayLabel(c.Date)
		byDay[label] = append(byDay[label], c)
	}

	days := make([]Day, 0, len(byDay))
	for label, cs := range byDay {
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].Date.After(cs[j].Date) })
		days = append(days, Day{Date: label, Commits: cs})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	return days
}

const (
	paneDays = iota
	paneCommits
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Tab      key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	HalfUp   key.Binding
	HalfDown key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k")),
	Down:     key.NewBinding(key.WithKeys("down", "j")),
	Enter:    key.NewBinding(key.WithKeys("enter")),
	Tab:      key.NewBinding(key.WithKeys("tab", "shift+tab")),
	PageUp:   key.NewBinding(key.WithKeys("pgup")),
	PageDown: key.NewBinding(key.WithKeys("pgdown")),
	HalfUp:   key.NewBinding(key.WithKeys("ctrl+u")),
	HalfDown: key.NewBinding(key.WithKeys("ctrl+d")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// ConsoleModel is the Bubbletea model for browsing the commit cache: days on
// top, that day's commits below, and the rendered commit on the right.
type ConsoleModel struct {
	width  int
	height int

	activePane int

	repoName string
	overall  string
	days     []Day

	dayCursor    int
	dayScroll    int
	selectedDay  int
	commitCursor int
	commitScroll int

	viewport      viewport.Model
	contentHeader string
	// selectedCommit is -1 while the overview is shown.
	selectedCommit int

	quitting bool
}

// NewConsoleModel creates a console over days. overall is the project
// summary shown before any commit is opened.
func NewConsoleModel(repoName, overall string, days []Day) ConsoleModel {
	m := ConsoleModel{
		repoName:       repoName,
		overall:        overall,
		days:           days,
		activePane:     paneDays,
		selectedDay:    -1,
		selectedCommit: -1,
		viewport:       viewport.New(0, 0),
	}
	if len(days) > 0 {
		m.selectedDay = 0
	}
	return m
}

func (m ConsoleModel) Init() tea.Cmd {
	return nil
}

func (m ConsoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewportSize()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Tab):
			if m.activePane == paneDays {
				m.activePane = paneCommits
			} else {
				m.activePane = paneDays
			}

		case key.Matches(msg, keys.Up):
			if m.activePane == paneDays {
				if m.dayCursor > 0 {
					m.dayCursor--
					m.dayScroll = keepVisible(m.dayCursor, m.dayScroll, m.maxVisible())
				}
			} else if m.commitCursor > 0 {
				m.commitCursor--
				m.commitScroll = keepVisible(m.commitCursor, m.commitScroll, m.maxVisible())
			}

		case key.Matches(msg, keys.Down):
			if m.activePane == paneDays {
				if m.dayCursor < len(m.days)-1 {
					m.dayCursor++
					m.dayScroll = keepVisible(m.dayCursor, m.dayScroll, m.maxVisible())
				}
			} else if m.commitCursor < len(m.currentCommits())-1 {
				m.commitCursor++
				m.commitScroll = keepVisible(m.commitCursor, m.commitScroll, m.maxVisible())
			}

		case key.Matches(msg, keys.Enter):
			if m.activePane == paneDays {
				if m.dayCursor < len(m.days) {
					m.selectedDay = m.dayCursor
					m.commitCursor = 0
					m.commitScroll = 0
					m.selectedCommit = -1
					m.activePane = paneCommits
					m.loadContent()
				}
			} else if m.commitCursor < len(m.currentCommits()) {
				m.selectedCommit = m.commitCursor
				m.loadContent()
			}

		case key.Matches(msg, keys.PageUp, keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		case key.Matches(msg, keys.HalfUp):
			m.viewport.HalfViewUp()

		case key.Matches(msg, keys.HalfDown):
			m.viewport.HalfViewDown()
		}
	}
	return m, nil
}

func keepVisible(cursor, scroll, visible int) int {
	if cursor < scroll {
		return cursor
	}
	if cursor >= scroll+visible {
		return cursor - visible + 1
	}
	return scroll
}

func (m *ConsoleModel) currentCommits() []cache.Commit {
	if m.selectedDay >= 0 && m.selectedDay < len(m.days) {
		return m.days[m.selectedDay].Commits
	}
	return nil
}

func (m *ConsoleModel) leftPanelWidth() int {
	w := m.width * 35 / 100
	if w < 30 {
		w = 30
	}
	if w > 50 {
		w = 50
	}
	return w
}

func (m *ConsoleModel) maxVisible() int {
	h := (m.height - 10) / 2
	if h < 3 {
		h = 3
	}
	return h
}

func (m *ConsoleModel) updateViewportSize() {
	rightW := m.width - m.leftPanelWidth() - 5
	if rightW < 20 {
		rightW = 20
	}
	vpHeight := m.height - 6
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport.Width = rightW
	m.viewport.Height = vpHeight
	m.loadContent()
}

// loadContent renders the selected commit, or the overview when none is
// open, into the viewport.
func (m *ConsoleModel) loadContent() {
	var md string
	commits := m.currentCommits()
	if m.selectedCommit >= 0 && m.selectedCommit < len(commits) {
		c := commits[m.selectedCommit]
		md = CommitMarkdown(c)
		m.contentHeader = fmt.Sprintf("%s  -  %s", shortHash(c.Hash), c.Author)
	} else {
		md = OverviewMarkdown(m.overall, m.days)
		m.contentHeader = "Overview"
	}
	m.viewport.SetContent(renderMarkdown(md, m.viewport.Width-2))
	m.viewport.GotoTop()
}

func renderMarkdown(md string, width int) string {
	if width < 20 {
		width = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// CommitMarkdown renders one cached commit for the content pane.
func CommitMarkdown(c cache.Commit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", firstLine(c.Message))
	fmt.Fprintf(&b, "**%s** by %s on %s\n\n", shortHash(c.Hash), c.Author, c.Date.UTC().Format("Mon, Jan 2 2006 15:04 UTC"))
	if c.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(c.Summary)
		b.WriteString("\n\n")
	} else {
		b.WriteString("_Not summarized yet. Run `gitinsight analyze`._\n\n")
	}
	if rest := strings.TrimSpace(strings.TrimPrefix(c.Message, firstLine(c.Message))); rest != "" {
		b.WriteString("## Message\n\n")
		b.WriteString(rest)
		b.WriteString("\n\n")
	}
	if c.Diff != "" {
		b.WriteString("## Diff\n\n```diff\n")
		b.WriteString(strings.TrimSuffix(c.Diff, "\n"))
		b.WriteString("\n```\n")
	}
	return b.String()
}

// OverviewMarkdown renders the project summary and day totals.
func OverviewMarkdown(overall string, days []Day) string {
	var b strings.Builder
	b.WriteString("# Project overview\n\n")
	if overall == "" {
		b.WriteString("_No overall summary available._\n\n")
	} else {
		b.WriteString(overall)
		b.WriteString("\n\n")
	}
	total := 0
	for _, d := range days {
		total += len(d.Commits)
	}
	fmt.Fprintf(&b, "%d commits across %d days.\n", total, len(days))
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

func (m ConsoleModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	left := m.renderLeftPanel()
	right := m.renderRightPanel()

	var b strings.Builder
	b.WriteString(m.renderTitleBar())
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())
	return b.String()
}

func fillBar(left, right string, width int) string {
	n := width - lipgloss.Width(left) - lipgloss.Width(right)
	if n < 0 {
		n = 0
	}
	return left + barStyle.Render(strings.Repeat(" ", n)) + right
}

func (m ConsoleModel) renderTitleBar() string {
	return fillBar(titleStyle.Render("  gitinsight console"), repoStyle.Render(m.repoName+"  "), m.width)
}

func (m ConsoleModel) renderLeftPanel() string {
	leftW := m.leftPanelWidth()
	inner := leftW - 2

	labels := make([]string, len(m.days))
	for i, d := range m.days {
		labels[i] = d.Date + statStyle.Render(fmt.Sprintf(" %d", len(d.Commits)))
	}
	daysSection := m.renderList("Days", labels, m.activePane == paneDays, m.dayCursor, m.dayScroll, m.selectedDay, inner)

	commits := m.currentCommits()
	labels = make([]string, len(commits))
	for i, c := range commits {
		subject := firstLine(c.Message)
		if room := inner - 12; room > 3 && len([]rune(subject)) > room {
			subject = string([]rune(subject)[:room-3]) + "..."
		}
		labels[i] = shortHash(c.Hash) + " " + subject
	}
	commitsSection := m.renderList("Commits", labels, m.activePane == paneCommits, m.commitCursor, m.commitScroll, m.selectedCommit, inner)

	return activeBorderStyle.
		Width(leftW).
		Height(m.height - 3).
		Render(daysSection + "\n" + commitsSection)
}

func (m ConsoleModel) renderList(title string, labels []string, active bool, cursor, scroll, selected, width int) string {
	var b strings.Builder
	if active {
		b.WriteString(sectionStyle.Render(title))
	} else {
		b.WriteString(dimStyle.Bold(true).Render(" " + title))
	}
	b.WriteString("\n")
	if width > 2 {
		b.WriteString(dimStyle.Render(" " + strings.Repeat("─", width-2)))
	}
	b.WriteString("\n")

	if len(labels) == 0 {
		b.WriteString(dimStyle.Render(" Nothing cached. Run 'gitinsight analyze'"))
		b.WriteString("\n")
		return b.String()
	}

	end := scroll + m.maxVisible()
	if end > len(labels) {
		end = len(labels)
	}
	if scroll > 0 {
		b.WriteString(dimStyle.Render(" ↑ more"))
		b.WriteString("\n")
	}
	for i := scroll; i < end; i++ {
		switch {
		case active && i == cursor:
			b.WriteString(cursorStyle.Render("> ") + labels[i])
		case i == selected:
			b.WriteString(itemStyle.Bold(true).Render("  ") + labels[i])
		default:
			b.WriteString(itemStyle.Render("  ") + labels[i])
		}
		b.WriteString("\n")
	}
	if end < len(labels) {
		b.WriteString(dimStyle.Render(" ↓ more"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m ConsoleModel) renderRightPanel() string {
	rightW := m.width - m.leftPanelWidth() - 3
	if rightW < 20 {
		rightW = 20
	}

	content := headerStyle.Render(m.contentHeader) + "\n" +
		dimStyle.Render(" "+strings.Repeat("─", rightW-4)) + "\n" +
		m.viewport.View()
	if m.viewport.TotalLineCount() > m.viewport.Height {
		pct := int(m.viewport.ScrollPercent() * 100)
		content += "\n" + scrollStyle.Width(rightW-4).Render(fmt.Sprintf("%d%%", pct))
	}

	return inactiveBorderStyle.
		Width(rightW).
		Height(m.height - 3).
		Render(content)
}

func (m ConsoleModel) renderHelpBar() string {
	help := "  ↑/↓ navigate  enter open day  tab commits  pgup/pgdn scroll  q quit"
	if m.activePane == paneCommits {
		help = "  ↑/↓ navigate  enter open commit  tab days  pgup/pgdn scroll  q quit"
	}
	return fillBar(helpStyle.Render(help), "", m.width)
}

// RunConsole launches the full-screen console.
func RunConsole(repoName, overall string, commits []cache.Commit) error {
	model := NewConsoleModel(repoName, overall, GroupDays(commits))
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
