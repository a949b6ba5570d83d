package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ishaan812/gitinsight/internal/cache"
)

func testCommits() []cache.Commit {
	return []cache.Commit{
		{Hash: "aaaaaaaa1", Message: "init", Author: "Ada", Date: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)},
		{Hash: "bbbbbbbb2", Message: "add parser\n\nLonger body.", Author: "Bob", Date: time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC), Summary: "Adds a parser."},
		{Hash: "cccccccc3", Message: "fix", Author: "Ada", Date: time.Date(2025, 1, 3, 23, 30, 0, 0, time.FixedZone("X", -3*3600)), Diff: "-a\n+b\n"},
	}
}

func TestGroupDays(t *testing.T) {
	days := GroupDays(testCommits())
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}
	// 23:30 at UTC-3 is the next UTC day.
	if days[0].Date != "2025-01-04" || days[1].Date != "2025-01-01" {
		t.Errorf("days = %s, %s", days[0].Date, days[1].Date)
	}
	if got := days[1].Commits[0].Hash; got != "bbbbbbbb2" {
		t.Errorf("newest commit of day = %s", got)
	}
}

func press(m ConsoleModel, keys ...tea.KeyMsg) ConsoleModel {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(ConsoleModel)
	}
	return m
}

func TestConsoleNavigation(t *testing.T) {
	m := NewConsoleModel("repo", "A parser project.", GroupDays(testCommits()))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(ConsoleModel)
	if m.contentHeader != "Overview" {
		t.Errorf("header = %q", m.contentHeader)
	}

	down := tea.KeyMsg{Type: tea.KeyDown}
	enter := tea.KeyMsg{Type: tea.KeyEnter}
	m = press(m, down, enter)
	if m.selectedDay != 1 || m.activePane != paneCommits {
		t.Fatalf("selectedDay=%d pane=%d", m.selectedDay, m.activePane)
	}

	m = press(m, enter)
	if m.selectedCommit != 0 {
		t.Fatalf("selectedCommit = %d", m.selectedCommit)
	}
	if !strings.HasPrefix(m.contentHeader, "bbbbbbb") {
		t.Errorf("header = %q", m.contentHeader)
	}

	// Cursor does not move past the last commit.
	m = press(m, down, down, down)
	if m.commitCursor != 1 {
		t.Errorf("commitCursor = %d", m.commitCursor)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !m.quitting || m.View() != "" {
		t.Error("expected quit")
	}
}

func TestCommitMarkdown(t *testing.T) {
	c := testCommits()
	md := CommitMarkdown(c[1])
	for _, want := range []string{"# add parser", "## Summary", "Adds a parser.", "Longer body."} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if md := CommitMarkdown(c[0]); !strings.Contains(md, "Not summarized yet") {
		t.Errorf("unsummarized commit markdown = %s", md)
	}
	if md := CommitMarkdown(c[2]); !strings.Contains(md, "```diff") {
		t.Errorf("diff block missing: %s", md)
	}
}

func TestOverviewMarkdown(t *testing.T) {
	md := OverviewMarkdown("", GroupDays(testCommits()))
	if !strings.Contains(md, "No overall summary available") || !strings.Contains(md, "3 commits across 2 days") {
		t.Errorf("overview = %s", md)
	}
}
