package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"lotion/backend"
)

var (
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("109"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// renderNoteList はノート一覧を1行1件で整形する
func renderNoteList(notes []backend.NoteView, formatDate func(interface{}) string) string {
	if len(notes) == 0 {
		return mutedStyle.Render("No notes yet. Create one with `lotion new`.") + "\n"
	}

	var b strings.Builder
	for _, n := range notes {
		title := n.Title
		if strings.TrimSpace(title) == "" {
			title = "(untitled)"
		}
		line := fmt.Sprintf("%s  %s  %s",
			idStyle.Render(n.ID),
			titleStyle.Render(title),
			dateStyle.Render(formatDate(n.LastModified)),
		)
		switch n.SyncStatus {
		case backend.SyncStatusFailed:
			line += "  " + failedStyle.Render("sync failed")
		case backend.SyncStatusLocal, backend.SyncStatusPending:
			line += "  " + mutedStyle.Render(string(n.SyncStatus))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// renderNote はノートをmarkdownとして端末向けに描画する
func renderNote(note backend.Note, modified string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(noteMarkdown(note, modified))
}

func noteMarkdown(note backend.Note, modified string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", note.Title)
	if modified != "" {
		fmt.Fprintf(&b, "_%s_\n\n", modified)
	}
	b.WriteString(note.Body)
	b.WriteString("\n")
	return b.String()
}

func printSession(w io.Writer, info backend.SessionInfo) {
	switch info.Status {
	case backend.SessionSignedIn:
		name := info.Profile.Name
		if name == "" {
			name = info.Profile.Email
		}
		fmt.Fprintf(w, "Signed in as %s <%s>\n", titleStyle.Render(name), info.Profile.Email)
	case backend.SessionDegraded:
		fmt.Fprintf(w, "Signed in, but the profile could not be loaded: %s\n", info.ProfileError)
	default:
		fmt.Fprintln(w, "Not signed in.")
	}
}
