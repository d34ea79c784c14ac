package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotion/backend"
)

func fixedDate(interface{}) string { return "November 14, 2023, 10:13 PM" }

func TestRenderNoteList(t *testing.T) {
	out := renderNoteList([]backend.NoteView{
		{Note: backend.Note{ID: "a1", Title: "Groceries", LastModified: 1700000000000}, SyncStatus: backend.SyncStatusSynced},
		{Note: backend.Note{ID: "b2", Title: "", LastModified: 1700000000000}, SyncStatus: backend.SyncStatusFailed},
	}, fixedDate)

	assert.Contains(t, out, "a1")
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "(untitled)")
	assert.Contains(t, out, "November 14, 2023")
	assert.Contains(t, out, "sync failed")
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("\n")))
}

func TestRenderNoteList_Empty(t *testing.T) {
	assert.Contains(t, renderNoteList(nil, fixedDate), "No notes yet")
}

func TestNoteMarkdown(t *testing.T) {
	md := noteMarkdown(backend.Note{Title: "Plan", Body: "- step one"}, "today")
	assert.Equal(t, "# Plan\n\n_today_\n\n- step one\n", md)
}

func TestFindNote(t *testing.T) {
	notes := []backend.NoteView{{Note: backend.Note{ID: "a"}}, {Note: backend.Note{ID: "b", Title: "B"}}}

	note, ok := findNote(notes, "b")
	require.True(t, ok)
	assert.Equal(t, "B", note.Title)

	_, ok = findNote(notes, "missing")
	assert.False(t, ok)
}

func TestTerminalDialogs_AssumeYes(t *testing.T) {
	yes := true
	d := &terminalDialogs{assumeYes: &yes, out: &bytes.Buffer{}}

	ok, err := d.Confirm("Delete note", "Are you sure?")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrintSession(t *testing.T) {
	var buf bytes.Buffer
	printSession(&buf, backend.SessionInfo{Status: backend.SessionSignedOut})
	assert.Equal(t, "Not signed in.\n", buf.String())

	buf.Reset()
	printSession(&buf, backend.SessionInfo{
		Status:  backend.SessionSignedIn,
		Profile: &backend.Profile{Email: "user@example.com", Name: "User"},
	})
	assert.Contains(t, buf.String(), "<user@example.com>")
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"login", "logout", "whoami", "list", "show", "new", "edit", "rm"}, names)

	list, _, err := cmd.Find([]string{"ls"})
	require.NoError(t, err)
	assert.Equal(t, "list", list.Name())
}

func TestPickerLabel(t *testing.T) {
	assert.Equal(t, "Groceries  November 14, 2023, 10:13 PM",
		pickerLabel(backend.NoteView{Note: backend.Note{Title: "Groceries"}}, fixedDate))
	assert.Equal(t, "(untitled)  November 14, 2023, 10:13 PM",
		pickerLabel(backend.NoteView{}, fixedDate))
}

func TestRenderPreview(t *testing.T) {
	out := renderPreview(backend.Note{Title: "Plan", Body: "- step one"}, "today", 10)
	assert.Contains(t, out, "step")
}

// IDが指定されていればファインダーは開かない
func TestResolveNoteID_UsesArgument(t *testing.T) {
	orig := findNoteIndex
	t.Cleanup(func() { findNoteIndex = orig })
	findNoteIndex = func([]backend.NoteView, func(interface{}) string) (int, error) {
		t.Fatal("finder should not be opened")
		return -1, nil
	}

	s := &cliState{}
	id, err := s.resolveNoteID([]string{"note-1"})
	require.NoError(t, err)
	assert.Equal(t, "note-1", id)
}
