package main

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/muesli/termenv"

	"lotion/backend"
)

var errNoNoteSelected = errors.New("no note selected")

// テストで差し替える
var (
	findNoteIndex = func(notes []backend.NoteView, formatDate func(interface{}) string) (int, error) {
		return fuzzyfinder.Find(notes, func(i int) string {
			return pickerLabel(notes[i], formatDate)
		},
			fuzzyfinder.WithHeader("Select a note"),
			fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
				if i == -1 {
					return ""
				}
				return renderPreview(notes[i].Note, formatDate(notes[i].LastModified), w)
			}),
		)
	}
	writeClipboard = clipboard.WriteAll
)

func pickerLabel(n backend.NoteView, formatDate func(interface{}) string) string {
	title := n.Title
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%s  %s", title, formatDate(n.LastModified))
}

func renderPreview(note backend.Note, modified string, width int) string {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width-4),
		glamour.WithColorProfile(termenv.ANSI256),
	)
	if err != nil {
		return "Error rendering markdown"
	}
	out, err := r.Render(noteMarkdown(note, modified))
	if err != nil {
		return "Error rendering markdown"
	}
	return out
}

// resolveNoteID は引数のIDを返す。省略時はファジーファインダーで選択させる
func (s *cliState) resolveNoteID(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	notes := s.app.ListNotes()
	if len(notes) == 0 {
		return "", errNoNoteSelected
	}
	idx, err := findNoteIndex(notes, s.app.FormatDate)
	if errors.Is(err, fuzzyfinder.ErrAbort) {
		return "", errNoNoteSelected
	}
	if err != nil {
		return "", err
	}
	return notes[idx].ID, nil
}
