package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"lotion/backend"
)

const syncWaitTimeout = 30 * time.Second

var errSyncTimeout = errors.New("timed out waiting for the note store")

func newCmdList(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your notes, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := s.requireSession(); err != nil {
				return err
			}
			fmt.Fprint(s.out, renderNoteList(s.app.ListNotes(), s.app.FormatDate))
			return nil
		},
	}
}

func newCmdShow(s *cliState) *cobra.Command {
	var copyBody bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Render a note as markdown",
		Long: heredoc.Doc(`
			Render a note as markdown. Without an id, pick the note interactively.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := s.requireSession(); err != nil {
				return err
			}
			id, err := s.resolveNoteID(args)
			if err != nil {
				return err
			}
			note, ok := findNote(s.app.ListNotes(), id)
			if !ok {
				return fmt.Errorf("%w: %s", backend.ErrNoteNotFound, id)
			}

			if copyBody {
				if err := writeClipboard(note.Body); err != nil {
					return fmt.Errorf("failed to copy note body: %w", err)
				}
				fmt.Fprintf(s.out, "Copied %s to the clipboard\n", note.ID)
				return nil
			}

			rendered, err := renderNote(note, s.app.FormatDate(note.LastModified))
			if err != nil {
				return err
			}
			fmt.Fprint(s.out, rendered)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&copyBody, "copy", "c", false, "copy the note body to the clipboard instead of printing it")
	return cmd
}

func newCmdNew(s *cliState) *cobra.Command {
	var title, body string

	cmd := &cobra.Command{
		Use:   "new [--title title] [--body body]",
		Short: "Create a note",
		Example: heredoc.Doc(`
			lotion new --title "Groceries" --body "- milk"
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := s.requireSession(); err != nil {
				return err
			}
			note, err := s.app.AddNote()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("title") {
				note.Title = title
			}
			note.Body = body
			return s.save(note)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "note title")
	cmd.Flags().StringVarP(&body, "body", "b", "", "note body (markdown)")
	return cmd
}

func newCmdEdit(s *cliState) *cobra.Command {
	var title, body string

	cmd := &cobra.Command{
		Use:   "edit [id] [--title title] [--body body]",
		Short: "Change the title or body of a note",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("title") && !cmd.Flags().Changed("body") {
				return errors.New("nothing to change; pass --title or --body")
			}
			if _, err := s.requireSession(); err != nil {
				return err
			}

			id, err := s.resolveNoteID(args)
			if err != nil {
				return err
			}
			s.app.SelectNote(id)
			active := s.app.GetActiveNote()
			if active == nil {
				return fmt.Errorf("%w: %s", backend.ErrNoteNotFound, id)
			}
			note := active.Note
			if cmd.Flags().Changed("title") {
				note.Title = title
			}
			if cmd.Flags().Changed("body") {
				note.Body = body
			}
			return s.save(note)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&body, "body", "b", "", "new body (markdown)")
	return cmd
}

func newCmdRemove(s *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a note",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := s.requireSession(); err != nil {
				return err
			}
			id, err := s.resolveNoteID(args)
			if err != nil {
				return err
			}
			if _, ok := findNote(s.app.ListNotes(), id); !ok {
				return fmt.Errorf("%w: %s", backend.ErrNoteNotFound, id)
			}

			deleted, err := s.app.DeleteNote(id)
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintln(s.out, "Canceled.")
				return nil
			}
			fmt.Fprintf(s.out, "Deleted %s\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&s.assumeYes, "yes", "y", false, "delete without asking for confirmation")
	return cmd
}

// save はノートを保存し、リモートの結果を待つ
func (s *cliState) save(note backend.Note) error {
	saved, err := s.app.UpdateNote(note)
	if err != nil {
		return err
	}
	if !s.app.WaitForSync(int(syncWaitTimeout / time.Millisecond)) {
		return errSyncTimeout
	}

	active := s.app.GetActiveNote()
	if active != nil && active.SyncStatus == backend.SyncStatusFailed {
		return fmt.Errorf("failed to save note %s: %s", saved.ID, active.SyncError)
	}
	fmt.Fprintf(s.out, "Saved %s\n", saved.ID)
	return nil
}

func findNote(notes []backend.NoteView, id string) (backend.Note, bool) {
	for _, n := range notes {
		if n.ID == id {
			return n.Note, true
		}
	}
	return backend.Note{}, false
}
