package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	defaultNoteTitle  = "Untitled Note"
	deleteWaitTimeout = 10 * time.Second
)

// NoteService はノート関連の操作を提供するインターフェースです
type NoteService interface {
	ListNotes() []NoteView                               // 全てのノートを表示順で返す
	LoadAll(ctx context.Context) error                   // リモートから所有者のノートを読み込む
	AddLocal() Note                                      // ローカルのみに新規ノートを作成する
	Update(ctx context.Context, note Note) (Note, error) // 選択中のノートを更新し、保存を送信する
	Delete(ctx context.Context, id string) (bool, error) // 確認の上でノートを削除する
	Select(id string)                                    // ノートを選択する
	ActiveNote() *NoteView                               // 選択中のノートを返す
	Retry(ctx context.Context, id string) error          // 失敗した保存を再送する
	RetryFailed(ctx context.Context) int                 // 失敗した保存を全て再送する
	Rollback(id string) error                            // 失敗した変更を取り消す
	Reset()                                              // 全ての状態を破棄する
	WaitForSync(timeout time.Duration) bool              // 送信中のリクエストの完了を待つ
}

// principalSource はノートの所有者情報を提供する
type principalSource interface {
	Principal() (Principal, error)
	Generation() uint64
}

// noteService はNoteServiceの実装です
// ノート一覧はこのサービスだけが変更し、リモートとは各操作の後に突き合わせる
type noteService struct {
	ctx        context.Context
	mu         sync.Mutex
	notes      []Note // 新しいものが先頭
	selection  activeSelection
	session    principalSource
	remote     RemoteStore
	syncState  *SyncState
	dialogs    DialogService
	logger     AppLogger
	loadPolicy string
	saves      *saveQueue
	deleting   map[string]bool // リモートの削除を待っているノート
	pending    atomic.Int64    // 送信中の読み込み・削除の数

	now   func() time.Time
	newID func() string
}

// NewNoteService は新しいnoteServiceインスタンスを作成します
func NewNoteService(
	ctx context.Context,
	session principalSource,
	remote RemoteStore,
	dialogs DialogService,
	logger AppLogger,
	loadPolicy string,
) *noteService {
	if loadPolicy == "" {
		loadPolicy = LoadPolicyReplace
	}
	s := &noteService{
		ctx:        ctx,
		notes:      []Note{},
		session:    session,
		remote:     remote,
		syncState:  NewSyncState(),
		dialogs:    dialogs,
		logger:     logger,
		loadPolicy: loadPolicy,
		deleting:   make(map[string]bool),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	s.saves = newSaveQueue(remote, func(job saveJob, err error) {
		s.reconcile(job.note, job.revision, err)
	})
	return s
}

// ListNotes は全てのノートを表示順で返します
func (s *noteService) ListNotes() []NoteView {
	s.mu.Lock()
	notes := make([]Note, len(s.notes))
	copy(notes, s.notes)
	s.mu.Unlock()

	views := make([]NoteView, 0, len(notes))
	for _, note := range notes {
		views = append(views, s.view(note))
	}
	return views
}

// LoadAll は所有者の全てのノートを取得し、ローカルの一覧を置き換えます
func (s *noteService) LoadAll(ctx context.Context) error {
	owner, err := s.session.Principal()
	if err != nil {
		return err
	}
	generation := s.session.Generation()

	s.pending.Add(1)
	notes, err := s.remote.ListNotes(ctx, owner)
	s.pending.Add(-1)
	if err != nil {
		return s.logger.Error(err, "Failed to load notes for %s", owner.Email)
	}

	s.mu.Lock()
	// 取得中にログアウト・再ログインした場合は結果を捨てる
	if s.session.Generation() != generation {
		s.mu.Unlock()
		s.logger.Console("Discarding notes loaded for a previous session")
		return nil
	}

	remoteIDs := make(map[string]bool, len(notes))
	for _, note := range notes {
		remoteIDs[note.ID] = true
	}

	var kept []Note
	keep := make(map[string]bool)
	if s.loadPolicy == LoadPolicyKeepLocal {
		for _, note := range s.notes {
			if !remoteIDs[note.ID] && s.syncState.IsUnsaved(note.ID) {
				kept = append(kept, note)
				keep[note.ID] = true
			}
		}
	}

	next := make([]Note, 0, len(kept)+len(notes))
	next = append(next, kept...)
	next = append(next, notes...)
	s.notes = next
	s.syncState.ReplaceAll(notes, keep)
	s.mu.Unlock()

	s.logger.Info("Loaded %d notes", len(notes))
	s.logger.NotifyNotesChanged(s.ctx)
	return nil
}

// AddLocal は新規ノートを一覧の先頭に追加して選択します
// リモートへの送信は行わず、Updateで保存されるまでローカルにのみ存在する
func (s *noteService) AddLocal() Note {
	note := Note{
		ID:           s.newID(),
		Title:        defaultNoteTitle,
		Body:         "",
		LastModified: s.now().UnixMilli(),
	}

	s.mu.Lock()
	s.notes = append([]Note{note}, s.notes...)
	s.selection.Select(note.ID)
	s.syncState.MarkLocal(note.ID)
	s.mu.Unlock()

	s.logger.NotifyNotesChanged(s.ctx)
	return note
}

// Update は選択中のノートをローカルで即座に置き換え、保存リクエストを非同期で送信します
// リモートの結果はローカルの内容には反映せず、同期状態のみを更新する
func (s *noteService) Update(ctx context.Context, note Note) (Note, error) {
	s.mu.Lock()
	if !s.selection.Is(note.ID) {
		s.mu.Unlock()
		return Note{}, ErrNotActiveNote
	}
	idx := s.indexLocked(note.ID)
	if idx < 0 || s.deleting[note.ID] {
		s.mu.Unlock()
		return Note{}, ErrNoteNotFound
	}
	note.LastModified = s.now().UnixMilli()
	s.notes[idx] = note
	// ローカルの書き込み順とrevision・送信順を揃えるため、ロック中にキューへ入れる
	status, err := s.queueSaveLocked(ctx, note)
	s.mu.Unlock()

	s.logger.NotifyNotesChanged(s.ctx)
	s.notifySave(note.ID, status, err)
	if err != nil {
		return note, err
	}
	return note, nil
}

// Delete は確認後にリモートの削除を待ってからローカルから取り除きます
// リモートの削除に失敗してもローカルの削除は行い、エラーを返す
func (s *noteService) Delete(ctx context.Context, id string) (bool, error) {
	confirmed, err := s.dialogs.Confirm("Delete note", "Are you sure?")
	if err != nil {
		return false, s.logger.Error(err, "Failed to show confirmation dialog")
	}
	if !confirmed {
		return false, nil
	}

	// 削除が終わるまで更新・再送を受け付けない
	s.mu.Lock()
	s.deleting[id] = true
	s.mu.Unlock()

	// 実行待ちの保存を破棄し、送信中の保存が削除を追い越さないようにする
	s.saves.Drop(id)
	if !s.saves.WaitNote(id, deleteWaitTimeout) {
		s.logger.Console("Deleting note %s while a save is still in flight", id)
	}

	var remoteErr error
	owner, err := s.session.Principal()
	if err != nil {
		remoteErr = err
	} else {
		s.pending.Add(1)
		remoteErr = s.remote.DeleteNote(ctx, owner, id)
		s.pending.Add(-1)
	}

	s.mu.Lock()
	if idx := s.indexLocked(id); idx >= 0 {
		s.notes = append(s.notes[:idx:idx], s.notes[idx+1:]...)
	}
	if s.selection.Is(id) {
		s.selection.Clear()
	}
	s.syncState.Forget(id)
	s.saves.Drop(id)
	delete(s.deleting, id)
	s.mu.Unlock()

	s.logger.NotifyNotesChanged(s.ctx)

	if remoteErr != nil {
		return true, s.logger.ErrorWithNotify(remoteErr, "Failed to delete note %s", id)
	}
	return true, nil
}

// Select はノートを選択します（存在確認は行わない）
func (s *noteService) Select(id string) {
	s.mu.Lock()
	s.selection.Select(id)
	s.mu.Unlock()
}

// ActiveNote は選択中のノートを返します。選択なし・見つからない場合はnil
func (s *noteService) ActiveNote() *NoteView {
	s.mu.Lock()
	note, ok := s.selection.Resolve(s.notes)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	view := s.view(note)
	return &view
}

// Retry は保存に失敗したノートの現在の内容を再送します
func (s *noteService) Retry(ctx context.Context, id string) error {
	s.mu.Lock()
	if status, _ := s.syncState.Status(id); status != SyncStatusFailed {
		s.mu.Unlock()
		return ErrNoteNotFailed
	}
	idx := s.indexLocked(id)
	if idx < 0 || s.deleting[id] {
		s.mu.Unlock()
		return ErrNoteNotFound
	}
	note := s.notes[idx]
	status, err := s.queueSaveLocked(ctx, note)
	s.mu.Unlock()

	s.notifySave(id, status, err)
	return err
}

// RetryFailed は保存に失敗した全てのノートを再送し、再送した件数を返します
func (s *noteService) RetryFailed(ctx context.Context) int {
	retried := 0
	for _, id := range s.syncState.GetFailedNoteIDs() {
		if err := s.Retry(ctx, id); err != nil {
			if errors.Is(err, ErrNoteNotFailed) || errors.Is(err, ErrNoteNotFound) {
				continue
			}
			// 認証がない場合は残りも失敗するので打ち切る
			break
		}
		retried++
	}
	return retried
}

// HasUnsyncedChanges はリモートで確認されていない変更があるかどうかを返す
func (s *noteService) HasUnsyncedChanges() bool {
	return s.syncState.IsDirty()
}

// Rollback は保存に失敗したノートを最後に同期された内容に戻します
// 一度も同期されていないノートは一覧から取り除く
func (s *noteService) Rollback(id string) error {
	if status, _ := s.syncState.Status(id); status != SyncStatusFailed {
		return ErrNoteNotFailed
	}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNoteNotFound
	}
	if synced, ok := s.syncState.LastSynced(id); ok {
		s.notes[idx] = synced
		s.syncState.Restore(id, synced)
	} else {
		s.notes = append(s.notes[:idx:idx], s.notes[idx+1:]...)
		s.syncState.Forget(id)
		if s.selection.Is(id) {
			s.selection.Clear()
		}
	}
	s.mu.Unlock()

	s.logger.Info("Rolled back note %s", id)
	s.logger.NotifyNotesChanged(s.ctx)
	return nil
}

// Reset はログアウト時にノート一覧・選択・同期状態を破棄します
func (s *noteService) Reset() {
	s.saves.DropAll()

	s.mu.Lock()
	s.notes = []Note{}
	s.selection.Clear()
	s.syncState.Reset()
	s.mu.Unlock()

	s.logger.NotifyNotesChanged(s.ctx)
}

// HasPendingOperations は送信中のリモート呼び出しがあるかどうかを返す
func (s *noteService) HasPendingOperations() bool {
	return s.pending.Load() > 0 || s.saves.HasPendingOperations()
}

// WaitForSync は全てのリモート呼び出しが完了するまで待機する
func (s *noteService) WaitForSync(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if !s.HasPendingOperations() {
			return true
		}
		select {
		case <-timer.C:
			return false // タイムアウト
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// queueSaveLocked は保存リクエストをキューに追加する。s.muを保持して呼ぶ
// 通知はロックの外でnotifySaveを使って行う
func (s *noteService) queueSaveLocked(ctx context.Context, note Note) (SyncStatus, error) {
	revision := s.syncState.MarkPending(note.ID)

	owner, err := s.session.Principal()
	if err != nil {
		s.syncState.MarkFailed(note.ID, revision, err)
		return SyncStatusFailed, err
	}
	s.saves.Enqueue(saveJob{ctx: ctx, owner: owner, note: note, revision: revision})
	return SyncStatusPending, nil
}

func (s *noteService) notifySave(noteID string, status SyncStatus, err error) {
	if err != nil {
		s.logger.Error(err, "Cannot save note %s", noteID)
	}
	s.logger.NotifySyncStatus(s.ctx, noteID, status)
}

// reconcile はリモートの結果を同期状態に反映する
func (s *noteService) reconcile(note Note, revision uint64, err error) {
	if err != nil {
		if s.syncState.MarkFailed(note.ID, revision, err) {
			s.logger.ErrorWithNotify(err, "Failed to save note %s", note.ID)
			s.logger.NotifySyncStatus(s.ctx, note.ID, SyncStatusFailed)
		}
		return
	}
	if s.syncState.MarkSynced(note.ID, revision, note) {
		s.logger.NotifySyncStatus(s.ctx, note.ID, SyncStatusSynced)
	}
}

func (s *noteService) view(note Note) NoteView {
	status, err := s.syncState.Status(note.ID)
	view := NoteView{Note: note, SyncStatus: status}
	if err != nil {
		view.SyncError = err.Error()
	}
	return view
}

func (s *noteService) indexLocked(id string) int {
	for i, note := range s.notes {
		if note.ID == id {
			return i
		}
	}
	return -1
}

var _ NoteService = (*noteService)(nil)
