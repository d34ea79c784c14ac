package backend

import (
	"sync"
)

// noteSyncRecord はノート1件分の同期状態
type noteSyncRecord struct {
	Status     SyncStatus
	Revision   uint64 // 書き込みごとに増加する
	Err        error
	LastSynced *Note // リモートで確認済みの最後の値（未同期ならnil）
}

// SyncState はノートごとの同期状態を管理する
// 楽観的更新のたびにrevisionを進め、古いリクエストの完了が新しい状態を上書きしないようにする
type SyncState struct {
	mu       sync.Mutex
	records  map[string]*noteSyncRecord
	revision uint64
}

func NewSyncState() *SyncState {
	return &SyncState{
		records: make(map[string]*noteSyncRecord),
	}
}

// MarkLocal はローカルのみに存在するノートとして登録する
func (s *SyncState) MarkLocal(noteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revision++
	s.records[noteID] = &noteSyncRecord{Status: SyncStatusLocal, Revision: s.revision}
}

// MarkPending は保存リクエスト送信中にし、今回の書き込みのrevisionを返す
func (s *SyncState) MarkPending(noteID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revision++
	rec := s.recordLocked(noteID)
	rec.Status = SyncStatusPending
	rec.Revision = s.revision
	rec.Err = nil
	return s.revision
}

// MarkSynced はrevisionが最新の場合のみ同期済みにする
// 戻り値がfalseの場合は、完了前に新しい書き込みが入ったため状態を保持する
func (s *SyncState) MarkSynced(noteID string, revision uint64, note Note) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[noteID]
	if !ok || rec.Revision != revision {
		return false
	}
	synced := note
	rec.Status = SyncStatusSynced
	rec.Err = nil
	rec.LastSynced = &synced
	return true
}

// MarkFailed はrevisionが最新の場合のみ失敗状態にする
func (s *SyncState) MarkFailed(noteID string, revision uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[noteID]
	if !ok || rec.Revision != revision {
		return false
	}
	rec.Status = SyncStatusFailed
	rec.Err = err
	return true
}

// Restore はロールバックでリモートの値に戻したノートを同期済みに戻す
func (s *SyncState) Restore(noteID string, note Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revision++
	synced := note
	s.records[noteID] = &noteSyncRecord{Status: SyncStatusSynced, Revision: s.revision, LastSynced: &synced}
}

// ReplaceAll はリモートから取得したノートを全て同期済みとして登録し直す
func (s *SyncState) ReplaceAll(notes []Note, keep map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*noteSyncRecord, len(notes)+len(keep))
	for id := range keep {
		if rec, ok := s.records[id]; ok {
			next[id] = rec
		}
	}
	for _, note := range notes {
		s.revision++
		synced := note
		next[note.ID] = &noteSyncRecord{Status: SyncStatusSynced, Revision: s.revision, LastSynced: &synced}
	}
	s.records = next
}

// Forget はノートの同期状態を破棄する
func (s *SyncState) Forget(noteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, noteID)
}

// Reset は全ての同期状態を破棄する
func (s *SyncState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revision++
	s.records = make(map[string]*noteSyncRecord)
}

// Status はノートの同期状態を返す（未登録の場合は空文字）
func (s *SyncState) Status(noteID string) (SyncStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[noteID]
	if !ok {
		return "", nil
	}
	return rec.Status, rec.Err
}

// LastSynced はリモートで確認済みの最後の値を返す
func (s *SyncState) LastSynced(noteID string) (Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[noteID]
	if !ok || rec.LastSynced == nil {
		return Note{}, false
	}
	return *rec.LastSynced, true
}

// IsDirty は未同期のノートがあるかどうかを返す
func (s *SyncState) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.Status != SyncStatusSynced {
			return true
		}
	}
	return false
}

// GetFailedNoteIDs は失敗状態のノートIDを返す
func (s *SyncState) GetFailedNoteIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, rec := range s.records {
		if rec.Status == SyncStatusFailed {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsUnsaved は一度もリモートで確認されていないノートかどうかを返す
func (s *SyncState) IsUnsaved(noteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[noteID]
	if !ok {
		return false
	}
	return rec.LastSynced == nil
}

func (s *SyncState) recordLocked(noteID string) *noteSyncRecord {
	rec, ok := s.records[noteID]
	if !ok {
		rec = &noteSyncRecord{}
		s.records[noteID] = rec
	}
	return rec
}
