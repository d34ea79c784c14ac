package backend

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrProfileUnavailable = errors.New("profile is not available")
	ErrNoteNotFound       = errors.New("note not found")
	ErrNotActiveNote      = errors.New("note is not the active note")
	ErrNoteNotFailed      = errors.New("note has no failed sync to act on")
	ErrLoginCanceled      = errors.New("login canceled")
	ErrLoginTimeout       = errors.New("authentication timed out")
	ErrLoginInProgress    = errors.New("login already in progress")
)

// RemoteSyncError はリモートストアへのCRUD呼び出しの失敗を表す
// 通信エラーの場合はStatusCodeが0になる
type RemoteSyncError struct {
	Op         string // "list", "save", "delete"
	NoteID     string
	StatusCode int
	Err        error
}

func (e *RemoteSyncError) Error() string {
	target := e.Op
	if e.NoteID != "" {
		target = fmt.Sprintf("%s %s", e.Op, e.NoteID)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s failed with status %d", target, e.StatusCode)
	}
	return fmt.Sprintf("remote %s failed: %v", target, e.Err)
}

func (e *RemoteSyncError) Unwrap() error {
	return e.Err
}

// MalformedResponseError は境界でのペイロード検証に失敗したことを表す
type MalformedResponseError struct {
	Source string // "notes", "userinfo"
	Index  int    // 配列内の位置（該当しない場合は-1）
	Reason string
}

func (e *MalformedResponseError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("malformed %s response at index %d: %s", e.Source, e.Index, e.Reason)
	}
	return fmt.Sprintf("malformed %s response: %s", e.Source, e.Reason)
}

// IsRemoteSyncError はerrがRemoteSyncErrorを含むかどうかを返す
func IsRemoteSyncError(err error) bool {
	var syncErr *RemoteSyncError
	return errors.As(err, &syncErr)
}
