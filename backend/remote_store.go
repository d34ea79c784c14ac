package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"
)

// RemoteStore はノートを永続化するリモートHTTPサービスの操作
type RemoteStore interface {
	ListNotes(ctx context.Context, owner Principal) ([]Note, error)
	SaveNote(ctx context.Context, owner Principal, note Note) error
	DeleteNote(ctx context.Context, owner Principal, noteID string) error
}

// httpRemoteStore はRemoteStoreのHTTP実装
type httpRemoteStore struct {
	listURL   string
	saveURL   string
	deleteURL string
	client    *http.Client
}

// NewHTTPRemoteStore は設定のエンドポイントを使うRemoteStoreを作成します
func NewHTTPRemoteStore(cfg *Config, client *http.Client) RemoteStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &httpRemoteStore{
		listURL:   cfg.ListNotesURL,
		saveURL:   cfg.SaveNoteURL,
		deleteURL: cfg.DeleteNoteURL,
		client:    client,
	}
}

// ListNotes はownerが所有する全てのノートを取得します
func (r *httpRemoteStore) ListNotes(ctx context.Context, owner Principal) ([]Note, error) {
	endpoint, err := withQuery(r.listURL, map[string]string{"email": owner.Email})
	if err != nil {
		return nil, &RemoteSyncError{Op: "list", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &RemoteSyncError{Op: "list", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Access-Token", owner.AccessToken)

	body, err := r.do(req, "list", "")
	if err != nil {
		return nil, err
	}
	return decodeNotes(body)
}

// SaveNote はノート全体を(email, id)をキーにアップサートします
func (r *httpRemoteStore) SaveNote(ctx context.Context, owner Principal, note Note) error {
	endpoint, err := withQuery(r.saveURL, map[string]string{"email": owner.Email, "id": note.ID})
	if err != nil {
		return &RemoteSyncError{Op: "save", NoteID: note.ID, Err: err}
	}

	payload, err := json.Marshal(note)
	if err != nil {
		return &RemoteSyncError{Op: "save", NoteID: note.ID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &RemoteSyncError{Op: "save", NoteID: note.ID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Access-Token", owner.AccessToken)

	// レスポンス本文は実装依存のため読み捨てる
	_, err = r.do(req, "save", note.ID)
	return err
}

// DeleteNote は(email, id)のノートを削除します
func (r *httpRemoteStore) DeleteNote(ctx context.Context, owner Principal, noteID string) error {
	endpoint, err := withQuery(r.deleteURL, map[string]string{"email": owner.Email, "id": noteID})
	if err != nil {
		return &RemoteSyncError{Op: "delete", NoteID: noteID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return &RemoteSyncError{Op: "delete", NoteID: noteID, Err: err}
	}
	req.Header.Set("Access-Token", owner.AccessToken)

	_, err = r.do(req, "delete", noteID)
	return err
}

func (r *httpRemoteStore) do(req *http.Request, op, noteID string) ([]byte, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &RemoteSyncError{Op: op, NoteID: noteID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteSyncError{Op: op, NoteID: noteID, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteSyncError{
			Op:         op,
			NoteID:     noteID,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}
	return body, nil
}

// withQuery は既存のクエリを保ったままパラメータを追加する
func withQuery(base string, params map[string]string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ------------------------------------------------------------
// ペイロード検証
// ------------------------------------------------------------

// noteWire はリモートから受け取るノートの形
// 欠落と型違いを区別するためにポインタで受ける
type noteWire struct {
	ID           *string      `json:"id"`
	Title        *string      `json:"title"`
	Body         *string      `json:"body"`
	LastModified *json.Number `json:"lastModified"`
}

// jsDateLimit はJavaScriptのDateが扱える範囲（ミリ秒）
const jsDateLimit = 8.64e15

// decodeNotes はリストのレスポンスを検証してNoteに変換する
func decodeNotes(body []byte) ([]Note, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &MalformedResponseError{Source: "notes", Index: -1, Reason: fmt.Sprintf("expected a JSON array: %v", err)}
	}

	notes := make([]Note, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, item := range raw {
		var w noteWire
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, &MalformedResponseError{Source: "notes", Index: i, Reason: err.Error()}
		}
		if w.ID == nil || *w.ID == "" {
			return nil, &MalformedResponseError{Source: "notes", Index: i, Reason: "missing id"}
		}
		if seen[*w.ID] {
			return nil, &MalformedResponseError{Source: "notes", Index: i, Reason: fmt.Sprintf("duplicate id %q", *w.ID)}
		}
		if w.LastModified == nil {
			return nil, &MalformedResponseError{Source: "notes", Index: i, Reason: "missing lastModified"}
		}
		lastModified, err := parseMillis(*w.LastModified)
		if err != nil {
			return nil, &MalformedResponseError{Source: "notes", Index: i, Reason: err.Error()}
		}
		seen[*w.ID] = true

		note := Note{ID: *w.ID, LastModified: lastModified}
		if w.Title != nil {
			note.Title = *w.Title
		}
		if w.Body != nil {
			note.Body = *w.Body
		}
		notes = append(notes, note)
	}
	return notes, nil
}

func parseMillis(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		if math.Abs(float64(v)) > jsDateLimit {
			return 0, fmt.Errorf("lastModified out of range: %s", n)
		}
		return v, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > jsDateLimit {
		return 0, fmt.Errorf("invalid lastModified: %q", n.String())
	}
	return int64(f), nil
}
