package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// テスト用のリモートストアの設定を作る
func remoteStoreConfig(baseURL string) *Config {
	return &Config{
		ListNotesURL:  baseURL + "/get",
		SaveNoteURL:   baseURL + "/post?stage=prod",
		DeleteNoteURL: baseURL + "/delete",
	}
}

var testOwner = Principal{Email: "user@example.com", AccessToken: "token-123"}

func TestHTTPRemoteStore_ListNotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/get", r.URL.Path)
		assert.Equal(t, "user@example.com", r.URL.Query().Get("email"))
		assert.Equal(t, "token-123", r.Header.Get("Access-Token"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"id":"a","title":"First","body":"hello","lastModified":1700000000000},
			{"id":"b","title":"Second","body":"","lastModified":1700000001000}
		]`)
	}))
	defer server.Close()

	store := NewHTTPRemoteStore(remoteStoreConfig(server.URL), server.Client())
	notes, err := store.ListNotes(context.Background(), testOwner)
	require.NoError(t, err)

	assert.Equal(t, []Note{
		{ID: "a", Title: "First", Body: "hello", LastModified: 1700000000000},
		{ID: "b", Title: "Second", Body: "", LastModified: 1700000001000},
	}, notes)
}

func TestHTTPRemoteStore_SaveNote(t *testing.T) {
	note := Note{ID: "n1", Title: "Title", Body: "Body", LastModified: 1700000000000}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/post", r.URL.Path)
		assert.Equal(t, "prod", r.URL.Query().Get("stage"), "existing query must be kept")
		assert.Equal(t, "user@example.com", r.URL.Query().Get("email"))
		assert.Equal(t, "n1", r.URL.Query().Get("id"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "token-123", r.Header.Get("Access-Token"))

		var got Note
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, note, got)
		io.WriteString(w, `"ok"`)
	}))
	defer server.Close()

	store := NewHTTPRemoteStore(remoteStoreConfig(server.URL), server.Client())
	require.NoError(t, store.SaveNote(context.Background(), testOwner, note))
}

func TestHTTPRemoteStore_DeleteNote(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/delete", r.URL.Path)
		assert.Equal(t, "n1", r.URL.Query().Get("id"))
		assert.Equal(t, "user@example.com", r.URL.Query().Get("email"))
		assert.Equal(t, "token-123", r.Header.Get("Access-Token"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	store := NewHTTPRemoteStore(remoteStoreConfig(server.URL), server.Client())
	require.NoError(t, store.DeleteNote(context.Background(), testOwner, "n1"))
	assert.True(t, called)
}

func TestHTTPRemoteStore_NonSuccessStatusIsRemoteSyncError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	store := NewHTTPRemoteStore(remoteStoreConfig(server.URL), server.Client())
	err := store.SaveNote(context.Background(), testOwner, Note{ID: "n1"})

	var syncErr *RemoteSyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, "save", syncErr.Op)
	assert.Equal(t, "n1", syncErr.NoteID)
	assert.Equal(t, http.StatusForbidden, syncErr.StatusCode)
	assert.True(t, IsRemoteSyncError(err))
}

func TestHTTPRemoteStore_NetworkErrorIsRemoteSyncError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	store := NewHTTPRemoteStore(remoteStoreConfig(url), nil)
	_, err := store.ListNotes(context.Background(), testOwner)

	var syncErr *RemoteSyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, "list", syncErr.Op)
	assert.Zero(t, syncErr.StatusCode)
}

func TestDecodeNotes_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		reason string
	}{
		{"not an array", `{"id":"a"}`, "expected a JSON array"},
		{"missing id", `[{"title":"x","lastModified":1}]`, "missing id"},
		{"empty id", `[{"id":"","lastModified":1}]`, "missing id"},
		{"duplicate id", `[{"id":"a","lastModified":1},{"id":"a","lastModified":2}]`, "duplicate id"},
		{"missing lastModified", `[{"id":"a"}]`, "missing lastModified"},
		{"title wrong type", `[{"id":"a","title":5,"lastModified":1}]`, "title"},
		{"lastModified out of range", `[{"id":"a","lastModified":9e15}]`, "lastModified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeNotes([]byte(tt.body))
			var malformed *MalformedResponseError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Contains(t, malformed.Error(), tt.reason)
		})
	}
}

func TestDecodeNotes_DefaultsOptionalFields(t *testing.T) {
	notes, err := decodeNotes([]byte(`[{"id":"a","title":null,"lastModified":1.7e12}]`))
	require.NoError(t, err)
	assert.Equal(t, []Note{{ID: "a", LastModified: 1700000000000}}, notes)
}

func TestDecodeNotes_EmptyArray(t *testing.T) {
	notes, err := decodeNotes([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, notes)
}
