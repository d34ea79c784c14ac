package backend

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emittedEvent struct {
	name string
	data []interface{}
}

// recordingEmitter は送信されたイベントを記録する
type recordingEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (r *recordingEmitter) Emit(ctx context.Context, name string, data ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emittedEvent{name: name, data: data})
}

func (r *recordingEmitter) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.name)
	}
	return names
}

func TestAppLogger_EmitsEvents(t *testing.T) {
	dir := t.TempDir()
	emitter := &recordingEmitter{}
	logger := NewAppLogger(context.Background(), false, dir, emitter)
	t.Cleanup(func() { logger.Close() })

	logger.NotifySessionStatus(context.Background(), SessionSignedIn)
	logger.NotifyNotesChanged(context.Background())
	logger.NotifySyncStatus(context.Background(), "note-1", SyncStatusFailed)
	logger.Info("hello %s", "world")

	err := errors.New("boom")
	assert.Equal(t, err, logger.ErrorWithNotify(err, "save failed"))

	assert.Equal(t, []string{
		"session:status",
		"notes:updated",
		"sync:status",
		"logMessage",
		"logMessage",
		"sync:error",
	}, emitter.names())
	assert.Equal(t, []interface{}{map[string]string{"noteId": "note-1", "status": "failed"}}, emitter.events[2].data)
	assert.Equal(t, []interface{}{"hello world"}, emitter.events[3].data)

	// ログファイルが作成される
	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAppLogger_TestModeIsSilent(t *testing.T) {
	emitter := &recordingEmitter{}
	logger := NewAppLogger(context.Background(), true, t.TempDir(), emitter)

	logger.Info("ignored")
	logger.NotifyNotesChanged(context.Background())
	assert.Nil(t, logger.Error(nil, "no error"))
	assert.True(t, logger.IsTestMode())
	assert.Empty(t, emitter.names())
	assert.NoError(t, logger.Close())
}

// Consoleはコンソールに出力され、フロントエンドには通知されない
func TestAppLogger_ConsoleWritesToConsole(t *testing.T) {
	var buf bytes.Buffer
	original := consoleWriter
	consoleWriter = &buf
	t.Cleanup(func() { consoleWriter = original })

	emitter := &recordingEmitter{}
	logger := NewAppLogger(context.Background(), false, t.TempDir(), emitter)
	t.Cleanup(func() { logger.Close() })

	logger.Console("appDataDir: %s", "/tmp/lotion")

	assert.Contains(t, buf.String(), "appDataDir: /tmp/lotion")
	assert.Empty(t, emitter.names())
}
