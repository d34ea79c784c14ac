package backend

import (
	"context"
	"sync"
	"time"
)

// saveJob はキューに格納される保存リクエスト
type saveJob struct {
	ctx      context.Context
	owner    Principal
	note     Note
	revision uint64
}

// saveQueue はノートごとに保存リクエストを直列化する
// 同じノートの保存は送信順に1件ずつ実行し、実行待ちの古いリクエストは新しいもので置き換える
type saveQueue struct {
	remote  RemoteStore
	onDone  func(job saveJob, err error)
	mu      sync.Mutex
	running map[string]bool     // 送信中のワーカーがあるノート
	next    map[string]*saveJob // ワーカーの次に送信する最新のリクエスト
}

func newSaveQueue(remote RemoteStore, onDone func(job saveJob, err error)) *saveQueue {
	return &saveQueue{
		remote:  remote,
		onDone:  onDone,
		running: make(map[string]bool),
		next:    make(map[string]*saveJob),
	}
}

// Enqueue は保存リクエストを追加する
// 送信中のリクエストがあれば、完了後に最新のものだけを送信する
func (q *saveQueue) Enqueue(job saveJob) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running[job.note.ID] {
		q.next[job.note.ID] = &job
		return
	}
	q.running[job.note.ID] = true
	go q.run(job)
}

func (q *saveQueue) run(job saveJob) {
	for {
		err := q.remote.SaveNote(job.ctx, job.owner, job.note)
		q.onDone(job, err)

		q.mu.Lock()
		pending, ok := q.next[job.note.ID]
		if !ok {
			delete(q.running, job.note.ID)
			q.mu.Unlock()
			return
		}
		delete(q.next, job.note.ID)
		q.mu.Unlock()
		job = *pending
	}
}

// Drop は実行待ちのリクエストを破棄する（送信中のものは止めない）
func (q *saveQueue) Drop(noteID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.next, noteID)
}

// DropAll は全ての実行待ちのリクエストを破棄する
func (q *saveQueue) DropAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next = make(map[string]*saveJob)
}

// Busy は指定ノートの保存が送信中かどうかを返す
func (q *saveQueue) Busy(noteID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running[noteID]
}

// HasPendingOperations は送信中のリクエストがあるかどうかを返す
func (q *saveQueue) HasPendingOperations() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.running) > 0
}

// WaitNote は指定ノートの送信中のリクエストが終わるまで待機する
func (q *saveQueue) WaitNote(noteID string, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if !q.Busy(noteID) {
			return true
		}
		select {
		case <-timer.C:
			return false
		case <-time.After(20 * time.Millisecond):
		}
	}
}
