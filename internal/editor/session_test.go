package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSaver struct {
	mu    sync.Mutex
	calls []string
	err   error
	done  chan string
}

func newRecordingSaver() *recordingSaver {
	return &recordingSaver{done: make(chan string, 16)}
}

func (r *recordingSaver) save(ctx context.Context, boardID, content string) error {
	r.mu.Lock()
	r.calls = append(r.calls, content)
	err := r.err
	r.mu.Unlock()
	r.done <- content
	return err
}

func (r *recordingSaver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recordingSaver) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func waitForSave(t *testing.T, saver *recordingSaver) string {
	t.Helper()
	select {
	case content := <-saver.done:
		return content
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for save")
		return ""
	}
}

func TestSessionStartsSaved(t *testing.T) {
	session := NewSession(Config{BoardID: "brd_1", Initial: "# hi", Save: newRecordingSaver().save})
	defer session.Close()

	if session.Status() != StatusSaved {
		t.Fatalf("status = %s, want saved", session.Status())
	}
	if session.Dirty() {
		t.Fatal("fresh session reported dirty")
	}
	if session.Buffer() != "# hi" {
		t.Fatalf("buffer = %q", session.Buffer())
	}
}

func TestRapidEditsCoalesceIntoOneSave(t *testing.T) {
	saver := newRecordingSaver()
	session := NewSession(Config{
		BoardID:  "brd_1",
		Save:     saver.save,
		Debounce: 30 * time.Millisecond,
	})
	defer session.Close()

	session.Edit("a")
	session.Edit("ab")
	session.Edit("abc")

	if session.Status() != StatusUnsaved {
		t.Fatalf("status = %s, want unsaved while typing", session.Status())
	}

	content := waitForSave(t, saver)
	if content != "abc" {
		t.Fatalf("saved %q, want the final buffer", content)
	}

	// The earlier edits were debounced away.
	time.Sleep(100 * time.Millisecond)
	if n := saver.callCount(); n != 1 {
		t.Fatalf("save ran %d times, want 1", n)
	}
	if session.Status() != StatusSaved {
		t.Fatalf("status = %s, want saved", session.Status())
	}
	if session.SavedContent() != "abc" {
		t.Fatalf("savedContent = %q", session.SavedContent())
	}
}

func TestEditAfterDebounceSavesAgain(t *testing.T) {
	saver := newRecordingSaver()
	session := NewSession(Config{
		BoardID:  "brd_1",
		Save:     saver.save,
		Debounce: 20 * time.Millisecond,
	})
	defer session.Close()

	session.Edit("first")
	if got := waitForSave(t, saver); got != "first" {
		t.Fatalf("saved %q, want first", got)
	}

	session.Edit("second")
	if got := waitForSave(t, saver); got != "second" {
		t.Fatalf("saved %q, want second", got)
	}
	if n := saver.callCount(); n != 2 {
		t.Fatalf("save ran %d times, want 2", n)
	}
}

func TestSaveFailureLeavesUnsavedAndRecovers(t *testing.T) {
	saver := newRecordingSaver()
	saver.setErr(errors.New("server down"))

	var notices []NoticeKind
	var noticesMu sync.Mutex
	session := NewSession(Config{
		BoardID:  "brd_1",
		Save:     saver.save,
		Debounce: 20 * time.Millisecond,
		OnNotice: func(kind NoticeKind, message string) {
			noticesMu.Lock()
			notices = append(notices, kind)
			noticesMu.Unlock()
		},
	})
	defer session.Close()

	session.Edit("draft")
	waitForSave(t, saver)

	// Give flush time to apply the failure result.
	deadline := time.Now().Add(time.Second)
	for session.Status() != StatusUnsaved {
		if time.Now().After(deadline) {
			t.Fatalf("status = %s, want unsaved after failed save", session.Status())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if session.SavedContent() != "" {
		t.Fatalf("savedContent = %q, want unchanged", session.SavedContent())
	}

	deadline = time.Now().Add(time.Second)
	for {
		noticesMu.Lock()
		sawError := len(notices) > 0 && notices[len(notices)-1] == NoticeError
		noticesMu.Unlock()
		if sawError {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no error notice after failed save")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The next save, here a manual one, goes through cleanly.
	saver.setErr(nil)
	if err := session.SaveNow(context.Background()); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}
	if session.Status() != StatusSaved {
		t.Fatalf("status = %s, want saved after recovery", session.Status())
	}
	if session.SavedContent() != "draft" {
		t.Fatalf("savedContent = %q, want draft", session.SavedContent())
	}
}

func TestManualSaveUsesCurrentBuffer(t *testing.T) {
	saver := newRecordingSaver()
	session := NewSession(Config{
		BoardID:  "brd_1",
		Save:     saver.save,
		Debounce: time.Hour, // the timer never fires in this test
	})
	defer session.Close()

	session.Edit("typed")
	if err := session.SaveNow(context.Background()); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}
	if got := waitForSave(t, saver); got != "typed" {
		t.Fatalf("saved %q, want typed", got)
	}
	if session.Status() != StatusSaved {
		t.Fatalf("status = %s, want saved", session.Status())
	}
}

func TestCloseStopsPendingAutoSave(t *testing.T) {
	saver := newRecordingSaver()
	session := NewSession(Config{
		BoardID:  "brd_1",
		Save:     saver.save,
		Debounce: 20 * time.Millisecond,
	})

	session.Edit("going away")
	session.Close()

	time.Sleep(100 * time.Millisecond)
	if n := saver.callCount(); n != 0 {
		t.Fatalf("save ran %d times after Close", n)
	}
}

func TestStatusCallbackSequence(t *testing.T) {
	saver := newRecordingSaver()

	var mu sync.Mutex
	var seen []Status
	session := NewSession(Config{
		BoardID:  "brd_1",
		Save:     saver.save,
		Debounce: 20 * time.Millisecond,
		OnStatus: func(status Status) {
			mu.Lock()
			seen = append(seen, status)
			mu.Unlock()
		},
	})
	defer session.Close()

	session.Edit("x")
	waitForSave(t, saver)

	want := []Status{StatusUnsaved, StatusSaving, StatusSaved}
	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n >= len(want) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status sequence stalled at %v", seen)
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("status sequence = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("status sequence = %v, want %v", seen, want)
		}
	}
}
