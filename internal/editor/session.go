package editor

import (
	"context"
	"sync"
	"time"
)

// Status is the save state shown next to the editor.
type Status string

const (
	StatusSaved   Status = "saved"
	StatusUnsaved Status = "unsaved"
	StatusSaving  Status = "saving"
)

// NoticeKind classifies a user-facing notice.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

const DefaultDebounce = 1500 * time.Millisecond

// SaveFunc persists the full document. It is called off the editing
// goroutine when the debounce timer fires or on a manual save.
type SaveFunc func(ctx context.Context, boardID, content string) error

type Config struct {
	BoardID string
	Initial string
	Save    SaveFunc

	// Debounce is how long the buffer must sit idle before an auto-save
	// fires. Zero means DefaultDebounce.
	Debounce time.Duration

	OnStatus func(status Status)
	OnNotice func(kind NoticeKind, message string)
}

// Session tracks one open document: the live buffer, the last content known
// to be persisted, and a debounced auto-save between the two.
type Session struct {
	boardID  string
	save     SaveFunc
	debounce time.Duration
	onStatus func(Status)
	onNotice func(NoticeKind, string)

	mu           sync.Mutex
	buffer       string
	savedContent string
	status       Status
	timer        *time.Timer
	closed       bool
}

func NewSession(cfg Config) *Session {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Session{
		boardID:      cfg.BoardID,
		save:         cfg.Save,
		debounce:     debounce,
		onStatus:     cfg.OnStatus,
		onNotice:     cfg.OnNotice,
		buffer:       cfg.Initial,
		savedContent: cfg.Initial,
		status:       StatusSaved,
	}
}

// Edit replaces the buffer, marks the document unsaved, and restarts the
// debounce timer. Each keystroke pushes the auto-save further out.
func (s *Session) Edit(content string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.buffer = content
	s.status = StatusUnsaved
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		_ = s.flush(context.Background())
	})
	s.mu.Unlock()

	s.notifyStatus(StatusUnsaved)
}

// SaveNow saves the current buffer immediately through the same path the
// auto-save uses. A pending debounce timer is left alone.
func (s *Session) SaveNow(ctx context.Context) error {
	return s.flush(ctx)
}

func (s *Session) flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	content := s.buffer
	s.status = StatusSaving
	s.mu.Unlock()

	s.notifyStatus(StatusSaving)

	err := s.save(ctx, s.boardID, content)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.status = StatusUnsaved
	} else {
		// Saved reflects the content we sent; edits made while the save was
		// in flight re-armed the timer and will be picked up by the next one.
		s.savedContent = content
		s.status = StatusSaved
	}
	status := s.status
	s.mu.Unlock()

	s.notifyStatus(status)
	if err != nil {
		s.notify(NoticeError, "An error occurred while saving. Please try again.")
		return err
	}
	s.notify(NoticeSuccess, "Saved successfully")
	return nil
}

// Status returns the current save state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Buffer returns the live buffer.
func (s *Session) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// SavedContent returns the last content the server acknowledged.
func (s *Session) SavedContent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedContent
}

// Dirty reports whether the buffer differs from the saved content.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer != s.savedContent
}

// Close stops the debounce timer and drops any in-flight result. Unsaved
// edits are lost.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) notifyStatus(status Status) {
	if s.onStatus != nil {
		s.onStatus(status)
	}
}

func (s *Session) notify(kind NoticeKind, message string) {
	if s.onNotice != nil {
		s.onNotice(kind, message)
	}
}
