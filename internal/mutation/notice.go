// Package mutation holds the subscribe, vote and ticket forms.
package mutation

import (
	"errors"
	"sync"
)

// Mutation errors
var (
	// ErrRejected is returned when the API answers with success:false
	ErrRejected         = errors.New("request rejected by server")
	ErrNotImage         = errors.New("attachment is not an image")
	ErrImageTooLarge    = errors.New("attachment too large")
	ErrUnknownPerformer = errors.New("unknown performer")
)

// NoticeKind is the tone of a notice
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is a dismissible user-facing message
type Notice struct {
	Kind  NoticeKind
	Title string
	Text  string
}

// Notifier shows notices
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a func to Notifier
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// NoticeLog keeps every notice it receives
type NoticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *NoticeLog) Notify(n Notice) {
	l.mu.Lock()
	l.notices = append(l.notices, n)
	l.mu.Unlock()
}

// All returns the notices in arrival order
func (l *NoticeLog) All() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notice, len(l.notices))
	copy(out, l.notices)
	return out
}

// Last returns the latest notice
func (l *NoticeLog) Last() (Notice, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.notices) == 0 {
		return Notice{}, false
	}
	return l.notices[len(l.notices)-1], true
}

// Dismiss clears the log
func (l *NoticeLog) Dismiss() {
	l.mu.Lock()
	l.notices = nil
	l.mu.Unlock()
}

type discard struct{}

func (discard) Notify(Notice) {}

func orDiscard(n Notifier) Notifier {
	if n == nil {
		return discard{}
	}
	return n
}

const genericError = "Something went wrong. Please try again!"

func errorNotice(text string) Notice {
	return Notice{Kind: NoticeError, Title: "Error", Text: text}
}
