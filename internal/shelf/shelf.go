// Package shelf tracks whether the bottom filter shelf is shown.
package shelf

import "sync"

// Presenter shows and hides the shelf on screen
type Presenter interface {
	Present()
	Dismiss()
}

// PresenterFuncs adapts two funcs to Presenter. Nil funcs are skipped.
type PresenterFuncs struct {
	OnPresent func()
	OnDismiss func()
}

func (p PresenterFuncs) Present() {
	if p.OnPresent != nil {
		p.OnPresent()
	}
}

func (p PresenterFuncs) Dismiss() {
	if p.OnDismiss != nil {
		p.OnDismiss()
	}
}

// Shelf is the visibility flag, kept in step with a presenter
type Shelf struct {
	mu        sync.Mutex
	open      bool
	presenter Presenter
}

// New creates a closed shelf. presenter may be nil.
func New(presenter Presenter) *Shelf {
	if presenter == nil {
		presenter = PresenterFuncs{}
	}
	return &Shelf{presenter: presenter}
}

// IsOpen reports the flag
func (s *Shelf) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Toggle flips the flag, drives the presenter and returns the new value
func (s *Shelf) Toggle() bool {
	s.mu.Lock()
	s.open = !s.open
	open := s.open
	s.mu.Unlock()

	s.present(open)
	return open
}

// Open shows the shelf if hidden
func (s *Shelf) Open() {
	s.set(true)
}

// Close hides the shelf if shown
func (s *Shelf) Close() {
	s.set(false)
}

// Sync records a change made by the presenter itself, such as a swipe to
// dismiss, without calling back into it
func (s *Shelf) Sync(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

func (s *Shelf) set(open bool) {
	s.mu.Lock()
	changed := s.open != open
	s.open = open
	s.mu.Unlock()

	if changed {
		s.present(open)
	}
}

func (s *Shelf) present(open bool) {
	if open {
		s.presenter.Present()
	} else {
		s.presenter.Dismiss()
	}
}
