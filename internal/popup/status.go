package popup

import (
	"sync"
	"time"
)

// StatusLine is a text line that clears itself after a while.
type StatusLine struct {
	mu    sync.Mutex
	text  string
	gen   uint64
	timer *time.Timer

	// OnChange, when set, observes every change including the clear.
	OnChange func(text string)
}

// Show replaces the text. A positive ttl clears it after ttl unless another
// Show came first.
func (s *StatusLine) Show(text string, ttl time.Duration) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.text = text
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if ttl > 0 {
		s.timer = time.AfterFunc(ttl, func() { s.clear(gen) })
	}
	cb := s.OnChange
	s.mu.Unlock()

	if cb != nil {
		cb(text)
	}
}

func (s *StatusLine) clear(gen uint64) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.text = ""
	s.timer = nil
	cb := s.OnChange
	s.mu.Unlock()

	if cb != nil {
		cb("")
	}
}

func (s *StatusLine) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}
