package review

import "sync"

// Key names a key press, using the browser's KeyboardEvent.key values.
type Key string

const (
	KeyLeft  Key = "ArrowLeft"
	KeyRight Key = "ArrowRight"
	KeySpace Key = " "
	KeyEnter Key = "Enter"
)

// SuppressesDefault reports whether the front-end should cancel the key's
// default action (space would otherwise scroll the page).
func (k Key) SuppressesDefault() bool {
	return k == KeySpace
}

// HandleKey applies the keyboard mapping to the session and reports whether
// anything changed. Keys are ignored once the session is completed.
func (s *Session) HandleKey(k Key) bool {
	if s.state != Active {
		return false
	}

	switch k {
	case KeyLeft:
		return s.Previous()
	case KeyRight:
		if s.IsLast() {
			return s.Finish()
		}
		return s.Next()
	case KeySpace:
		return s.Flip()
	case KeyEnter:
		if s.IsLast() {
			return s.Finish()
		}
	}
	return false
}

// Keyboard routes key presses to at most one session at a time.
type Keyboard struct {
	mu     sync.Mutex
	target *Session
	gen    uint64
}

// Attach directs presses to s until the returned release func is called.
// Release is idempotent and only detaches the attachment it belongs to.
func (kb *Keyboard) Attach(s *Session) (release func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	kb.gen++
	gen := kb.gen
	kb.target = s

	var once sync.Once
	return func() {
		once.Do(func() {
			kb.mu.Lock()
			defer kb.mu.Unlock()
			if kb.gen == gen {
				kb.target = nil
			}
		})
	}
}

// Attached reports whether a session is listening.
func (kb *Keyboard) Attached() bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.target != nil
}

// Press delivers k to the attached session, if any.
func (kb *Keyboard) Press(k Key) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.target == nil {
		return false
	}
	return kb.target.HandleKey(k)
}
