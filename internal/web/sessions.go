package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/recall/internal/study"
)

const sessionCookie = "recall_session"

// sessions hands each browser its own study controller, keyed by cookie.
type sessions struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	create  func() *study.Controller
	entries map[string]*entry
}

type entry struct {
	ctrl *study.Controller
	seen time.Time
}

func newSessions(ttl time.Duration, create func() *study.Controller) *sessions {
	return &sessions{
		ttl:     ttl,
		now:     time.Now,
		create:  create,
		entries: make(map[string]*entry),
	}
}

// controller returns the caller's controller, starting a new one and
// setting the cookie when the browser is unknown.
func (s *sessions) controller(w http.ResponseWriter, r *http.Request) *study.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)

	if c, err := r.Cookie(sessionCookie); err == nil {
		if e, ok := s.entries[c.Value]; ok {
			e.seen = now
			return e.ctrl
		}
	}

	id := uuid.NewString()
	e := &entry{ctrl: s.create(), seen: now}
	s.entries[id] = e

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return e.ctrl
}

// prune drops controllers idle for longer than the TTL. Their keyboards are
// released through Reset so nothing keeps routing presses to them.
func (s *sessions) prune(now time.Time) {
	for id, e := range s.entries {
		if now.Sub(e.seen) > s.ttl {
			e.ctrl.Reset()
			delete(s.entries, id)
		}
	}
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
