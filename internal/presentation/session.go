package presentation

import (
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/RaikyD/backoffice-dashboard/internal/presentation/helpers"
)

const sessionCookie = "backoffice_session"

// sessions holds the dashboard's own session tokens, handed out on login.
type sessions struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

func newSessions() *sessions {
	return &sessions{tokens: make(map[string]struct{})}
}

func (s *sessions) open(w http.ResponseWriter) {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *sessions) valid(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	s.mu.RLock()
	_, ok := s.tokens[c.Value]
	s.mu.RUnlock()
	return ok
}

func (s *sessions) close(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.tokens, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

// require answers 401 to any request without a live dashboard session.
func (s *sessions) require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.valid(r) {
			helpers.HttpError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
