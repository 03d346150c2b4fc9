// Package remotetest runs an in-memory stand-in for the back-office remote
// store, for tests that exercise the real HTTP client.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

const (
	Email    = "operador@loja.com"
	Password = "s3cret"

	sessionCookie = "token"
	sessionValue  = "remotetest-session"
)

type Record = map[string]any

// Server keeps every collection as a slice of JSON objects keyed by the
// collection path without its slash ("pedidos", "clientes", ...).
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	data    map[string][]Record
	nextID  int64
	fail    map[string]int
	calls   []string
	actions []Action
}

// Action is one POST to /{collection}/{id}/{action}.
type Action struct {
	Collection string
	ID         int64
	Name       string
	Body       Record
}

func NewServer() *Server {
	s := &Server{
		data:   map[string][]Record{},
		nextID: 100,
		fail:   map[string]int{},
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Post("/usuarios/login", s.login)
	r.Post("/usuarios/logout", s.logout)
	r.Route("/{col}", func(r chi.Router) {
		r.Use(s.authorized)
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Post("/register", s.create)
		r.Put("/{id}", s.update)
		r.Delete("/{id}", s.remove)
		r.Post("/{id}/{action}", s.action)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// Seed replaces a collection. Records are round-tripped through JSON so
// domain structs can be passed directly.
func (s *Server) Seed(col string, records ...any) {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			panic(err)
		}
		var m Record
		if err := json.Unmarshal(raw, &m); err != nil {
			panic(err)
		}
		out = append(out, m)
	}
	s.mu.Lock()
	s.data[col] = out
	s.mu.Unlock()
}

// Fail makes every request on col answer status. Zero clears it.
func (s *Server) Fail(col string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.fail, col)
		return
	}
	s.fail[col] = status
}

func (s *Server) Records(col string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data[col])
}

// Calls lists "METHOD /path" for every request received.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *Server) Actions() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.actions)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value != sessionValue {
			writeJSON(w, http.StatusUnauthorized, Record{"error": "não autenticado"})
			return
		}
		s.mu.Lock()
		status := s.fail[chi.URLParam(r, "col")]
		s.mu.Unlock()
		if status != 0 {
			writeJSON(w, status, Record{"message": "falha simulada"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email != Email || body.Senha != Password {
		writeJSON(w, http.StatusUnauthorized, Record{"error": "credenciais inválidas"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sessionValue, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, Record{"email": body.Email})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Records(chi.URLParam(r, "col")))
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, Record{"error": err.Error()})
		return
	}
	col := chi.URLParam(r, "col")

	s.mu.Lock()
	s.nextID++
	rec["id"] = s.nextID
	s.data[col] = append(s.data[col], rec)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var patch Record
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, Record{"error": err.Error()})
		return
	}
	s.withRecord(w, r, func(rec Record) {
		for k, v := range patch {
			rec[k] = v
		}
	})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	col := chi.URLParam(r, "col")
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(col, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, Record{"error": "registro não encontrado"})
		return
	}
	s.data[col] = slices.Delete(s.data[col], i, i+1)
	w.WriteHeader(http.StatusNoContent)
}

// action records the call; "finalizar" also closes the record.
func (s *Server) action(w http.ResponseWriter, r *http.Request) {
	var body Record
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Record{"error": err.Error()})
		return
	}
	col, name := chi.URLParam(r, "col"), chi.URLParam(r, "action")
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	s.withRecord(w, r, func(rec Record) {
		s.actions = append(s.actions, Action{Collection: col, ID: id, Name: name, Body: body})
		if name == "finalizar" {
			rec["situation"] = "FINALIZADO"
			rec["resolucao"] = body["resolucao"]
		}
	})
}

func (s *Server) withRecord(w http.ResponseWriter, r *http.Request, fn func(Record)) {
	col := chi.URLParam(r, "col")
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(col, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, Record{"error": "registro não encontrado"})
		return
	}
	fn(s.data[col][i])
	writeJSON(w, http.StatusOK, s.data[col][i])
}

// indexOf must be called with the lock held.
func (s *Server) indexOf(col string, id int64) int {
	for i, rec := range s.data[col] {
		if n, ok := rec["id"].(float64); ok && int64(n) == id {
			return i
		}
		if n, ok := rec["id"].(int64); ok && n == id {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
