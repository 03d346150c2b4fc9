package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int64  `json:"id"`
	Nome string `json:"nome"`
}

type recorded struct {
	method string
	path   string
	body   string
}

// newStore serves a tiny session-protected collection under /itens.
func newStore(t *testing.T) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/usuarios/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ana@loja.com" || body["senha"] != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"credenciais inválidas"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "abc", Path: "/", HttpOnly: true})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/usuarios/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/itens/", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recorded{method: r.Method, path: r.URL.Path, body: string(raw)})
		mu.Unlock()
		if c, err := r.Cookie("token"); err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/itens/":
			_, _ = w.Write([]byte(`[{"id":1,"nome":"Canal A"},{"id":2,"nome":"Canal B"}]`))
		case strings.HasSuffix(r.URL.Path, "/404"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not here"))
		default:
			w.WriteHeader(http.StatusOK)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("localhost:3000")
	require.Error(t, err)

	c, err := NewClient("http://localhost:3000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", c.BaseURL())
}

func TestLogin_SessionCookieIsReused(t *testing.T) {
	srv, calls := newStore(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	ep := Endpoint{Collection: "/itens/"}
	res := NewResource[item](c, ep)

	_, err = res.List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	require.NoError(t, c.Login(context.Background(), "ana@loja.com", "s3cret"))

	got, err := res.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []item{{1, "Canal A"}, {2, "Canal B"}}, got)
	assert.Len(t, *calls, 2)
}

func TestLogin_BadCredentials(t *testing.T) {
	srv, _ := newStore(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	err = c.Login(context.Background(), "ana@loja.com", "wrong")
	require.Error(t, err)

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusUnauthorized, re.Status)
	assert.Equal(t, "credenciais inválidas", re.Message)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.False(t, errors.Is(err, ErrTransport))
}

func TestLogout_DropsSession(t *testing.T) {
	srv, _ := newStore(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	res := NewResource[item](c, Endpoint{Collection: "/itens/"})

	require.NoError(t, c.Login(context.Background(), "ana@loja.com", "s3cret"))
	require.NoError(t, c.Logout(context.Background()))

	_, err = res.List(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestResource_WritePaths(t *testing.T) {
	srv, calls := newStore(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), "ana@loja.com", "s3cret"))

	res := NewResource[item](c, Endpoint{Collection: "/itens", Create: "/itens/register"})
	ctx := context.Background()

	require.NoError(t, res.Create(ctx, map[string]string{"nome": "Canal C"}))
	require.NoError(t, res.Update(ctx, 7, map[string]string{"nome": "Canal D"}))
	require.NoError(t, res.Delete(ctx, 7))
	require.NoError(t, res.Post(ctx, 7, "finalizar", map[string]string{"resolucao": "ok"}))

	require.Len(t, *calls, 4)
	assert.Equal(t, recorded{http.MethodPost, "/itens/register", `{"nome":"Canal C"}`}, (*calls)[0])
	assert.Equal(t, recorded{http.MethodPut, "/itens/7", `{"nome":"Canal D"}`}, (*calls)[1])
	assert.Equal(t, recorded{http.MethodDelete, "/itens/7", ""}, (*calls)[2])
	assert.Equal(t, recorded{http.MethodPost, "/itens/7/finalizar", `{"resolucao":"ok"}`}, (*calls)[3])
}

func TestResource_RejectionCarriesPlainTextMessage(t *testing.T) {
	srv, _ := newStore(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), "ana@loja.com", "s3cret"))

	err = NewResource[item](c, Endpoint{Collection: "/itens"}).Delete(context.Background(), 404)
	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusNotFound, re.Status)
	assert.Equal(t, "not here", re.Message)
	assert.Equal(t, "delete itens", re.Op)
	assert.Contains(t, err.Error(), "status 404")
}

func TestResource_NullListIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("null"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	got, err := NewResource[item](c, Endpoint{Collection: "/x"}).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = NewResource[item](c, Endpoint{Collection: "/x"}).List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.False(t, errors.Is(err, ErrRejected))
}

func TestMessageFromBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "  ", ""},
		{"json error", `{"error":"cpf duplicado"}`, "cpf duplicado"},
		{"json message", `{"message":"pedido não encontrado"}`, "pedido não encontrado"},
		{"plain", " Bad Gateway \n", "Bad Gateway"},
		{"long", strings.Repeat("x", 600), strings.Repeat("x", 512)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, messageFromBody([]byte(tt.body)))
		})
	}
}

func TestLogout_ConcurrentWithRequests(t *testing.T) {
	srv, _ := newStore(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), "ana@loja.com", "s3cret"))
	res := NewResource[item](c, Endpoint{Collection: "/itens/"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// either outcome is fine; only the jar swap is under test
			_, _ = res.List(context.Background())
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Logout(context.Background())
	}()
	wg.Wait()

	_, err = res.List(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestUndecodableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>proxy login</html>"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = NewResource[item](c, Endpoint{Collection: "/x"}).List(context.Background())

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusOK, re.Status)
	assert.True(t, errors.Is(err, ErrBadResponse))
	assert.False(t, errors.Is(err, ErrRejected))
	assert.False(t, errors.Is(err, ErrTransport))
}

func TestBadRequestIsNotTransport(t *testing.T) {
	c, err := NewClient("http://localhost:3000")
	require.NoError(t, err)

	err = c.do(context.Background(), "bad", "BAD METHOD", "/x", nil, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTransport))
	var re *Error
	assert.False(t, errors.As(err, &re))
}

func TestMessageFromBody_CutsOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", 511) + "ção"
	got := messageFromBody([]byte(body))

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 511), got)
}
