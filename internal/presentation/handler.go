package presentation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/RaikyD/backoffice-dashboard/internal/application"
	"github.com/RaikyD/backoffice-dashboard/internal/domain"
	"github.com/RaikyD/backoffice-dashboard/internal/listview"
	"github.com/RaikyD/backoffice-dashboard/internal/logger"
	"github.com/RaikyD/backoffice-dashboard/internal/presentation/helpers"
	"github.com/go-chi/chi/v5"
)

// Session is the login surface of the remote store client.
type Session interface {
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
}

type DashboardHandler struct {
	svc      *application.Dashboard
	session  Session
	sessions *sessions
}

func NewDashboardHandler(svc *application.Dashboard, session Session) *DashboardHandler {
	return &DashboardHandler{svc: svc, session: session, sessions: newSessions()}
}

func (h *DashboardHandler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.sessions.require)

			r.Delete("/session", h.Logout)
			r.Get("/summary", h.Summary)

			r.Route("/orders", func(r chi.Router) {
				mountEntity(r, h, domain.EntityOrders, h.svc.Orders, func() any { return &domain.OrderPayload{} })
				r.Post("/{id}/updates", h.AddOrderUpdate)
				r.Post("/{id}/finalize", h.FinalizeOrder)
			})
			r.Route("/customers", func(r chi.Router) {
				mountEntity(r, h, domain.EntityCustomers, h.svc.Customers, func() any { return &domain.CustomerPayload{} })
			})
			r.Route("/stores", func(r chi.Router) {
				mountEntity(r, h, domain.EntityStores, h.svc.Stores, func() any { return &domain.StorePayload{} })
			})
			r.Route("/channels", func(r chi.Router) {
				mountEntity(r, h, domain.EntityChannels, h.svc.Channels, func() any { return &domain.ChannelPayload{} })
			})
		})
	})
}

func mountEntity[T any](r chi.Router, h *DashboardHandler, entity domain.Entity, v *listview.View[T], newPayload func() any) {
	r.Get("/", listHandler(v))

	r.Post("/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.Reload(r.Context(), entity); err != nil {
			writeError(w, err)
			return
		}
		helpers.WriteJSON(w, http.StatusOK, v.Snapshot())
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		payload := newPayload()
		if err := helpers.DecodeJSON(r.Body, payload); err != nil {
			helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if err := h.svc.Create(r.Context(), entity, payload); err != nil {
			writeError(w, err)
			return
		}
		helpers.WriteJSON(w, http.StatusCreated, map[string]any{"status": "ok"})
	})

	r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		payload := newPayload()
		if err := helpers.DecodeJSON(r.Body, payload); err != nil {
			helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if err := h.svc.Update(r.Context(), entity, id, payload); err != nil {
			writeError(w, err)
			return
		}
		helpers.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": id})
	})

	r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		if err := h.svc.Remove(r.Context(), entity, id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// listHandler answers with one filtered page of the cached collection. Each
// request carries its own filters, so browser tabs do not share filter state.
func listHandler[T any](v *listview.View[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, page, err := parseListQuery(v.Fields(), r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		snap, err := v.Query(filters, page)
		if err != nil {
			writeError(w, err)
			return
		}
		helpers.WriteJSON(w, http.StatusOK, snap)
	}
}

// parseListQuery maps query parameters onto the field set: text and exact
// fields by name, range fields as <name>From and <name>To. Any other key
// except page and size is rejected.
func parseListQuery[T any](fields []listview.Field[T], q url.Values) (map[string]listview.Value, listview.PageState, error) {
	known := map[string]bool{"page": true, "size": true}
	filters := make(map[string]listview.Value, len(fields))

	for _, f := range fields {
		if f.Kind == listview.KindRange {
			known[f.Name+"From"], known[f.Name+"To"] = true, true
			if val := listview.Between(q.Get(f.Name+"From"), q.Get(f.Name+"To")); !val.IsZero() {
				filters[f.Name] = val
			}
			continue
		}
		known[f.Name] = true
		if s := q.Get(f.Name); s != "" {
			filters[f.Name] = listview.Text(s)
		}
	}

	for key := range q {
		if !known[key] {
			return nil, listview.PageState{}, fmt.Errorf("%w: %q", listview.ErrUnknownField, key)
		}
	}

	var page listview.PageState
	var err error
	if page.Index, err = intParam(q, "page"); err != nil {
		return nil, page, err
	}
	if page.Size, err = intParam(q, "size"); err != nil {
		return nil, page, err
	}
	return filters, page, nil
}

func intParam(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", listview.ErrInvalidValue, key)
	}
	return n, nil
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		helpers.HttpError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, h.svc.Summary())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login opens the remote session and warms every collection. The browser
// gets a dashboard session cookie back.
func (h *DashboardHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	missing := map[string]string{}
	if strings.TrimSpace(req.Email) == "" {
		missing["email"] = "campo obrigatório"
	}
	if req.Password == "" {
		missing["password"] = "campo obrigatório"
	}
	if len(missing) > 0 {
		helpers.HttpErrorWith(w, http.StatusBadRequest, "validation failed", map[string]any{"fields": missing})
		return
	}
	if err := h.session.Login(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.LoadAll(r.Context()); err != nil {
		logger.Warn("initial load after login incomplete", "err", err)
	}
	h.sessions.open(w)
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *DashboardHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		logger.Warn("remote logout failed", "err", err)
	}
	h.sessions.close(w, r)
	w.WriteHeader(http.StatusNoContent)
}

type orderNoteRequest struct {
	Descricao string `json:"descricao"`
}

type orderFinalizeRequest struct {
	Resolucao string `json:"resolucao"`
}

func (h *DashboardHandler) AddOrderUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req orderNoteRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.svc.AddOrderUpdate(r.Context(), id, req.Descricao); err != nil {
		writeError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, map[string]any{"status": "ok", "id": id})
}

func (h *DashboardHandler) FinalizeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req orderFinalizeRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.svc.FinalizeOrder(r.Context(), id, req.Resolucao); err != nil {
		writeError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": id})
}
