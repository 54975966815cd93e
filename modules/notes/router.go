package notes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantconfig"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// Router creates the notes router. Note routes require an ambient tenant;
// category routes serve shared data and work without one.
//
// Example:
//
//	svc := notes.NewService(factory, notes.WithPublisher(pub))
//
//	r := chi.NewRouter()
//	r.Use(tenant.Middleware(tenant.NewHeaderResolver(""), identifier))
//	r.Mount("/notes", notes.Router(svc, log))
func Router(svc *Service, log *slog.Logger) chi.Router {
	if log == nil {
		log = slog.Default()
	}
	h := &handlers{svc: svc, logger: log}

	r := chi.NewRouter()
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Post("/", h.createCategory)
	})
	r.Group(func(r chi.Router) {
		r.Use(tenant.RequireTenant(nil))
		r.Get("/", h.listNotes)
		r.Post("/", h.createNote)
		r.Get("/activity", h.listActivity)
		r.Get("/{id}", h.getNote)
		r.Delete("/{id}", h.deleteNote)
	})
	return r
}

type handlers struct {
	svc    *Service
	logger *slog.Logger
}

func (h *handlers) listNotes(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListNotes(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) createNote(w http.ResponseWriter, r *http.Request) {
	var in CreateNoteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	note, err := h.svc.CreateNote(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *handlers) getNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.GetNote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *handlers) deleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listActivity(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListActivity(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var in Category
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "notes request failed", logger.Error(err))
		writeError(w, status, http.StatusText(status))
		return
	}
	writeError(w, status, err.Error())
}

// StatusCode maps service and isolation errors to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrUnknownCategory),
		errors.Is(err, tenantdb.ErrInvalidEntity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tenantdb.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tenantdb.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, tenantdb.ErrMissingTenantContext),
		errors.Is(err, tenant.ErrNoTenantInContext):
		return http.StatusBadRequest
	case errors.Is(err, tenantdb.ErrTenantMismatch):
		return http.StatusForbidden
	case errors.Is(err, tenantconfig.ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
