package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"lokal/internal/translation/models"
	"lokal/pkg/platform/httputil"
	"lokal/pkg/requestcontext"
)

// Service defines the translation operations the handler needs.
type Service interface {
	List(ctx context.Context) ([]*models.TextResource, error)
	ListSids(ctx context.Context) ([]string, error)
	Get(ctx context.Context, sid string) (*models.TextResource, error)
	Create(ctx context.Context, sid, defaultText string) (*models.TextResource, error)
	UpdateTranslation(ctx context.Context, sid, langID, text string) error
	Delete(ctx context.Context, sid string) error
}

// Handler wires the translation API to the translation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts translation endpoints on r. Callers apply bearer auth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/translations", h.HandleList)
	r.Post("/api/translations", h.HandleCreate)
	r.Get("/api/translations/sids", h.HandleListSids)
	r.Get("/api/translations/{sid}", h.HandleGet)
	r.Put("/api/translations/{sid}/{langId}", h.HandleUpdate)
	r.Delete("/api/translations/{sid}", h.HandleDelete)
}

// HandleList handles GET /api/translations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resources, err := h.service.List(ctx)
	if err != nil {
		h.fail(ctx, w, "list text resources failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResources(resources))
}

// HandleListSids handles GET /api/translations/sids.
func (h *Handler) HandleListSids(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sids, err := h.service.ListSids(ctx)
	if err != nil {
		h.fail(ctx, w, "list sids failed", err)
		return
	}
	if sids == nil {
		sids = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, sids)
}

// HandleGet handles GET /api/translations/{sid}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.service.Get(ctx, chi.URLParam(r, "sid"))
	if err != nil {
		h.fail(ctx, w, "get text resource failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResource(res))
}

// HandleCreate handles POST /api/translations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Create(ctx, req.Sid, req.DefaultText)
	if err != nil {
		h.fail(ctx, w, "create text resource failed", err)
		return
	}

	h.logger.InfoContext(ctx, "text resource created",
		"request_id", requestID,
		"sid", res.Sid(),
		"subject", requestcontext.Subject(ctx),
	)
	w.Header().Set("Location", "/api/translations/"+url.PathEscape(res.Sid()))
	httputil.WriteJSON(w, http.StatusCreated, FromResource(res))
}

// HandleUpdate handles PUT /api/translations/{sid}/{langId}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	sid := chi.URLParam(r, "sid")
	langID := chi.URLParam(r, "langId")

	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.UpdateTranslation(ctx, sid, langID, *req.Text); err != nil {
		h.fail(ctx, w, "update translation failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /api/translations/{sid}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Delete(ctx, chi.URLParam(r, "sid")); err != nil {
		h.fail(ctx, w, "delete text resource failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
