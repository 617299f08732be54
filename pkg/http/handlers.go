package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"burnshare/pkg/logging"
	"burnshare/pkg/metrics"
	"burnshare/pkg/middleware"
	"burnshare/pkg/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	shares  *service.ShareService
	reviews *service.ReviewService
	logger  *logging.Logger
}

func NewHandler(shares *service.ShareService, reviews *service.ReviewService, logger *logging.Logger) *Handler {
	return &Handler{shares: shares, reviews: reviews, logger: logger}
}

func (h *Handler) CreateShare(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := parseCreateRequest(w, r, h.shares.Config().MaxFileSize)
	defer cleanup()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.shares.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

func (h *Handler) RetrieveByPasscode(w http.ResponseWriter, r *http.Request) {
	payload, err := h.shares.RetrieveByPasscode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePayload(w, r, payload)
}

func (h *Handler) RetrieveBySlug(w http.ResponseWriter, r *http.Request) {
	payload, err := h.shares.RetrieveBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePayload(w, r, payload)
}

func (h *Handler) writePayload(w http.ResponseWriter, r *http.Request, payload *service.SharePayload) {
	w.Header().Set("Cache-Control", "no-store")
	render.JSON(w, r, payload)
}

// ServeFile streams a claimed share's blob. With delete=true the share is
// destroyed once the bytes have been written, even if the client went away.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	download, err := h.shares.OpenFile(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer download.Body.Close()

	destroy := r.URL.Query().Get("delete") == "true"
	disposition := "inline"
	if destroy {
		disposition = "attachment"
	}
	if download.FileName != "" {
		if withName := mime.FormatMediaType(disposition, map[string]string{"filename": download.FileName}); withName != "" {
			disposition = withName
		}
	}

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if download.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(download.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, download.Body); err != nil {
		h.logger.Warn(r.Context(), "file stream interrupted", "error", err)
	}

	if destroy {
		if err := h.shares.FinishDownload(context.WithoutCancel(r.Context()), key); err != nil {
			h.logger.Error(r.Context(), "failed to destroy downloaded share", "error", err)
		}
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, "OK")
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps service errors to status codes. Anything unexpected is
// logged and answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case service.IsValidation(err):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Error: service.ErrNotFound.Error()})
	default:
		h.logger.Error(r.Context(), "request failed", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: "Internal server error"})
	}
}

func SetupRoutes(r *chi.Mux, handler *Handler, corsOrigins []string) {
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.AccessLog(handler.logger))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{"Content-Disposition", middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/shares", handler.CreateShare)
		r.Get("/shares/by-passcode/{code}", handler.RetrieveByPasscode)
		r.Get("/shares/by-slug/{slug}", handler.RetrieveBySlug)
		r.Get("/files/{key}", handler.ServeFile)

		r.Post("/reviews", handler.CreateReview)
		r.Get("/reviews", handler.ListReviews)
		r.Get("/reviews/stats", handler.ReviewStats)
	})
}
