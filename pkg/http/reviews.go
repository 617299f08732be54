package http

import (
	"net/http"
	"strconv"

	"burnshare/pkg/security"
	"burnshare/pkg/service"

	"github.com/go-chi/render"
)

func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req service.CreateReviewRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, &service.ValidationError{Err: errInvalidBody})
		return
	}

	review, err := h.reviews.Create(r.Context(), &req, security.ClientIP(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, render.M{"success": true, "review": review})
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	var rating *int
	if raw := r.URL.Query().Get("rating"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 5 {
			h.writeError(w, r, &service.ValidationError{Err: service.ErrInvalidRating})
			return
		}
		rating = &n
	}

	page, err := h.reviews.List(r.Context(),
		queryInt(r, "limit", service.DefaultReviewLimit),
		queryInt(r, "offset", 0),
		rating,
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"success": true, "reviews": page.Reviews, "pagination": page.Pagination})
}

func (h *Handler) ReviewStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reviews.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, render.M{"success": true, "stats": stats})
}
