package discounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scolaria/scolaria/internal/platform/httpx"
)

// Handler manages discount policy endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers discount policy routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/policy", h.getPolicy)
	r.Put("/policy", h.updatePolicy)
}

func (h *Handler) getPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.service.Current(r.Context())
	if err != nil {
		h.logger.Error("get discount policy failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, policy)
}

func (h *Handler) updatePolicy(w http.ResponseWriter, r *http.Request) {
	var input PolicyInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	policy, err := h.service.Update(r.Context(), input)
	if err != nil {
		h.logger.Error("update discount policy failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, policy)
}
