package tariffs

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/scolaria/scolaria/internal/platform/httpx"
)

// Handler manages tariff catalog endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers tariff catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/tranches", h.listTranches)
	r.Post("/tranches", h.createTranche)
	r.Get("/tranches/{id}", h.getTranche)
	r.Put("/tranches/{id}", h.updateTranche)
	r.Put("/tariffs", h.setTariff)
	r.Get("/tariffs/class/{classID}", h.listTariffsByClass)
	r.Delete("/tariffs/{id}", h.deleteTariff)
}

func (h *Handler) listTranches(w http.ResponseWriter, r *http.Request) {
	tranches, err := h.service.ListTranches(r.Context())
	if err != nil {
		h.logger.Error("list tranches failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tranches)
}

func (h *Handler) createTranche(w http.ResponseWriter, r *http.Request) {
	var input TrancheInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	tranche, err := h.service.CreateTranche(r.Context(), input)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, tranche)
}

func (h *Handler) getTranche(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid tranche ID")
		return
	}
	tranche, err := h.service.GetTranche(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tranche)
}

func (h *Handler) updateTranche(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid tranche ID")
		return
	}
	var input TrancheInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.UpdateTranche(r.Context(), id, input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) setTariff(w http.ResponseWriter, r *http.Request) {
	var input TariffInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	entry, err := h.service.SetTariff(r.Context(), input)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) listTariffsByClass(w http.ResponseWriter, r *http.Request) {
	classID, err := strconv.ParseInt(chi.URLParam(r, "classID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid class ID")
		return
	}
	entries, err := h.service.ListTariffsByClass(r.Context(), classID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) deleteTariff(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid tariff ID")
		return
	}
	if err := h.service.DeleteTariff(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}
