package scholarships

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/scolaria/scolaria/internal/platform/httpx"
)

// Handler manages scholarship registry endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers scholarship routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/offers", h.createOffer)
	r.Get("/offers/{id}", h.getOffer)
	r.Put("/offers/{id}", h.updateOffer)
	r.Delete("/offers/{id}", h.deleteOffer)
	r.Get("/offers/class/{classID}", h.listOffersByClass)
	r.Post("/grants", h.award)
	r.Get("/grants/student/{studentID}", h.listGrantsByStudent)
}

func (h *Handler) createOffer(w http.ResponseWriter, r *http.Request) {
	var input OfferInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	offer, err := h.service.CreateOffer(r.Context(), input)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, offer)
}

func (h *Handler) getOffer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid offer ID")
		return
	}
	offer, err := h.service.GetOffer(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, offer)
}

func (h *Handler) updateOffer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid offer ID")
		return
	}
	var input OfferInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.UpdateOffer(r.Context(), id, input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) deleteOffer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid offer ID")
		return
	}
	if err := h.service.DeleteOffer(r.Context(), id); err != nil {
		if errors.Is(err, ErrOfferInUse) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "offer still has grants")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) listOffersByClass(w http.ResponseWriter, r *http.Request) {
	classID, err := strconv.ParseInt(chi.URLParam(r, "classID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid class ID")
		return
	}
	offers, err := h.service.ListOffersByClass(r.Context(), classID)
	if err != nil {
		h.logger.Error("list offers failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, offers)
}

func (h *Handler) award(w http.ResponseWriter, r *http.Request) {
	var input GrantInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	grant, err := h.service.Award(r.Context(), input)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, grant)
}

func (h *Handler) listGrantsByStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student ID")
		return
	}
	grants, err := h.service.ListGrantsByStudent(r.Context(), studentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grants)
}
