package payments

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scolaria/scolaria/internal/platform/httpx"
	"github.com/scolaria/scolaria/internal/pricing"
	"github.com/scolaria/scolaria/internal/receipts"
)

// Handler exposes payment recording and reporting endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	renderer  *receipts.Renderer
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		renderer:  receipts.NewRenderer(),
	}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.record)
	r.Post("/preview", h.preview)
	r.Get("/{id}", h.show)
	r.Get("/{id}/receipt", h.receipt)
	r.Get("/student/{studentID}", h.listByStudent)
	r.Get("/student/{studentID}/outstanding", h.outstanding)
}

type recordRequest struct {
	StudentID             int64   `json:"student_id" validate:"required,gt=0"`
	SchoolYear            string  `json:"school_year" validate:"required"`
	Method                string  `json:"method" validate:"required,oneof=CASH TRANSFER CHEQUE MOBILE"`
	Note                  string  `json:"note" validate:"max=500"`
	TrancheIDs            []int64 `json:"tranche_ids" validate:"required,min=1,dive,gt=0"`
	ApplyBlanketReduction bool    `json:"apply_blanket_reduction"`
	ApplyScholarship      bool    `json:"apply_scholarship"`
	ApplyGlobalDiscount   bool    `json:"apply_global_discount"`
	PaidAt                string  `json:"paid_at"`
}

type previewRequest struct {
	StudentID             int64   `json:"student_id" validate:"required,gt=0"`
	TrancheIDs            []int64 `json:"tranche_ids" validate:"required,min=1,dive,gt=0"`
	ApplyBlanketReduction bool    `json:"apply_blanket_reduction"`
	ApplyScholarship      bool    `json:"apply_scholarship"`
	ApplyGlobalDiscount   bool    `json:"apply_global_discount"`
	AsOf                  string  `json:"as_of"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	paidAt, ok := parseOptionalTime(req.PaidAt)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "paid_at must be RFC3339")
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		StudentID:  req.StudentID,
		SchoolYear: req.SchoolYear,
		Method:     req.Method,
		Note:       req.Note,
		TrancheIDs: req.TrancheIDs,
		Flags: pricing.Flags{
			ApplyBlanketReduction: req.ApplyBlanketReduction,
			ApplyScholarship:      req.ApplyScholarship,
			ApplyGlobalDiscount:   req.ApplyGlobalDiscount,
		},
		PaidAt:         paidAt,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.logger.Error("record payment failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	asOf, ok := parseOptionalTime(req.AsOf)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be RFC3339")
		return
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	quotes, err := h.service.Preview(r.Context(), req.StudentID, req.TrancheIDs, pricing.Flags{
		ApplyBlanketReduction: req.ApplyBlanketReduction,
		ApplyScholarship:      req.ApplyScholarship,
		ApplyGlobalDiscount:   req.ApplyGlobalDiscount,
	}, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotes)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment ID")
		return
	}
	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment ID")
		return
	}
	lines, err := h.service.ReceiptLines(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, line := range lines {
		if _, err := w.Write([]byte(h.renderer.Render(line) + "\n")); err != nil {
			return
		}
	}
}

func (h *Handler) listByStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student ID")
		return
	}
	payments, err := h.service.ListByStudent(r.Context(), studentID, r.URL.Query().Get("school_year"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) outstanding(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student ID")
		return
	}
	dues, err := h.service.Outstanding(r.Context(), studentID, r.URL.Query().Get("school_year"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dues)
}

func parseOptionalTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func validationDetail(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}
