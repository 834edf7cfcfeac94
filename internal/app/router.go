package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/scolaria/scolaria/internal/discounts"
	"github.com/scolaria/scolaria/internal/masterdata/classes"
	"github.com/scolaria/scolaria/internal/masterdata/students"
	"github.com/scolaria/scolaria/internal/observability"
	"github.com/scolaria/scolaria/internal/payments"
	"github.com/scolaria/scolaria/internal/scholarships"
	"github.com/scolaria/scolaria/internal/tariffs"
	"github.com/scolaria/scolaria/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	ClassesHandler      *classes.Handler
	StudentsHandler     *students.Handler
	TariffsHandler      *tariffs.Handler
	ScholarshipsHandler *scholarships.Handler
	DiscountsHandler    *discounts.Handler
	PaymentsHandler     *payments.Handler
	JobsHandler         *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with Scolaria defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.ClassesHandler != nil {
		r.Route("/classes", params.ClassesHandler.MountRoutes)
	}
	if params.StudentsHandler != nil {
		r.Route("/students", params.StudentsHandler.MountRoutes)
	}
	if params.TariffsHandler != nil {
		r.Route("/tariffs", params.TariffsHandler.MountRoutes)
	}
	if params.ScholarshipsHandler != nil {
		r.Route("/scholarships", params.ScholarshipsHandler.MountRoutes)
	}
	if params.DiscountsHandler != nil {
		r.Route("/discounts", params.DiscountsHandler.MountRoutes)
	}
	if params.PaymentsHandler != nil {
		r.Route("/payments", params.PaymentsHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
