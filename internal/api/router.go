// Package api exposes the caseload service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/caseload-router/internal/assign"
	"github.com/sells-group/caseload-router/internal/caseload"
	"github.com/sells-group/caseload-router/internal/metrics"
	"github.com/sells-group/caseload-router/internal/model"
)

// Service is the caseload behavior the router serves. *caseload.Service
// satisfies it.
type Service interface {
	ListPatients(ctx context.Context, clusterID *int) ([]model.Patient, error)
	ListStaff(ctx context.Context) ([]model.Staff, error)
	ProposeAssignments(ctx context.Context) (assign.Proposal, error)
	SaveAssignments(ctx context.Context, rows []caseload.AssignmentInput) (int, error)
	AddPatient(ctx context.Context, in caseload.PatientInput) (*model.Patient, error)
	AddStaff(ctx context.Context, in caseload.StaffInput) (*model.Staff, error)
	ProcessUnassigned(ctx context.Context) (int, error)
	BackfillStaff(ctx context.Context) (caseload.BackfillResult, error)
	StaffLoads(ctx context.Context) ([]model.StaffLoad, error)
	MapFeatures(ctx context.Context) (*geojson.FeatureCollection, error)
}

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	// CORSOrigins defaults to all origins when empty.
	CORSOrigins []string
	// RequestTimeout cancels the request context after the given duration.
	// Zero disables it.
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP handler. Every route is reachable both at the
// root and under /api.
func NewRouter(svc Service, opts RouterOptions) http.Handler {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}

	h := &handlers{svc: svc}
	r.Get("/health", h.health)
	r.Handle("/metrics", metrics.Handler())

	r.Group(h.mount)
	r.Route("/api", h.mount)

	return r
}

func (h *handlers) mount(r chi.Router) {
	r.Get("/patients", h.listPatients)
	r.Get("/staff", h.listStaff)
	r.Get("/assignments", h.assignments)
	r.Get("/staff-loads", h.staffLoads)
	r.Get("/map", h.mapFeatures)

	r.Post("/save-assignments", h.saveAssignments)
	r.Post("/add-patient", h.addPatient)
	r.Post("/add-staff", h.addStaff)
	r.Post("/process-unassigned-patients", h.processUnassigned)
	r.Post("/geocode-staff", h.geocodeStaff)
}
