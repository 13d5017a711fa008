package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/caseload-router/internal/caseload"
	"github.com/sells-group/caseload-router/internal/model"
	"github.com/sells-group/caseload-router/internal/store"
)

// maxBodyBytes caps request payloads; save batches are the largest.
const maxBodyBytes = 4 << 20

type handlers struct {
	svc Service
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps service errors to status codes. Internal failures
// are logged and masked.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *caseload.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, caseload.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, context.DeadlineExceeded):
		// An expired request deadline is answered by the timeout middleware.
		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			zap.L().Warn("api: request timed out",
				zap.String("path", r.URL.Path),
				zap.String("request_id", requestID(r)),
			)
			return
		}
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		zap.L().Debug("api: request canceled", zap.String("path", r.URL.Path))
	default:
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listPatients(w http.ResponseWriter, r *http.Request) {
	var clusterID *int
	if raw := r.URL.Query().Get("cluster_id"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "cluster_id must be an integer")
			return
		}
		clusterID = &v
	}

	patients, err := h.svc.ListPatients(r.Context(), clusterID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if patients == nil {
		patients = []model.Patient{}
	}
	writeJSON(w, http.StatusOK, patients)
}

func (h *handlers) listStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.svc.ListStaff(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if staff == nil {
		staff = []model.Staff{}
	}
	writeJSON(w, http.StatusOK, staff)
}

func (h *handlers) assignments(w http.ResponseWriter, r *http.Request) {
	proposal, err := h.svc.ProposeAssignments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if proposal == nil {
		proposal = map[int]string{}
	}
	writeJSON(w, http.StatusOK, proposal)
}

func (h *handlers) saveAssignments(w http.ResponseWriter, r *http.Request) {
	var rows []caseload.AssignmentInput
	if !decode(w, r, &rows) {
		return
	}
	n, err := h.svc.SaveAssignments(r.Context(), rows)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "updated": n})
}

func (h *handlers) addPatient(w http.ResponseWriter, r *http.Request) {
	var in caseload.PatientInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.svc.AddPatient(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":        "Patient added",
		"id":             p.ID,
		"name":           p.Name,
		"assigned_staff": p.AssignedStaff,
	})
}

func (h *handlers) addStaff(w http.ResponseWriter, r *http.Request) {
	var in caseload.StaffInput
	if !decode(w, r, &in) {
		return
	}
	st, err := h.svc.AddStaff(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Staff added",
		"id":      st.ID,
		"name":    st.Name,
	})
}

func (h *handlers) processUnassigned(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ProcessUnassigned(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"processed": n})
}

func (h *handlers) geocodeStaff(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.BackfillStaff(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) staffLoads(w http.ResponseWriter, r *http.Request) {
	loads, err := h.svc.StaffLoads(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if loads == nil {
		loads = []model.StaffLoad{}
	}
	writeJSON(w, http.StatusOK, loads)
}

func (h *handlers) mapFeatures(w http.ResponseWriter, r *http.Request) {
	fc, err := h.svc.MapFeatures(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
