package transporthttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veriloc/internal/verification"
	"veriloc/pkg/domain"
	dErrors "veriloc/pkg/domain-errors"
	"veriloc/pkg/platform/httputil"
)

type verifyHandler struct {
	service *verification.Service
	monitor *verification.Monitor
	logger  *slog.Logger
}

func (h *verifyHandler) Register(r chi.Router) {
	r.Post("/verify", h.verify)
	r.Post("/monitoring/start", h.startMonitoring)
	r.Post("/monitoring/stop", h.stopMonitoring)
	r.Post("/subjects/{subjectID}/emergency", h.recordEmergency)
}

type verifyRequest struct {
	SubjectID string   `json:"subject_id"`
	Purpose   string   `json:"purpose"`
	TargetIDs []string `json:"target_ids"`
}

type verifyResponse struct {
	Status         string  `json:"status"`
	TargetID       string  `json:"target_id,omitempty"`
	Contained      *bool   `json:"contained,omitempty"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
	AccuracyBucket string  `json:"accuracy_bucket,omitempty"`
}

func (h *verifyHandler) verify(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[verifyRequest](w, r, h.logger)
	if !ok {
		return
	}
	subjectID, purpose, targetIDs, err := parseVerifyRequest(req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.service.Verify(r.Context(), subjectID, purpose, targetIDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	switch outcome.Kind {
	case verification.OutcomeConsentRequired:
		httputil.WriteError(w, dErrors.New(dErrors.CodeConsentRequired, "consent not granted for required purpose"))
	case verification.OutcomeCooldown:
		httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":               string(dErrors.CodeCooldownActive),
			"retry_after_seconds": int(outcome.Remaining.Seconds()),
		})
	case verification.OutcomeNotRelevant:
		httputil.WriteJSON(w, http.StatusOK, verifyResponse{Status: "not_relevant"})
	case verification.OutcomeUntrustedLocation:
		// Reason codes stay server-side: exposing which layer triggered would
		// teach spoofers which heuristic to evade next.
		httputil.WriteError(w, dErrors.New(dErrors.CodeUntrustedLocation, ""))
	case verification.OutcomeVerified:
		contained := outcome.Contained
		httputil.WriteJSON(w, http.StatusOK, verifyResponse{
			Status:         "verified",
			TargetID:       outcome.TargetID.String(),
			Contained:      &contained,
			DistanceMeters: outcome.DistanceMeters,
			AccuracyBucket: string(outcome.Bucket),
		})
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, ""))
	}
}

func (h *verifyHandler) startMonitoring(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[verifyRequest](w, r, h.logger)
	if !ok {
		return
	}
	subjectID, purpose, targetIDs, err := parseVerifyRequest(req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.monitor.Start(r.Context(), subjectID, purpose, targetIDs); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "monitoring"})
}

type stopMonitoringRequest struct {
	SubjectID string `json:"subject_id"`
}

func (h *verifyHandler) stopMonitoring(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[stopMonitoringRequest](w, r, h.logger)
	if !ok {
		return
	}
	subjectID, err := domain.ParseSubjectID(req.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.monitor.Stop(r.Context(), subjectID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (h *verifyHandler) recordEmergency(w http.ResponseWriter, r *http.Request) {
	subjectID, err := domain.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.service.RecordEmergency(r.Context(), subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"record_id":   record.ID.String(),
		"captured_at": record.CapturedAt.Format(time.RFC3339Nano),
	})
}

func parseVerifyRequest(req verifyRequest) (domain.SubjectID, domain.TrackingPurpose, []domain.TargetID, error) {
	subjectID, err := domain.ParseSubjectID(req.SubjectID)
	if err != nil {
		return domain.SubjectID{}, "", nil, err
	}
	purpose, err := domain.ParseTrackingPurpose(req.Purpose)
	if err != nil {
		return domain.SubjectID{}, "", nil, err
	}
	targetIDs := make([]domain.TargetID, 0, len(req.TargetIDs))
	for _, raw := range req.TargetIDs {
		id, err := domain.ParseTargetID(raw)
		if err != nil {
			return domain.SubjectID{}, "", nil, err
		}
		targetIDs = append(targetIDs, id)
	}
	return subjectID, purpose, targetIDs, nil
}
