package transporthttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veriloc/internal/consent"
	"veriloc/pkg/domain"
	"veriloc/pkg/platform/httputil"
)

type consentHandler struct {
	service *consent.Service
	logger  *slog.Logger
}

func (h *consentHandler) Register(r chi.Router) {
	r.Post("/consents", h.grant)
	r.Post("/consents/revoke", h.revoke)
	r.Get("/subjects/{subjectID}/consents", h.list)
}

type grantRequest struct {
	SubjectID  string   `json:"subject_id"`
	Purposes   []string `json:"purposes"`
	TTLSeconds int64    `json:"ttl_seconds"`
}

type consentView struct {
	ID        string     `json:"id"`
	Purpose   string     `json:"purpose"`
	GrantedAt time.Time  `json:"granted_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	Active    bool       `json:"active"`
}

func (h *consentHandler) grant(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[grantRequest](w, r, h.logger)
	if !ok {
		return
	}
	subjectID, err := domain.ParseSubjectID(req.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	purposes := make([]domain.TrackingPurpose, 0, len(req.Purposes))
	for _, raw := range req.Purposes {
		p, err := domain.ParseTrackingPurpose(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		purposes = append(purposes, p)
	}

	records, err := h.service.Grant(r.Context(), subjectID, purposes, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"consents": toViews(records)})
}

type revokeRequest struct {
	SubjectID string `json:"subject_id"`
	Purpose   string `json:"purpose"`
}

func (h *consentHandler) revoke(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[revokeRequest](w, r, h.logger)
	if !ok {
		return
	}
	subjectID, err := domain.ParseSubjectID(req.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	purpose, err := domain.ParseTrackingPurpose(req.Purpose)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Revoke(r.Context(), subjectID, purpose); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *consentHandler) list(w http.ResponseWriter, r *http.Request) {
	subjectID, err := domain.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.service.List(r.Context(), subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"consents": toViews(records)})
}

func toViews(records []consent.Record) []consentView {
	now := time.Now()
	views := make([]consentView, 0, len(records))
	for _, rec := range records {
		views = append(views, consentView{
			ID:        rec.ID.String(),
			Purpose:   rec.Purpose.String(),
			GrantedAt: rec.GrantedAt,
			ExpiresAt: rec.ExpiresAt,
			RevokedAt: rec.RevokedAt,
			Active:    rec.IsActive(now),
		})
	}
	return views
}
