package transporthttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veriloc/internal/geo"
	"veriloc/internal/location"
	"veriloc/pkg/domain"
	"veriloc/pkg/platform/httputil"
)

// ingestHandler accepts device-pushed fixes and motion samples. It feeds the
// in-memory push source only; nothing here persists raw data.
type ingestHandler struct {
	source *location.PushSource
	logger *slog.Logger
}

func (h *ingestHandler) Register(r chi.Router) {
	r.Post("/locations", h.report)
}

type reportRequest struct {
	SubjectID      string    `json:"subject_id"`
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	AccuracyMeters float64   `json:"accuracy_m"`
	AltitudeMeters float64   `json:"altitude_m"`
	CapturedAt     time.Time `json:"captured_at"`
	Mocked         bool      `json:"mocked"`
	Provider       string    `json:"provider"`
	Motion         []struct {
		Magnitude  float64   `json:"magnitude"`
		CapturedAt time.Time `json:"captured_at"`
	} `json:"motion,omitempty"`
}

func (h *ingestHandler) report(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[reportRequest](w, r, h.logger)
	if !ok {
		return
	}
	subjectID, err := domain.ParseSubjectID(req.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	point := geo.Point{Lat: req.Lat, Lon: req.Lon}
	if err := point.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	h.source.Report(subjectID, location.Sample{
		Point:          point,
		AccuracyMeters: req.AccuracyMeters,
		AltitudeMeters: req.AltitudeMeters,
		CapturedAt:     capturedAt,
		Mocked:         req.Mocked,
		Provider:       req.Provider,
	})

	if len(req.Motion) > 0 {
		samples := make([]location.MotionSample, 0, len(req.Motion))
		for _, m := range req.Motion {
			samples = append(samples, location.MotionSample{
				Magnitude:  m.Magnitude,
				CapturedAt: m.CapturedAt,
			})
		}
		h.source.ReportMotion(subjectID, samples...)
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
