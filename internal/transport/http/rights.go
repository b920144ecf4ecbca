package transporthttp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veriloc/internal/rights"
	"veriloc/pkg/domain"
	"veriloc/pkg/platform/httputil"
)

type rightsHandler struct {
	service *rights.Service
	logger  *slog.Logger
}

func (h *rightsHandler) Register(r chi.Router) {
	r.Get("/subjects/{subjectID}/export", h.export)
	r.Delete("/subjects/{subjectID}", h.erase)
}

func (h *rightsHandler) export(w http.ResponseWriter, r *http.Request) {
	subjectID, err := domain.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	export, err := h.service.ExportSubjectData(r.Context(), subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, export)
}

func (h *rightsHandler) erase(w http.ResponseWriter, r *http.Request) {
	subjectID, err := domain.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.EraseSubjectData(r.Context(), subjectID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "erased"})
}
