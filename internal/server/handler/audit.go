package handler

import (
	"log/slog"
	"net/http"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// AuditHandler serves the audit trail read endpoint.
type AuditHandler struct {
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(audit domain.AuditStore, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logHandler(logger, "audit"),
	}
}

type auditListResponse struct {
	Entries []auditEntryDTO `json:"entries"`
}

// List returns audit entries, newest first.
// GET /api/admin/audit
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit list failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to list audit entries")
		return
	}

	writeJSON(w, http.StatusOK, auditListResponse{Entries: toAuditEntryDTOs(entries)})
}
