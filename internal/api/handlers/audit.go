package handlers

import (
	"net/http"
	"strconv"

	"github.com/khata-app/khata-backend/internal/api/httpx"
	repo "github.com/khata-app/khata-backend/internal/repository"
)

type AuditHandler struct {
	Logs repo.AuditLogs
}

func NewAuditHandler(logs repo.AuditLogs) *AuditHandler {
	return &AuditHandler{Logs: logs}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	logs, err := h.Logs.List(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, logs)
}
