package http

import (
	"bytes"
	"fmt"
	"net/http"

	"tripledger/internal/core"
	"tripledger/internal/export"
	"tripledger/internal/log"
)

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	periods := s.ledger.ListPeriods(r.Context())
	if periods == nil {
		periods = []core.Period{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"periods": periods})
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var sub core.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sub.Comment = sanitizeInput(sub.Comment)
	sub.Period = sub.Period.Canonical()

	if err := sub.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !s.saveBatch(r, sub) {
		writeError(w, http.StatusInternalServerError, "failed to save data")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
}

// saveBatch inserts through the service and drops the cached settlement.
func (s *Server) saveBatch(r *http.Request, sub core.Submission) bool {
	if !s.ledger.Insert(r.Context(), sub) {
		return false
	}
	s.invalidateSettlement(sub.Period)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Batch saved",
		log.NewFields().
			WithOperation(log.OpInsert).
			WithPeriod(sub.Period.String()).
			ToSlice()...)
	return true
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	p, err := periodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.getSettlement(r.Context(), p)
	if err != nil {
		writeSettlementError(w, r, p, log.OpSettle, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p, err := periodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.getSettlement(r.Context(), p)
	if err != nil {
		writeSettlementError(w, r, p, log.OpExport, err)
		return
	}

	// Buffer so a rendering failure can still become a clean 500.
	var buf bytes.Buffer
	if err := export.Write(&buf, result, s.currency); err != nil {
		log.LogError(r.Context(), "Failed to render workbook", err, log.ComponentExport, log.OpExport, log.ErrorTypeInternal,
			log.NewFields().WithPeriod(p.String()))
		writeError(w, http.StatusInternalServerError, "failed to export period")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(p)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
