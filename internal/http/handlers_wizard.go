package http

import (
	"errors"
	"net/http"

	"tripledger/internal/core"
	"tripledger/internal/log"
	"tripledger/internal/wizard"
)

type (
	wizardStartResponse struct {
		Session    wizard.View `json:"session"`
		Years      []int       `json:"years"`
		Months     []string    `json:"months"`
		Categories []string    `json:"categories"`
	}

	participantsRequest struct {
		Names []string `json:"names"`
	}
)

func (s *Server) handleWizardStart(w http.ResponseWriter, r *http.Request) {
	sess := wizard.NewSession(s.newID())
	s.sessions.Set(sess.ID(), sess)

	log.FromContext(r.Context()).WithComponent(log.ComponentWizard).InfoContext(r.Context(), "Wizard session started",
		log.FieldSessionID, sess.ID())

	categories := make([]string, len(core.Categories))
	for i, c := range core.Categories {
		categories[i] = c.String()
	}
	writeJSON(w, http.StatusCreated, wizardStartResponse{
		Session:    sess.View(),
		Years:      wizard.Years(s.now()),
		Months:     core.MonthNames(),
		Categories: categories,
	})
}

// session looks up the {id} session, answering 404 itself when it is gone.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleWizardView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleWizardDetails(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var d wizard.Details
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.SubmitDetails(d, s.now()); err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleWizardParticipants(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req participantsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for i := range req.Names {
		req.Names[i] = sanitizeInput(req.Names[i])
	}
	if err := sess.SubmitParticipants(req.Names); err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// handleWizardExpenses saves the finished entry and returns the session to
// step one. A failed save keeps the session where it was so it can be retried.
func (s *Server) handleWizardExpenses(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var e wizard.Expenses
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e.Comment = sanitizeInput(e.Comment)

	sub, err := sess.Submission(e)
	if err != nil {
		writeWizardError(w, err)
		return
	}
	if !s.saveBatch(r, sub) {
		writeError(w, http.StatusInternalServerError, "failed to save data")
		return
	}

	sess.Reset()
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "saved",
		"period":  sub.Period,
		"session": sess.View(),
	})
}

func writeWizardError(w http.ResponseWriter, err error) {
	if errors.Is(err, wizard.ErrWrongStep) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}
