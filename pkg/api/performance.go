package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/edushield/edushield/pkg/contextkeys"
	"github.com/edushield/edushield/pkg/httputil"
	"github.com/edushield/edushield/pkg/school"
)

func (s *Server) loadPerformance(r *http.Request) (interface{}, error) {
	return s.repos.Performance.GetByID(r.Context(), mux.Vars(r)["id"])
}

// listPerformance returns a student's performance records; student-scoped
// like fees
func (s *Server) listPerformance(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	if studentID == "" {
		httputil.WriteValidationError(w, "student_id query parameter is required")
		return
	}
	records, err := s.repos.Performance.ListByStudent(r.Context(), studentID)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to list performance records"))
		return
	}
	httputil.WriteSuccess(w, records)
}

type performancePayload struct {
	StudentID string  `json:"student_id"`
	Subject   string  `json:"subject"`
	Term      string  `json:"term"`
	Score     float64 `json:"score"`
	Comments  string  `json:"comments"`
}

func (p *performancePayload) validate() error {
	if p.Subject == "" || p.Term == "" {
		return errors.New("subject and term are required")
	}
	if p.Score < 0 || p.Score > 100 {
		return errors.New("score must be between 0 and 100")
	}
	return nil
}

func (s *Server) createPerformance(w http.ResponseWriter, r *http.Request) {
	var payload performancePayload
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if payload.StudentID == "" {
		httputil.WriteValidationError(w, "student_id is required")
		return
	}
	if err := payload.validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	record := &school.PerformanceRecord{
		ID:         uuid.NewString(),
		StudentID:  payload.StudentID,
		Subject:    payload.Subject,
		Term:       payload.Term,
		Score:      payload.Score,
		Comments:   payload.Comments,
		RecordedAt: time.Now(),
	}
	if err := s.repos.Performance.Create(r.Context(), record); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to create performance record"))
		return
	}
	httputil.WriteCreated(w, record)
}

func (s *Server) getPerformance(w http.ResponseWriter, r *http.Request) {
	record, ok := contextkeys.GetResource(r.Context()).(*school.PerformanceRecord)
	if !ok {
		httputil.WriteInternalError(w, errors.New("performance record not loaded"))
		return
	}
	httputil.WriteSuccess(w, record)
}

func (s *Server) updatePerformance(w http.ResponseWriter, r *http.Request) {
	record, ok := contextkeys.GetResource(r.Context()).(*school.PerformanceRecord)
	if !ok {
		httputil.WriteInternalError(w, errors.New("performance record not loaded"))
		return
	}

	var payload performancePayload
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if err := payload.validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	record.Subject = payload.Subject
	record.Term = payload.Term
	record.Score = payload.Score
	record.Comments = payload.Comments
	if err := s.repos.Performance.Update(r.Context(), record); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to update performance record"))
		return
	}
	httputil.WriteSuccess(w, record)
}

func (s *Server) deletePerformance(w http.ResponseWriter, r *http.Request) {
	if err := s.repos.Performance.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, school.ErrNotFound) {
			httputil.WriteNotFoundError(w, "performance record not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to delete performance record"))
		return
	}
	httputil.WriteNoContent(w)
}
