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

func (s *Server) loadFee(r *http.Request) (interface{}, error) {
	return s.repos.Fees.GetByID(r.Context(), mux.Vars(r)["id"])
}

// listFees returns a student's fees; the student_id query parameter is
// required because fees are always student-scoped
func (s *Server) listFees(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	if studentID == "" {
		httputil.WriteValidationError(w, "student_id query parameter is required")
		return
	}
	fees, err := s.repos.Fees.ListByStudent(r.Context(), studentID)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to list fees"))
		return
	}
	httputil.WriteSuccess(w, fees)
}

type feePayload struct {
	StudentID   string    `json:"student_id"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	Paid        bool      `json:"paid"`
}

func (p *feePayload) validate() error {
	if p.AmountCents <= 0 {
		return errors.New("amount_cents must be positive")
	}
	if p.Description == "" {
		return errors.New("description is required")
	}
	if p.DueDate.IsZero() {
		return errors.New("due_date is required")
	}
	return nil
}

func (s *Server) createFee(w http.ResponseWriter, r *http.Request) {
	var payload feePayload
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

	fee := &school.Fee{
		ID:          uuid.NewString(),
		StudentID:   payload.StudentID,
		AmountCents: payload.AmountCents,
		Description: payload.Description,
		DueDate:     payload.DueDate,
	}
	if err := s.repos.Fees.Create(r.Context(), fee); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to create fee"))
		return
	}
	httputil.WriteCreated(w, fee)
}

func (s *Server) getFee(w http.ResponseWriter, r *http.Request) {
	fee, ok := contextkeys.GetResource(r.Context()).(*school.Fee)
	if !ok {
		httputil.WriteInternalError(w, errors.New("fee not loaded"))
		return
	}
	httputil.WriteSuccess(w, fee)
}

func (s *Server) updateFee(w http.ResponseWriter, r *http.Request) {
	fee, ok := contextkeys.GetResource(r.Context()).(*school.Fee)
	if !ok {
		httputil.WriteInternalError(w, errors.New("fee not loaded"))
		return
	}

	var payload feePayload
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if err := payload.validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	fee.AmountCents = payload.AmountCents
	fee.Description = payload.Description
	fee.DueDate = payload.DueDate
	if payload.Paid && !fee.Paid {
		now := time.Now()
		fee.PaidAt = &now
	}
	if !payload.Paid {
		fee.PaidAt = nil
	}
	fee.Paid = payload.Paid

	if err := s.repos.Fees.Update(r.Context(), fee); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to update fee"))
		return
	}
	httputil.WriteSuccess(w, fee)
}

func (s *Server) deleteFee(w http.ResponseWriter, r *http.Request) {
	if err := s.repos.Fees.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, school.ErrNotFound) {
			httputil.WriteNotFoundError(w, "fee not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to delete fee"))
		return
	}
	httputil.WriteNoContent(w)
}
