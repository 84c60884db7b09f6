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

// loadStudent is the resource loader for id-scoped student routes
func (s *Server) loadStudent(r *http.Request) (interface{}, error) {
	return s.repos.Students.GetByID(r.Context(), mux.Vars(r)["id"])
}

func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.repos.Students.List(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to list students"))
		return
	}
	httputil.WriteSuccess(w, students)
}

type studentPayload struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Grade     int    `json:"grade"`
}

func (p *studentPayload) validate() error {
	if p.FirstName == "" || p.LastName == "" {
		return errors.New("first_name and last_name are required")
	}
	if p.Grade < 1 || p.Grade > 13 {
		return errors.New("grade must be between 1 and 13")
	}
	return nil
}

func (s *Server) createStudent(w http.ResponseWriter, r *http.Request) {
	var payload studentPayload
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if err := payload.validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	student := &school.Student{
		ID:         uuid.NewString(),
		UserID:     payload.UserID,
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Grade:      payload.Grade,
		EnrolledAt: time.Now(),
	}
	if err := s.repos.Students.Create(r.Context(), student); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to create student"))
		return
	}
	httputil.WriteCreated(w, student)
}

func (s *Server) getStudent(w http.ResponseWriter, r *http.Request) {
	student, ok := contextkeys.GetResource(r.Context()).(*school.Student)
	if !ok {
		httputil.WriteInternalError(w, errors.New("student not loaded"))
		return
	}
	httputil.WriteSuccess(w, student)
}

func (s *Server) updateStudent(w http.ResponseWriter, r *http.Request) {
	student, ok := contextkeys.GetResource(r.Context()).(*school.Student)
	if !ok {
		httputil.WriteInternalError(w, errors.New("student not loaded"))
		return
	}

	var payload studentPayload
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if err := payload.validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	student.FirstName = payload.FirstName
	student.LastName = payload.LastName
	student.Grade = payload.Grade
	if err := s.repos.Students.Update(r.Context(), student); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to update student"))
		return
	}
	httputil.WriteSuccess(w, student)
}

func (s *Server) deleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := s.repos.Students.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, school.ErrNotFound) {
			httputil.WriteNotFoundError(w, "student not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to delete student"))
		return
	}
	httputil.WriteNoContent(w)
}
