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

func (s *Server) loadFaculty(r *http.Request) (interface{}, error) {
	return s.repos.Faculty.GetByID(r.Context(), mux.Vars(r)["id"])
}

func (s *Server) listFaculty(w http.ResponseWriter, r *http.Request) {
	members, err := s.repos.Faculty.List(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to list faculty"))
		return
	}
	httputil.WriteSuccess(w, members)
}

type facultyPayload struct {
	UserID     string `json:"user_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Department string `json:"department"`
}

func (p *facultyPayload) validate() error {
	if p.FirstName == "" || p.LastName == "" {
		return errors.New("first_name and last_name are required")
	}
	if p.Department == "" {
		return errors.New("department is required")
	}
	return nil
}

func (s *Server) createFaculty(w http.ResponseWriter, r *http.Request) {
	var payload facultyPayload
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if err := payload.validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	member := &school.Faculty{
		ID:         uuid.NewString(),
		UserID:     payload.UserID,
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Department: payload.Department,
		HiredAt:    time.Now(),
	}
	if err := s.repos.Faculty.Create(r.Context(), member); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to create faculty member"))
		return
	}
	httputil.WriteCreated(w, member)
}

func (s *Server) getFaculty(w http.ResponseWriter, r *http.Request) {
	member, ok := contextkeys.GetResource(r.Context()).(*school.Faculty)
	if !ok {
		httputil.WriteInternalError(w, errors.New("faculty member not loaded"))
		return
	}
	httputil.WriteSuccess(w, member)
}

func (s *Server) updateFaculty(w http.ResponseWriter, r *http.Request) {
	member, ok := contextkeys.GetResource(r.Context()).(*school.Faculty)
	if !ok {
		httputil.WriteInternalError(w, errors.New("faculty member not loaded"))
		return
	}

	var payload facultyPayload
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if err := payload.validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	member.FirstName = payload.FirstName
	member.LastName = payload.LastName
	member.Department = payload.Department
	if err := s.repos.Faculty.Update(r.Context(), member); err != nil {
		httputil.WriteInternalError(w, errors.New("failed to update faculty member"))
		return
	}
	httputil.WriteSuccess(w, member)
}

func (s *Server) deleteFaculty(w http.ResponseWriter, r *http.Request) {
	if err := s.repos.Faculty.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, school.ErrNotFound) {
			httputil.WriteNotFoundError(w, "faculty member not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to delete faculty member"))
		return
	}
	httputil.WriteNoContent(w)
}
