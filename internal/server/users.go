package server

import (
	"errors"
	"net/http"

	"github.com/kidandcat/portfolio/internal/db"
	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/validate"
)

// userFieldErrors validates a user payload field by field. The password is
// only checked when create is set.
func userFieldErrors(in model.UserInput, create bool) map[string][]string {
	fields := map[string][]string{}
	if !validate.Required(in.FirstName) {
		fields["firstName"] = append(fields["firstName"], "First name is required")
	}
	if !validate.Required(in.LastName) {
		fields["lastName"] = append(fields["lastName"], "Last name is required")
	}
	switch {
	case !validate.Required(in.Email):
		fields["email"] = append(fields["email"], "Email is required")
	case !validate.Email(in.Email):
		fields["email"] = append(fields["email"], validate.MsgInvalidEmail)
	}
	if create && len(in.Password) < validate.MinPasswordLength {
		fields["password"] = append(fields["password"], validate.MsgPasswordLength)
	}
	return fields
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.Users(r.Context())
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	rs, err := s.store.Roles(r.Context())
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in model.UserInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if fields := userFieldErrors(in, true); len(fields) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, fields)
		return
	}
	u, err := s.store.CreateUser(r.Context(), in)
	if err != nil {
		s.writeUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var in model.UserInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	fields := userFieldErrors(in, false)
	if in.Password != "" && len(in.Password) < validate.MinPasswordLength {
		fields["password"] = append(fields["password"], validate.MsgPasswordLength)
	}
	if len(fields) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, fields)
		return
	}
	u, err := s.store.UpdateUser(r.Context(), id, in)
	if err != nil {
		s.writeUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := decode(r, &req); err != nil || req.IsActive == nil {
		writeFieldErrors(w, http.StatusBadRequest, map[string][]string{"isActive": {"isActive is required"}})
		return
	}
	if me, _ := currentUser(r); me.ID == id && !*req.IsActive {
		writeError(w, http.StatusBadRequest, "You cannot deactivate your own account")
		return
	}
	u, err := s.store.SetUserActive(r.Context(), id, *req.IsActive)
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if me, _ := currentUser(r); me.ID == id {
		writeError(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}
	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.writeDBError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeUserError reports a duplicate email as a field error.
func (s *Server) writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, db.ErrConflict) {
		writeFieldErrors(w, http.StatusConflict, map[string][]string{"email": {validate.MsgEmailTaken}})
		return
	}
	s.writeDBError(w, r, err)
}
