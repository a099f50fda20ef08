package server

import (
	"net/http"

	"github.com/kidandcat/portfolio/internal/model"
	"github.com/kidandcat/portfolio/internal/validate"
)

// Backlogs

func (s *Server) handleCreateBacklog(w http.ResponseWriter, r *http.Request) {
	var in model.BacklogInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if res := validate.BacklogForm(in); !res.IsValid {
		writeFieldErrors(w, http.StatusBadRequest, map[string][]string{"title": {res.Message}})
		return
	}
	b, err := s.store.CreateBacklog(r.Context(), in)
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleBacklogsByProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid project id")
		return
	}
	list, err := s.store.BacklogsByProject(r.Context(), id)
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetBacklog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	b, err := s.store.Backlog(r.Context(), id)
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBacklog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var in model.BacklogInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validate.Required(in.Title) {
		writeFieldErrors(w, http.StatusBadRequest, map[string][]string{"title": {validate.MsgRequired}})
		return
	}
	b, err := s.store.UpdateBacklog(r.Context(), id, in)
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBacklog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if err := s.store.DeleteBacklog(r.Context(), id); err != nil {
		s.writeDBError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderBacklog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var order []model.OrderEntry
	if err := decode(r, &order); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := s.store.ReorderStories(r.Context(), id, order); err != nil {
		s.writeDBError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// User stories

func (s *Server) handleListUserStories(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectId")
	backlogID, ok2 := pathID(r, "backlogId")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	stories, err := s.store.ProjectUserStories(r.Context(), projectID, backlogID)
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stories)
}

func (s *Server) handleCreateUserStory(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectId")
	backlogID, ok2 := pathID(r, "backlogId")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var in model.UserStoryInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if fields := storyFieldErrors(in); len(fields) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, fields)
		return
	}
	st, err := s.store.CreateUserStory(r.Context(), projectID, backlogID, in)
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleUpdateUserStory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var in model.UserStoryInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if fields := storyFieldErrors(in); len(fields) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, fields)
		return
	}
	st, err := s.store.UpdateUserStory(r.Context(), id, in)
	if err != nil {
		s.writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteUserStory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if err := s.store.DeleteUserStory(r.Context(), id); err != nil {
		s.writeDBError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func storyFieldErrors(in model.UserStoryInput) map[string][]string {
	fields := map[string][]string{}
	if !validate.Required(in.Title) {
		fields["Title"] = []string{"Title is required"}
	}
	if in.Points < 0 {
		fields["points"] = []string{"Points must not be negative"}
	}
	return fields
}
