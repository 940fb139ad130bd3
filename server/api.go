package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"synergy/domain"
	"synergy/domain/event"
	"synergy/errors"
	"synergy/services"

	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"
)

const maxBodySize = 1 << 20

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type projectResponse struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	OwnerID     string   `json:"ownerId"`
	OwnerEmail  string   `json:"ownerEmail"`
	Members     []string `json:"members"`
	CreatedAt   string   `json:"createdAt"`
}

type processResponse struct {
	RSS           uint64  `json:"rss"`
	CPU           float64 `json:"cpu"`
	MemoryPercent float32 `json:"memoryPercent"`
}

type healthResponse struct {
	Status      string          `json:"status"`
	Message     string          `json:"message"`
	Timestamp   string          `json:"timestamp"`
	Connections int             `json:"connections"`
	Process     processResponse `json:"process"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityHandler func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, identity domain.Identity)

// authenticated resolves the x-auth-token or Bearer credential before calling next.
func (s *Server) authenticated(next identityHandler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		identity, err := s.channel.Authenticate(r.Context(), headerCredential(r))
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, ps, identity)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	snapshot := s.health.Snapshot()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "OK",
		Message:     "Synergy server is running",
		Timestamp:   event.FormatTimestamp(s.now()),
		Connections: snapshot.Connections,
		Process: processResponse{
			RSS:           snapshot.RSS,
			CPU:           snapshot.CPU,
			MemoryPercent: snapshot.MemoryPercent,
		},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body registerRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.authService.Register(body.Name, body.Email, body.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuthResponse(result))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body loginRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.authService.Login(body.Email, body.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, identity domain.Identity) {
	writeJSON(w, http.StatusOK, toUserResponse(identity))
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request, _ httprouter.Params, identity domain.Identity) {
	var body services.CreateProjectRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	project, err := s.projectService.Create(identity, body.Title, body.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectResponse(project))
}

func (s *Server) handleGetProject(w http.ResponseWriter, _ *http.Request, ps httprouter.Params, identity domain.Identity) {
	project, err := s.projectService.Get(identity, ps.ByName("projectId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(project))
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params, identity domain.Identity) {
	var body services.AddMemberRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	project, err := s.projectService.AddMember(identity, ps.ByName("projectId"), body.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(project))
}

// handleHistory is the backfill: the full log, oldest first, in the broadcast shape.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, ps httprouter.Params, identity domain.Identity) {
	messages, err := s.chatService.History(r.Context(), identity, ps.ByName("projectId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) event.MessagePayload {
		return event.NewMessagePayload(m)
	}))
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errors.NotFoundRoute())
}

func (s *Server) handlePanic(w http.ResponseWriter, r *http.Request, v any) {
	s.log.Error("Handler panicked", "path", r.URL.Path, "panic", v)
	s.writeError(w, fmt.Errorf("panic: %v", v))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	apiErr := errors.ToAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		s.log.Error("Request failed", "error", err)
	}
	writeJSON(w, apiErr.Status, apiErr)
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return errors.BadRequest("Invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func toUserResponse(identity domain.Identity) userResponse {
	return userResponse{ID: identity.ID, Name: identity.Name, Email: identity.Email}
}

func toAuthResponse(result services.AuthResult) authResponse {
	return authResponse{Token: result.Token, User: toUserResponse(result.User)}
}

func toProjectResponse(p domain.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		OwnerEmail:  p.OwnerEmail,
		Members:     lo.Ternary(p.Members == nil, []string{}, p.Members),
		CreatedAt:   event.FormatTimestamp(p.CreatedAt),
	}
}
