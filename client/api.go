package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"synergy/domain/event"
)

// APIError is a failed REST call as reported by the server.
type APIError struct {
	Status  int
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Auth struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Project struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	OwnerID     string   `json:"ownerId"`
	OwnerEmail  string   `json:"ownerEmail"`
	Members     []string `json:"members"`
	CreatedAt   string   `json:"createdAt"`
}

// API calls the REST side of the server.
type API struct {
	base string
	http *http.Client
}

func NewAPI(addr string, httpClient *http.Client) *API {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{base: strings.TrimSuffix(addr, "/"), http: httpClient}
}

func (a *API) Register(ctx context.Context, name, email, password string) (Auth, error) {
	var auth Auth
	body := map[string]string{"name": name, "email": email, "password": password}
	err := a.do(ctx, http.MethodPost, "/api/auth/register", "", body, &auth)
	return auth, err
}

func (a *API) Login(ctx context.Context, email, password string) (Auth, error) {
	var auth Auth
	body := map[string]string{"email": email, "password": password}
	err := a.do(ctx, http.MethodPost, "/api/auth/login", "", body, &auth)
	return auth, err
}

func (a *API) CreateProject(ctx context.Context, token, title, description string) (Project, error) {
	var project Project
	body := map[string]string{"title": title, "description": description}
	err := a.do(ctx, http.MethodPost, "/api/projects", token, body, &project)
	return project, err
}

func (a *API) AddMember(ctx context.Context, token, projectID, email string) (Project, error) {
	var project Project
	path := "/api/projects/" + url.PathEscape(projectID) + "/members"
	err := a.do(ctx, http.MethodPost, path, token, map[string]string{"email": email}, &project)
	return project, err
}

// History returns the conversation of projectID, oldest first.
func (a *API) History(ctx context.Context, token, projectID string) ([]event.MessagePayload, error) {
	var messages []event.MessagePayload
	path := "/api/messages/projects/" + url.PathEscape(projectID) + "/messages"
	err := a.do(ctx, http.MethodGet, path, token, nil, &messages)
	return messages, err
}

func (a *API) do(ctx context.Context, method, path, token string, body, target any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
