package services

import (
	"fmt"
	"strings"
	"time"

	"synergy/auth"
	"synergy/domain"
	"synergy/errors"
	"synergy/repositories"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type IProjectService interface {
	Create(owner domain.Identity, title, description string) (domain.Project, error)
	Get(identity domain.Identity, projectID string) (domain.Project, error)
	AddMember(owner domain.Identity, projectID, email string) (domain.Project, error)
}

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

// AddMemberRequest is the body of POST /api/projects/:projectId/members.
type AddMemberRequest struct {
	Email string `json:"email"`
}

type ProjectService struct {
	projectRepository repositories.IProjectRepository
	now               func() time.Time
}

func NewProjectService(repo repositories.IProjectRepository) *ProjectService {
	return &ProjectService{projectRepository: repo, now: time.Now}
}

// Create makes the caller the owner of a new project.
func (s *ProjectService) Create(owner domain.Identity, title, description string) (domain.Project, error) {
	valReq := CreateProjectRequest{Title: strings.TrimSpace(title), Description: strings.TrimSpace(description)}
	if err := validate.Struct(valReq); err != nil {
		return domain.Project{}, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}
	return s.projectRepository.CreateProject(domain.Project{
		Title:       valReq.Title,
		Description: valReq.Description,
		OwnerID:     owner.ID,
		OwnerEmail:  domain.NormalizeEmail(owner.Email),
		CreatedAt:   s.now().UTC(),
	})
}

// Get returns the project to its owner and members only.
func (s *ProjectService) Get(identity domain.Identity, projectID string) (domain.Project, error) {
	project, err := s.projectRepository.GetProject(projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !project.IsMember(identity) {
		return domain.Project{}, errors.ErrNotAuthorized
	}
	return project, nil
}

// AddMember grants chat access to an email. Only the owner may do it.
func (s *ProjectService) AddMember(owner domain.Identity, projectID, email string) (domain.Project, error) {
	if err := auth.ValidateEmail(strings.TrimSpace(email)); err != nil {
		return domain.Project{}, err
	}
	project, err := s.projectRepository.GetProject(projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !project.IsOwner(owner) {
		return domain.Project{}, errors.ErrNotOwner
	}
	return s.projectRepository.AddMember(project.ID, email)
}
