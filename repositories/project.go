//go:generate go run go.uber.org/mock/mockgen -source=project.go -destination=../mocks/mock_project_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"time"

	"synergy/domain"
	"synergy/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const projectPrefix = "project:"

type IProjectRepository interface {
	CreateProject(project domain.Project) (domain.Project, error)
	GetProject(id string) (domain.Project, error)
	AddMember(projectID, email string) (domain.Project, error)
}

type ProjectRepository struct {
	db *badger.DB
}

func NewProjectRepository(db *badger.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

type diskProject struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	OwnerEmail  string    `json:"owner_email"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateProject assigns an id and creation date, members are deduplicated.
func (p *ProjectRepository) CreateProject(project domain.Project) (domain.Project, error) {
	project.ID = uuid.NewString()
	project.CreatedAt = time.Now().UTC()
	project.OwnerEmail = domain.NormalizeEmail(project.OwnerEmail)
	project.Members = lo.Uniq(lo.Map(project.Members, func(m string, _ int) string {
		return domain.NormalizeEmail(m)
	}))

	err := p.db.Update(func(txn *badger.Txn) error {
		return putProject(txn, project)
	})
	if err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

func (p *ProjectRepository) GetProject(id string) (domain.Project, error) {
	if checkKeyPart(id) != nil {
		return domain.Project{}, errors.ErrProjectNotFound
	}
	var dp diskProject
	err := p.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, projectPrefix+id, &dp)
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Project{}, errors.ErrProjectNotFound
	}
	if err != nil {
		return domain.Project{}, err
	}
	return toDomainProject(dp), nil
}

// AddMember appends email to the member list; owner and existing members are rejected.
func (p *ProjectRepository) AddMember(projectID, email string) (domain.Project, error) {
	if checkKeyPart(projectID) != nil {
		return domain.Project{}, errors.ErrProjectNotFound
	}
	email = domain.NormalizeEmail(email)
	var project domain.Project
	err := p.db.Update(func(txn *badger.Txn) error {
		var dp diskProject
		if err := getJSON(txn, projectPrefix+projectID, &dp); err != nil {
			return err
		}
		project = toDomainProject(dp)
		if project.IsMember(domain.Identity{Email: email}) {
			return errors.ErrAlreadyMember
		}
		project.Members = append(project.Members, email)
		return putProject(txn, project)
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Project{}, errors.ErrProjectNotFound
	}
	if err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

func putProject(txn *badger.Txn, project domain.Project) error {
	data, err := json.Marshal(fromDomainProject(project))
	if err != nil {
		return err
	}
	return txn.Set([]byte(projectPrefix+project.ID), data)
}

func fromDomainProject(p domain.Project) diskProject {
	return diskProject{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		OwnerEmail:  p.OwnerEmail,
		Members:     p.Members,
		CreatedAt:   p.CreatedAt,
	}
}

func toDomainProject(dp diskProject) domain.Project {
	return domain.Project{
		ID:          dp.ID,
		Title:       dp.Title,
		Description: dp.Description,
		OwnerID:     dp.OwnerID,
		OwnerEmail:  dp.OwnerEmail,
		Members:     dp.Members,
		CreatedAt:   dp.CreatedAt.UTC(),
	}
}
