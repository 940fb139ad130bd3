package channel

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"

	"synergy/domain"
	"synergy/errors"
	"synergy/repositories"
)

// Guard decides whether an identity may join a project conversation.
// The same rule protects history backfill.
type Guard struct {
	projects repositories.IProjectRepository
}

func NewGuard(projects repositories.IProjectRepository) *Guard {
	return &Guard{projects: projects}
}

// Authorize admits owners and members, nobody else.
// It fails with ErrProjectIDRequired, ErrProjectNotFound or ErrNotAuthorized.
func (g *Guard) Authorize(ctx context.Context, identity domain.Identity, projectID string) (domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return domain.Project{}, err
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return domain.Project{}, errors.ErrProjectIDRequired
	}

	project, err := g.projects.GetProject(projectID)
	if err != nil {
		if goerrors.Is(err, errors.ErrProjectNotFound) {
			return domain.Project{}, errors.ErrProjectNotFound
		}
		return domain.Project{}, fmt.Errorf("project lookup failed: %w", err)
	}
	if !project.IsMember(identity) {
		return domain.Project{}, errors.ErrNotAuthorized
	}
	return project, nil
}
