package channel

import (
	"context"
	"fmt"
	"testing"

	"synergy/domain"
	"synergy/errors"
	"synergy/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestGuard_Authorize(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockProjects := mocks.NewMockIProjectRepository(ctrl)
	guard := NewGuard(mockProjects)
	ctx := context.Background()

	project := domain.Project{
		ID:         "P1",
		OwnerID:    "owner-id",
		OwnerEmail: "owner@x.com",
		Members:    []string{"bob@x.com"},
	}

	t.Run("should admit the owner", func(t *testing.T) {
		req := require.New(t)
		mockProjects.EXPECT().GetProject("P1").Return(project, nil).Times(1)

		got, err := guard.Authorize(ctx, domain.Identity{ID: "owner-id", Email: "owner@x.com"}, "P1")

		req.NoError(err)
		req.Equal("P1", got.ID)
	})

	t.Run("should admit a member whatever the email case", func(t *testing.T) {
		req := require.New(t)
		mockProjects.EXPECT().GetProject("P1").Return(project, nil).Times(1)

		_, err := guard.Authorize(ctx, domain.Identity{ID: "bob-id", Email: "Bob@X.com"}, " P1 ")

		req.NoError(err)
	})

	t.Run("should refuse a stranger", func(t *testing.T) {
		req := require.New(t)
		mockProjects.EXPECT().GetProject("P1").Return(project, nil).Times(1)

		_, err := guard.Authorize(ctx, domain.Identity{ID: "eve-id", Email: "eve@x.com"}, "P1")

		req.ErrorIs(err, errors.ErrNotAuthorized)
	})

	t.Run("should require a project id", func(t *testing.T) {
		req := require.New(t)
		mockProjects.EXPECT().GetProject(gomock.Any()).Times(0)

		_, err := guard.Authorize(ctx, domain.Identity{ID: "bob-id"}, "  ")

		req.ErrorIs(err, errors.ErrProjectIDRequired)
	})

	t.Run("should report a missing project", func(t *testing.T) {
		req := require.New(t)
		mockProjects.EXPECT().GetProject("nope").Return(domain.Project{}, errors.ErrProjectNotFound).Times(1)

		_, err := guard.Authorize(ctx, domain.Identity{ID: "bob-id"}, "nope")

		req.ErrorIs(err, errors.ErrProjectNotFound)
	})

	t.Run("should wrap a storage failure", func(t *testing.T) {
		req := require.New(t)
		mockProjects.EXPECT().GetProject("P1").Return(domain.Project{}, fmt.Errorf("disk on fire")).Times(1)

		_, err := guard.Authorize(ctx, domain.Identity{ID: "bob-id"}, "P1")

		req.Error(err)
		req.NotErrorIs(err, errors.ErrNotAuthorized)
		req.Contains(err.Error(), "project lookup failed")
	})
}
