package services

import (
	"context"
	goerrors "errors"

	"synergy/channel"
	"synergy/domain"
	"synergy/errors"
	"synergy/repositories"
)

type IChatService interface {
	History(ctx context.Context, identity domain.Identity, projectID string) ([]domain.Message, error)
}

// ChatService serves the REST backfill of a project conversation.
// It applies the same admission rule as the realtime channel.
type ChatService struct {
	guard             *channel.Guard
	messageRepository repositories.IMessageRepository
}

func NewChatService(guard *channel.Guard, repo repositories.IMessageRepository) *ChatService {
	return &ChatService{guard: guard, messageRepository: repo}
}

// History returns the full log of the project, oldest first.
// Reading it twice without writes in between returns the same sequence.
func (s *ChatService) History(ctx context.Context, identity domain.Identity, projectID string) ([]domain.Message, error) {
	project, err := s.guard.Authorize(ctx, identity, projectID)
	if err != nil {
		if goerrors.Is(err, errors.ErrNotAuthorized) {
			return nil, errors.ErrHistoryForbidden
		}
		return nil, err
	}
	return s.messageRepository.GetMessages(project.ID)
}
