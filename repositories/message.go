//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"synergy/domain"
	"synergy/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	messagePrefix      = "msg:"
	messageSequenceKey = "seq:msg"
	sequenceBandwidth  = 1000
)

// IMessageRepository is the append-only chat log.
type IMessageRepository interface {
	StoreMessage(message domain.Message) (domain.Message, error)
	GetMessages(projectID string) ([]domain.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
	now           func() time.Time

	mu  sync.Mutex
	seq *badger.Sequence
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages, now: time.Now}
}

// WithClock replaces the time source used to stamp messages.
func (m *MessageRepository) WithClock(now func() time.Time) *MessageRepository {
	m.now = now
	return m
}

type diskMessage struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	At        time.Time `json:"at"`
	Sequence  uint64    `json:"seq"`
}

// StoreMessage assigns the message id, timestamp and sequence, then persists it.
// The key is "msg:{project}:{unix_nano_padded}:{sequence_padded}" so that a prefix
// scan returns a project's messages by timestamp, ties broken by insertion order.
func (m *MessageRepository) StoreMessage(message domain.Message) (domain.Message, error) {
	if err := checkKeyPart(message.ProjectID); err != nil {
		return domain.Message{}, err
	}
	seq, err := m.nextSequence()
	if err != nil {
		return domain.Message{}, fmt.Errorf("sequence: %w", err)
	}

	message.ID = uuid.NewString()
	message.Timestamp = m.now().UTC().Truncate(time.Millisecond)
	message.Sequence = seq

	bytes, err := json.Marshal(fromDomainMessage(message))
	if err != nil {
		return domain.Message{}, err
	}
	key := fmt.Sprintf("%s%s:%019d:%020d", messagePrefix, message.ProjectID, message.Timestamp.UnixNano(), seq)
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// GetMessages returns the project's log in ascending order.
// With limitMessages set, only the most recent messages are kept.
func (m *MessageRepository) GetMessages(projectID string) ([]domain.Message, error) {
	if err := checkKeyPart(projectID); err != nil {
		return nil, err
	}
	var diskMessages []diskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix + projectID + ":")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Newest first, so that the limit keeps the tail of the conversation
		for it.Seek(append(slices.Clone(prefix), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(diskMessages) == *m.limitMessages {
				m.log.Debug("Maximum of messages reached", "limit", *m.limitMessages, "project_id", projectID)
				break
			}
			var dm diskMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &dm)
			})
			if err != nil {
				return err
			}
			diskMessages = append(diskMessages, dm)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(diskMessages)
	return lo.Map(diskMessages, func(item diskMessage, _ int) domain.Message {
		return toDomainMessage(item)
	}), nil
}

// Close releases the leased sequence range.
func (m *MessageRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq == nil {
		return nil
	}
	err := m.seq.Release()
	m.seq = nil
	return err
}

// nextSequence lazily leases the sequence so that read-only databases can still be scanned.
func (m *MessageRepository) nextSequence() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq == nil {
		seq, err := m.db.GetSequence([]byte(messageSequenceKey), sequenceBandwidth)
		if err != nil {
			return 0, err
		}
		m.seq = seq
	}
	return m.seq.Next()
}

func checkKeyPart(id string) error {
	if id == "" || strings.ContainsAny(id, ":\xff") {
		return errors.ErrInvalidStoreKey
	}
	return nil
}

func fromDomainMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:        message.ID,
		ProjectID: message.ProjectID,
		UserID:    message.UserID,
		Username:  message.Username,
		Content:   message.Content,
		At:        message.Timestamp,
		Sequence:  message.Sequence,
	}
}

func toDomainMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:        dm.ID,
		ProjectID: dm.ProjectID,
		UserID:    dm.UserID,
		Username:  dm.Username,
		Content:   dm.Content,
		Timestamp: dm.At.UTC(),
		Sequence:  dm.Sequence,
	}
}
