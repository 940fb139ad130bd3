//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"synergy/domain"
	"synergy/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	userPrefix      = "user:"
	userEmailPrefix = "user-email:"
)

type IUserRepository interface {
	CreateUser(name, email, hashedPassword string) (User, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// User is the stored account. Only Identity() leaves the account layer.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u User) Identity() domain.Identity {
	return domain.Identity{ID: u.ID, Name: u.Name, Email: u.Email}
}

// CreateUser persists the user and its email index in one transaction.
func (u *UserRepository) CreateUser(name, email, hashedPassword string) (User, error) {
	user := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        domain.NormalizeEmail(email),
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte(userEmailPrefix + user.Email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set([]byte(userPrefix+user.ID), data); err != nil {
			return err
		}
		return txn.Set(emailKey, []byte(user.ID))
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userEmailPrefix + domain.NormalizeEmail(email)))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, userPrefix+string(id), &user)
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.ErrIdentityNotFound
	}
	return user, err
}

func (u *UserRepository) GetUserByID(id string) (User, error) {
	if id == "" {
		return User{}, errors.ErrIdentityNotFound
	}
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userPrefix+id, &user)
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.ErrIdentityNotFound
	}
	return user, err
}

func getJSON(txn *badger.Txn, key string, target any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, target)
	})
}
