package services

import (
	goerrors "errors"
	"fmt"
	"strings"

	"synergy/auth"
	"synergy/domain"
	"synergy/errors"
	"synergy/repositories"
)

type IAuthService interface {
	Register(name, email, password string) (AuthResult, error)
	Login(email, password string) (AuthResult, error)
	Me(userID string) (domain.Identity, error)
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string          `json:"token"`
	User  domain.Identity `json:"user"`
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.Tokens
	params         auth.PasswordParams
}

func NewAuthService(repo repositories.IUserRepository, tokens *auth.Tokens, params auth.PasswordParams) *AuthService {
	return &AuthService{userRepository: repo, tokens: tokens, params: params}
}

func (s *AuthService) Register(name, email, password string) (AuthResult, error) {
	valReq := auth.RegisterRequest{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	}

	// Business rules first, before any expensive hashing
	if err := auth.ValidateRegister(valReq); err != nil {
		return AuthResult{}, err
	}

	hashedPassword, err := auth.HashPassword(password, s.params)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(valReq.Name, valReq.Email, hashedPassword)
	if err != nil {
		return AuthResult{}, err // ErrUserAlreadyExists when the email is taken
	}

	return s.issue(user)
}

func (s *AuthService) Login(email, password string) (AuthResult, error) {
	if err := auth.ValidateLogin(auth.LoginRequest{Email: strings.TrimSpace(email), Password: password}); err != nil {
		return AuthResult{}, err
	}

	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Same answer for unknown users and wrong passwords
		return AuthResult{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return AuthResult{}, errors.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *AuthService) Me(userID string) (domain.Identity, error) {
	user, err := s.userRepository.GetUserByID(userID)
	if err != nil {
		if goerrors.Is(err, errors.ErrIdentityNotFound) {
			return domain.Identity{}, errors.ErrIdentityNotFound
		}
		return domain.Identity{}, err
	}
	return user.Identity(), nil
}

func (s *AuthService) issue(user repositories.User) (AuthResult, error) {
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return AuthResult{}, errors.ErrTokenGeneration
	}
	return AuthResult{Token: token, User: user.Identity()}, nil
}
