package auth

import (
	"strings"
	"testing"

	"synergy/errors"

	"github.com/stretchr/testify/require"
)

var testParams = PasswordParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MyPassw0rdIsStrong"

	hash, err := HashPassword(password, testParams)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Wrong password
	match, err = ComparePassword("WrongPassw0rd", hash)
	req.NoError(err)
	req.False(match)
}

func TestHash_Is_Salted(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("SamePassw0rd", testParams)
	req.NoError(err)
	second, err := HashPassword("SamePassw0rd", testParams)
	req.NoError(err)

	req.NotEqual(first, second)
}

func TestCompare_Rejects_Malformed_Hash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("whatever", "$bcrypt$nope")
	req.Error(err)

	_, err = ComparePassword("whatever", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"Valid request", RegisterRequest{"alice", "alice@x.com", "ComplexPass123"}, nil},
		{"Invalid email", RegisterRequest{"alice", "notanemail", "ComplexPass123"}, errors.ErrInvalidRequest},
		{"Missing name", RegisterRequest{"", "alice@x.com", "ComplexPass123"}, errors.ErrInvalidRequest},
		{"Password too short", RegisterRequest{"alice", "alice@x.com", "Sh0rt"}, errors.ErrInvalidRequest},
		{"Missing digit", RegisterRequest{"alice", "alice@x.com", "NoDigitPass"}, errors.ErrInvalidPassword},
		{"Missing uppercase", RegisterRequest{"alice", "alice@x.com", "nouppercase123"}, errors.ErrInvalidPassword},
		{"Password too long", RegisterRequest{"alice", "alice@x.com", strings.Repeat("aA1", 25)}, errors.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.req)
			if tt.wantErr == nil {
				req.NoError(err)
				return
			}
			req.ErrorIs(err, tt.wantErr)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	req := require.New(t)
	req.NoError(ValidateEmail("dave@x.com"))
	req.ErrorIs(ValidateEmail("dave"), errors.ErrInvalidRequest)
	req.ErrorIs(ValidateEmail(""), errors.ErrInvalidRequest)
}
