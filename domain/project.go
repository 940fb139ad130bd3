package domain

import (
	"strings"
	"time"
)

// Project is a collaboration workspace with one owner and a set of members.
// Members are emails, unique, kept in insertion order.
type Project struct {
	ID          string
	Title       string
	Description string
	OwnerID     string
	OwnerEmail  string
	Members     []string
	CreatedAt   time.Time
}

// IsOwner reports whether identity owns the project.
func (p Project) IsOwner(identity Identity) bool {
	return identity.Email != "" && NormalizeEmail(identity.Email) == NormalizeEmail(p.OwnerEmail)
}

// IsMember reports whether identity may take part in the project conversation.
// Owner and members get the same rights.
func (p Project) IsMember(identity Identity) bool {
	if p.IsOwner(identity) {
		return true
	}
	email := NormalizeEmail(identity.Email)
	if email == "" {
		return false
	}
	for _, m := range p.Members {
		if NormalizeEmail(m) == email {
			return true
		}
	}
	return false
}

// NormalizeEmail lowercases and trims an email so that lookups are case insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
