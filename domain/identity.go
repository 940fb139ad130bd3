// Package domain contains core concepts of the chat system.
// This file defines the Identity consumed by the realtime channel.
// No runtime, network, or UI logic should be added here.
package domain

// Identity is the resolved user behind a credential.
// Email is the key used for project membership.
type Identity struct {
	ID    string
	Name  string
	Email string
}
