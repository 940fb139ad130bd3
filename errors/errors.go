package errors

import "fmt"

// Admission failures. Each one closes the connection after a single error event.
var (
	ErrAuthenticationRequired = fmt.Errorf("Authentication required")
	ErrInvalidCredential      = fmt.Errorf("Invalid or expired token")
	ErrIdentityNotFound       = fmt.Errorf("User not found")
	ErrProjectIDRequired      = fmt.Errorf("Project ID required")
	ErrProjectNotFound        = fmt.Errorf("Project not found")
	ErrNotAuthorized          = fmt.Errorf("Not authorized to access this project chat")
	ErrConnectionFailed       = fmt.Errorf("Connection failed")
)

// In-session send failures, reported through the acknowledgment only.
var (
	ErrSendFailed      = fmt.Errorf("failed to save message")
	ErrInvalidPayload  = fmt.Errorf("invalid message payload")
	ErrEmptyContent    = fmt.Errorf("Message content is required")
	ErrContentTooLong  = fmt.Errorf("Message content is too long")
	ErrUnknownEvent    = fmt.Errorf("unknown event")
	ErrInvalidStoreKey = fmt.Errorf("identifier contains a reserved character")
)

// Account and project management.
var (
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrInvalidRequest     = fmt.Errorf("invalid request")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrAlreadyMember      = fmt.Errorf("user is already a member of this project")
	ErrNotOwner           = fmt.Errorf("only the project owner can manage members")
	ErrHistoryForbidden   = fmt.Errorf("Not authorized to view messages for this project")
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")
)
