package channel

import (
	goerrors "errors"

	"synergy/domain/event"
	"synergy/errors"
)

// SendResult is the outcome of one send, correlated to it by the caller.
// Exactly one of MessageID and Err is set.
type SendResult struct {
	MessageID string
	Err       error
}

func Succeeded(messageID string) SendResult {
	return SendResult{MessageID: messageID}
}

func Failed(err error) SendResult {
	return SendResult{Err: err}
}

func (r SendResult) OK() bool {
	return r.Err == nil
}

// Ack renders the result for the sender. Storage details never reach the client.
func (r SendResult) Ack() event.AckPayload {
	if r.OK() {
		return event.AckPayload{Success: true, MessageID: r.MessageID}
	}
	return event.AckPayload{Success: false, Error: publicSendError(r.Err)}
}

func publicSendError(err error) string {
	for _, known := range []error{errors.ErrEmptyContent, errors.ErrContentTooLong, errors.ErrInvalidPayload, errors.ErrUnknownEvent} {
		if goerrors.Is(err, known) {
			return known.Error()
		}
	}
	return errors.ErrSendFailed.Error()
}

// AdmissionMessage is the text of the single error event sent before a forced disconnect.
func AdmissionMessage(err error) string {
	for _, known := range []error{
		errors.ErrAuthenticationRequired,
		errors.ErrInvalidCredential,
		errors.ErrIdentityNotFound,
		errors.ErrProjectIDRequired,
		errors.ErrProjectNotFound,
		errors.ErrNotAuthorized,
	} {
		if goerrors.Is(err, known) {
			return known.Error()
		}
	}
	return errors.ErrConnectionFailed.Error()
}
