package email

import (
	"errors"
	"fmt"
	"time"
)

// Envelope holds the parsed envelope data from an IMAP message.
type Envelope struct {
	MessageID string
	Subject   string
	From      string
	Date      time.Time
	UID       uint32
}

// ParsedMessage holds the full parsed content of an email message.
type ParsedMessage struct {
	Envelope Envelope
	TextBody string
	HTMLBody string
}

// AuthError indicates that IMAP authentication failed. The CLI reports it
// to the user and exits without retrying.
type AuthError struct {
	Server  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Server, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
