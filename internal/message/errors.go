package message

import (
	"fmt"

	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
)

type MessageErrorCause string

const (
	ErrCauseMalformed      MessageErrorCause = "malformed message"
	ErrCauseUnknownCommand MessageErrorCause = "unknown command"
)

type MessageError struct {
	Message string
	Cause   MessageErrorCause
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("message error: %s: %s", e.Cause, e.Message)
}

// Severity is recoverable: a bad message never affects interception.
func (e *MessageError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *MessageError) Is(target error) bool {
	t, ok := target.(*MessageError)
	if !ok {
		return false
	}
	return t.Cause == e.Cause
}
