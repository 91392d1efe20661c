// Package errors defines the failure taxonomy of the messaging core.
// Every terminal error wraps exactly one kind sentinel so callers and the
// transport layer can classify failures without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Kind sentinels. Operations return errors wrapping one of these.
var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrDependency    = errors.New("dependency failure")
)

// Stable leaf errors, each attached to its kind.
var (
	ErrChatNotFound    = fmt.Errorf("%w: chat", ErrNotFound)
	ErrGroupNotFound   = fmt.Errorf("%w: group", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("%w: message", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)
	ErrStatusNotFound  = fmt.Errorf("%w: status", ErrNotFound)

	ErrAlreadyMember     = fmt.Errorf("%w: already a member of this group", ErrConflict)
	ErrAlreadyRequested  = fmt.Errorf("%w: join request already sent", ErrConflict)
	ErrUserAlreadyExists = fmt.Errorf("%w: user with this email, username or mobile already exists", ErrConflict)
	ErrUsernameTaken     = fmt.Errorf("%w: username already taken", ErrConflict)

	ErrAdminsOnly   = fmt.Errorf("%w: admins only", ErrAuthorization)
	ErrNotMember    = fmt.Errorf("%w: not a member of this chat", ErrAuthorization)
	ErrNotSender    = fmt.Errorf("%w: only the sender may delete this message", ErrAuthorization)
	ErrInvalidToken = fmt.Errorf("%w: invalid access token", ErrAuthorization)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrAuthorization)
	ErrInvalidPassword    = fmt.Errorf("%w: password does not meet complexity requirements", ErrValidation)
	ErrTokenGeneration    = errors.New("token generation failed")

	ErrWorkerPanic       = errors.New("worker panic")
	ErrSessionBufferFull = fmt.Errorf("%w: session buffer full", ErrDependency)
)

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Dependencyf wraps a collaborator failure (storage, notifier) with context.
func Dependencyf(cause error, format string, args ...any) error {
	args = append([]any{ErrDependency}, args...)
	args = append(args, cause)
	return fmt.Errorf("%w: "+format+": %w", args...)
}

// Kind reports the stable kind name of an error, or "internal" when the
// error carries no kind. The transport layer maps these to status codes.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAuthorization):
		return "authorization"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrDependency):
		return "dependency"
	default:
		return "internal"
	}
}
