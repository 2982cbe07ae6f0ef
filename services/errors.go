package services

import (
	"errors"
	"fmt"

	"github.com/cppla/bbsforum/repository"
)

var (
	// ErrEntityNotFound reports a lookup miss, including soft-deleted rows.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrInvalidValue is the parent of every business rule violation below.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidToken reports an invalid, expired or unknown refresh token.
	ErrInvalidToken = errors.New("invalid token")
)

// invalidValueError is a named business rule violation that matches ErrInvalidValue.
type invalidValueError struct {
	msg string
}

func (e *invalidValueError) Error() string { return e.msg }
func (e *invalidValueError) Unwrap() error { return ErrInvalidValue }

func invalidValue(msg string) error {
	return &invalidValueError{msg: msg}
}

var (
	ErrPasswordMismatch  = invalidValue("password and confirmation do not match")
	ErrWrongPassword     = invalidValue("wrong password")
	ErrDuplicateUsername = invalidValue("username already in use")
	ErrDuplicateNickname = invalidValue("nickname already in use")
	ErrNotOwner          = invalidValue("not the writer")
	ErrAccessDenied      = invalidValue("access denied")
	ErrAuthNotCompleted  = invalidValue("email verification not completed")
	ErrEmailAuthFailed   = invalidValue("email verification failed, a new link was sent")
	ErrFileTooLarge      = invalidValue("file too large")
)

// notFound translates repository misses into ErrEntityNotFound and passes other errors through.
func notFound(err error, entity string, key any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %v: %w", entity, key, ErrEntityNotFound)
	}
	return err
}

// required reports an empty mandatory field as an invalid value.
func required(field string) error {
	return fmt.Errorf("%s is required: %w", field, ErrInvalidValue)
}
