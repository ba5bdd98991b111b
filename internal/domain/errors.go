package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a session, activity or player does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is returned when the store rejects an access.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotHost is returned when a non-host identity attempts a host transition.
	ErrNotHost = errors.New("caller is not the session host")
	// ErrUnsupportedQuestionType is returned by the handler registry for unknown type tags.
	ErrUnsupportedQuestionType = errors.New("unsupported question type")
	// ErrInvalidAnswer is returned when an answer payload does not match the question shape.
	ErrInvalidAnswer = errors.New("invalid answer payload")
	// ErrInvalidTransition is returned for a state change the lifecycle table does not allow.
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrSessionEnded is returned for operations against a terminal session.
	ErrSessionEnded = errors.New("session has ended")
	// ErrSubmissionsLocked is returned when a player submits after the host locked submissions.
	ErrSubmissionsLocked = errors.New("submissions are locked")
	// ErrSubmissionCap is returned when a player exceeds the per-player submission cap.
	ErrSubmissionCap = errors.New("submission cap reached")
	// ErrInvalidNickname is returned when a join nickname is empty after sanitizing.
	ErrInvalidNickname = errors.New("invalid nickname")
	// ErrNicknameTaken is returned when the nickname is already in use in the session.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrRemoteCompute is returned when a callable-function invocation fails.
	// Retryable: callers revert their phase transition and the host tries again.
	ErrRemoteCompute = errors.New("remote compute failed")
)

// ErrorClass buckets failures for uniform presentation.
type ErrorClass string

const (
	ClassValidation ErrorClass = "validation"
	ClassPermission ErrorClass = "permission"
	ClassNotFound   ErrorClass = "not_found"
	ClassRemote     ErrorClass = "remote"
	ClassInternal   ErrorClass = "internal"
)

// Classify maps an error to its class. Permission errors are kept
// distinguishable from generic store failures so every subscription and
// handler can present the same access-denied experience.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrNotHost):
		return ClassPermission
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrInvalidAnswer), errors.Is(err, ErrUnsupportedQuestionType),
		errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrSubmissionsLocked),
		errors.Is(err, ErrSubmissionCap), errors.Is(err, ErrSessionEnded),
		errors.Is(err, ErrInvalidNickname), errors.Is(err, ErrNicknameTaken):
		return ClassValidation
	case errors.Is(err, ErrRemoteCompute):
		return ClassRemote
	case strings.Contains(err.Error(), "unauthorized"), strings.Contains(err.Error(), "forbidden"):
		return ClassPermission
	default:
		return ClassInternal
	}
}
