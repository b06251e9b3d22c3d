package util

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrModuleNotFound      = errors.New("training module not found")
	ErrCompletionExists    = errors.New("training completion already exists")
	ErrNoSpeechDetected    = errors.New("no speech detected")
	ErrInvalidExportFormat = errors.New("format must be 'csv' or 'json'")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrEmptyQuestion       = errors.New("question must not be empty")
)
