package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid workflow status transition")
	ErrInvalidLanguage   = errors.New("unsupported language")
	ErrUnknownValidation = errors.New("unknown validation function")
	ErrSubsystemDisabled = errors.New("translation subsystem is disabled")
)
