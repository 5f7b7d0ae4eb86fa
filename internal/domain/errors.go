package domain

import "errors"

var (
	ErrEmptyMessage        = errors.New("message required")
	ErrInstructionRequired = errors.New("custom reference mode requires an instruction")
	ErrSourceImageRequired = errors.New("source image required")
	ErrNoPendingAction     = errors.New("no pending action")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientBalance = errors.New("insufficient tokens")
	ErrTaskNotFound        = errors.New("task not found")
)
