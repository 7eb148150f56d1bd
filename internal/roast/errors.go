package roast

import "errors"

var (
	ErrAlreadyStarted = errors.New("roast engine already started")
	ErrNotStarted     = errors.New("roast engine not started")
	ErrInvalidConfig  = errors.New("invalid roast engine config")
	ErrUnknownStage   = errors.New("unknown roast stage")
)
