package promotion

import "errors"

var (
	ErrNotFound       = errors.New("promotion not found")
	ErrAlreadyStarted = errors.New("promotion has already started")
	ErrAlreadyEnded   = errors.New("promotion has already ended")
	ErrStartInPast    = errors.New("start time cannot be in the past")
	ErrInvalidWindow  = errors.New("start time must be before end time")
	ErrNotApplicable  = errors.New("promotion not applicable")
	ErrAlreadyUsed    = errors.New("promotion already used")
)
