package event

import "errors"

var (
	ErrNotFound         = errors.New("event not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrNotAuthorized    = errors.New("not an organizer of this event")
	ErrAlreadyPublished = errors.New("event is already published")
	ErrNotPublished     = errors.New("event is not published")
	ErrDeletePublished  = errors.New("published events cannot be deleted")
	ErrPublishOneWay    = errors.New("published cannot be set back to false")
	ErrInvalidWindow    = errors.New("start time must be before end time")
	ErrEnded            = errors.New("event has already ended")
	ErrFull             = errors.New("event is full")
	ErrAlreadyGuest     = errors.New("user is already a guest")
	ErrNotGuest         = errors.New("user is not a guest")
	ErrAlreadyOrganizer = errors.New("user is already an organizer")
	ErrNotOrganizer     = errors.New("user is not an organizer")
	ErrOrganizerIsGuest = errors.New("organizers cannot also be guests")
	ErrCapacityTooSmall = errors.New("capacity cannot be below the current guest count")
	ErrPointsTooSmall   = errors.New("total points cannot be below the points already awarded")
)
