package user

import "errors"

var (
	ErrNotFound          = errors.New("user not found")
	ErrUtoridTaken       = errors.New("utorid already registered")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidRole       = errors.New("invalid role")
	ErrRoleNotAssignable = errors.New("role not assignable by caller")
	ErrVerifiedIsOneWay  = errors.New("verified cannot be reverted")
	ErrWrongPassword     = errors.New("current password is incorrect")
	ErrInvalidAvatar     = errors.New("invalid avatar image")
)
