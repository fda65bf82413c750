package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnauthorized       = errors.New("sender is not an admin")
	ErrSelfReferral       = errors.New("referral code belongs to the registering user")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
