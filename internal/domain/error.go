package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("missing or invalid credentials")
	ErrSessionInUse    = errors.New("session initialization already in progress")
	ErrFetchFailed     = errors.New("document fetch failed")
	ErrIndexingFailed  = errors.New("provider reported indexing failure")
	ErrIndexingTimeout = errors.New("indexing did not finish in time")
	ErrProvider        = errors.New("provider request failed")
)
