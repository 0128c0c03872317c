package services

import "errors"

// Service errors
var (
	ErrRunNotFound = errors.New("diff run not found")
	ErrRunExists   = errors.New("diff run already exists")
	ErrInvalidRun  = errors.New("invalid diff run")
	ErrNoFeed      = errors.New("feed input has neither a path nor a reader")
)
