package distribution

import "errors"

var (
	// ErrFileNotFound is returned when the local file to publish does not exist
	ErrFileNotFound = errors.New("file does not exist")

	// ErrInsufficientSpace is returned when the destination quota cannot hold the file
	ErrInsufficientSpace = errors.New("insufficient storage space")

	// ErrUnknownTarget is returned for an unrecognized publish target
	ErrUnknownTarget = errors.New("unknown publish target")

	// ErrNoDestination is returned when a target that replaces by name has no folder to scope the search
	ErrNoDestination = errors.New("no destination folder configured")
)
