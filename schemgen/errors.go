package schemgen

import "errors"

var (
	// ErrInvalidArgument is returned for arguments that can never succeed, e.g., an
	// unknown edge policy, non-positive spacing, or an array of unsupported rank.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange is returned when a sampling region or coordinate falls outside
	// the bounds it must cover or respect.
	ErrOutOfRange = errors.New("out of range")

	// ErrNotFound is returned when a named tile, container or engine does not exist.
	ErrNotFound = errors.New("not found")
)
