package engine

import "errors"

var (
	// ErrProjectNotFound indicates the project directory does not exist.
	ErrProjectNotFound = errors.New("project directory not found")

	// ErrMissingLegacyState indicates a migration was requested for a
	// project without a legacy version marker.
	ErrMissingLegacyState = errors.New("no legacy version file found")

	// ErrValidation indicates a validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownSource indicates no template source could be determined.
	ErrUnknownSource = errors.New("template source unknown")

	// ErrAppExists indicates an app instance is already installed.
	ErrAppExists = errors.New("app already installed")
)
