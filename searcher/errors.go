package searcher

import "github.com/pkg/errors"

var (
	// ErrContractViolation is returned when a game adapter breaks the Apply/Undo
	// contract. The search is aborted since its statistics can no longer be trusted.
	ErrContractViolation = errors.New("game adapter contract violation")

	// ErrInvalidConfig is returned for out of range configuration values.
	ErrInvalidConfig = errors.New("invalid search configuration")

	// ErrUnknownLevel is returned for an unknown strategy or level name.
	ErrUnknownLevel = errors.New("unknown strategy level")

	// ErrUnknownOption is returned for an unrecognized configuration key.
	ErrUnknownOption = errors.New("unknown search option")
)
