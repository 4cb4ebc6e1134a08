package engine

import "errors"

var (
	// ErrInvalidParameter rejects a run before any generation is computed.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrEmptyPopulation is returned when statistics are requested on zero
	// agents. Valid construction never produces one.
	ErrEmptyPopulation = errors.New("empty population")
)
