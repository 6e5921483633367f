package models

import "errors"

var (
	// ErrSpeedOutOfEnvelope is a controller defect: a commanded speed outside its band
	ErrSpeedOutOfEnvelope = errors.New("speed outside envelope")
	// ErrTerminal is returned when a landed or diverted aircraft would be mutated
	ErrTerminal = errors.New("aircraft is terminal")
	// ErrBadTransition is returned for a status change the state machine does not allow
	ErrBadTransition = errors.New("invalid status transition")
	// ErrNoBand is a configuration error: a distance beyond the speed table
	ErrNoBand = errors.New("no speed band for distance")
)
