package entity

import "errors"

var (
	ErrContained = errors.New("entity already has a container")
	ErrCycle     = errors.New("entity would contain itself")
	ErrDestroyed = errors.New("entity destroyed")
	ErrIDTaken   = errors.New("id taken")
)
