package ir

import "errors"

var (
	ErrNoJSON   = errors.New("no json representation")
	ErrNotAssoc = errors.New("not an assoc")
	ErrNotList  = errors.New("not a list")
)
