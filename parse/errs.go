package parse

import (
	"errors"
	"fmt"
)

var (
	ErrParse     = errors.New("parse error")
	ErrUnclosed  = fmt.Errorf("%w: unclosed", ErrParse)
	ErrOddAssoc  = fmt.Errorf("%w: assoc with key and no value", ErrParse)
	ErrBadKey    = fmt.Errorf("%w: invalid assoc key", ErrParse)
	ErrTrailing  = fmt.Errorf("%w: trailing data", ErrParse)
	ErrBadSymbol = fmt.Errorf("%w: invalid symbol", ErrParse)
)

type PosError struct {
	Line, Col int
	Err       error
}

func (e *PosError) Error() string {
	return fmt.Sprintf("%d:%d: %v", e.Line, e.Col, e.Err)
}

func (e *PosError) Unwrap() error { return e.Err }
