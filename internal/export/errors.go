package export

import (
	"errors"
	"fmt"
)

// ErrPrecondition is wrapped by every "nothing to export" error.
var ErrPrecondition = errors.New("export precondition unmet")

var (
	ErrNoImage      = fmt.Errorf("%w: no image loaded", ErrPrecondition)
	ErrNoActiveMask = fmt.Errorf("%w: no active mask", ErrPrecondition)
	ErrEmptyMask    = fmt.Errorf("%w: mask is empty", ErrPrecondition)
	ErrNoMasks      = fmt.Errorf("%w: no masks", ErrPrecondition)
)

// ErrEncode wraps image encoding failures.
var ErrEncode = errors.New("encode failed")

// ErrUnknownOption is returned for a save option name that does not exist.
var ErrUnknownOption = errors.New("unknown save option")
