package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicate   = errors.New("duplicate key")
	ErrUnavailable = errors.New("backend unavailable")
	ErrDecode      = errors.New("message decode failed")
	ErrConstraint  = errors.New("constraint violation")
)

var (
	ErrFollowUpCapReached = fmt.Errorf("%w: follow-up cap reached", ErrConstraint)
	ErrAlreadyResponded   = fmt.Errorf("%w: application already responded", ErrConstraint)
	ErrFollowUpNotDue     = fmt.Errorf("%w: follow-up not due", ErrConstraint)
	ErrInvalidPriority    = fmt.Errorf("%w: priority must be between 1 and 5", ErrConstraint)
)
