package orders

import "errors"

var (
	ErrNotFound            = errors.New("order not found")
	ErrVersionConflict     = errors.New("order version conflict")
	ErrForbiddenTransition = errors.New("forbidden status transition")
	ErrValidation          = errors.New("invalid input")
	// ErrDuplicateExternalID: another order already holds this
	// (user, external_id) pair; callers resolve it to that order.
	ErrDuplicateExternalID = errors.New("duplicate external id")
)
