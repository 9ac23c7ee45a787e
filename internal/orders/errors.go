package orders

import (
	"errors"

	"github.com/mmynk/splitorder/internal/calculator"
)

var (
	// ErrUnauthorized means the call carries no verified identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the requester is not a participant of the group.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the group does not exist.
	ErrNotFound = errors.New("order group not found")

	// ErrAlreadyExists means a group with the same ID was already created.
	ErrAlreadyExists = errors.New("order group already exists")

	// ErrInvalidState means the operation is not permitted from the current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput means the arguments are malformed.
	ErrInvalidInput = calculator.ErrInvalidInput

	// ErrConflict means concurrent writers kept winning until retries ran out.
	ErrConflict = errors.New("too many concurrent updates")

	// ErrSettlementFailure means the wallet settlement could not be applied.
	// The group stays delivered and unsettled, so the call can be retried.
	ErrSettlementFailure = errors.New("settlement failed")
)
