// Package contracts holds the types shared by every QuietGrid engine:
// the flat error taxonomy, the caller principal, and the block source.
package contracts

import "errors"

// The error taxonomy is flat: each failure mode is a distinct sentinel with no
// wrapped cause. Engines validate every precondition before mutating anything,
// so a returned sentinel always means the transition was rejected as a whole.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("not found")
	ErrAlreadyExists         = errors.New("already exists")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidDecibel        = errors.New("invalid decibel level")
	ErrZoneNotFound          = errors.New("zone not found")
	ErrPermitExists          = errors.New("permit already approved")
	ErrVotingPeriodActive    = errors.New("voting period constraint not met")
	ErrAlreadyVoted          = errors.New("already voted")
	ErrInvalidVote           = errors.New("vote outcome does not carry")
)
