package sentinel

import "errors"

// Storage facts returned (wrapped) by stores. Services translate them into
// domain errors; handlers never see them directly.
//
//   - ErrNotFound: no record for the key
//   - ErrConflict: a unique constraint rejected the write
//   - ErrExpired: authorization code or session past its lifetime
//   - ErrAlreadyUsed: authorization code already redeemed
//   - ErrInvalidState: unit of work reused after commit
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
)
