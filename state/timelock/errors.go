package timelock

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidUnlockTime  = errors.New("invalid unlock time")
	ErrNotInitialized     = errors.New("not initialized")
	ErrAlreadyWithdrawn   = errors.New("already withdrawn")
	ErrFundsStillLocked   = errors.New("funds still locked")
	ErrCorruptAccount     = errors.New("corrupt lock account")
)
