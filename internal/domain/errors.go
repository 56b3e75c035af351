package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidTrade  = errors.New("invalid trade")
	ErrInvalidWallet = errors.New("invalid wallet")
	ErrLockHeld      = errors.New("lock already held")
	ErrContextDone   = errors.New("context cancelled")
)
