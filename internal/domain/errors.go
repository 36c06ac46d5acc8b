package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrContextDone        = errors.New("context cancelled")
	ErrFeeRateUnknown     = errors.New("fee rate unknown")
	ErrConvertUnavailable = errors.New("convert unavailable")

	// Approval gate block reasons. These must stay distinguishable so the
	// API can report exactly why a transition was refused.
	ErrKillSwitchActive   = errors.New("kill switch active")
	ErrObservationOnly    = errors.New("observation-only mode active")
	ErrInvalidTransition  = errors.New("invalid approval transition")
	ErrApprovalRequired   = errors.New("manual approval required")
)
