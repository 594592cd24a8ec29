package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and verifiers return these
// (optionally wrapped) so services can distinguish states for logging while
// surfacing a single collapsed message to callers.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrExpired: token or credential is past its expiry
// - ErrReplayed: nonce/timestamp pair was already consumed
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrReplayed    = errors.New("replayed")
	ErrUnavailable = errors.New("unavailable")
)
