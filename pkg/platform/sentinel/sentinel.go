package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and stream transports
// return these (optionally wrapped) so services can translate them into
// domain errors with caller-facing codes.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: uniqueness constraint hit (e.g. an action already recorded
//   for a case)
// - ErrExpired: restriction or cached verdict past its TTL
// - ErrInvalidState: case in wrong status for the requested transition
// - ErrUnavailable: store or stream broker temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
