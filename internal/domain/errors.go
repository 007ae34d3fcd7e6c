package domain

import "errors"

var (
	ErrMalformedMetadata  = errors.New("malformed metadata")
	ErrMalformedKey       = errors.New("malformed public key")
	ErrMalformedSignature = errors.New("malformed signature")
	ErrUnsupportedKeyType = errors.New("unsupported key type")
	ErrFileTooLarge       = errors.New("file too large")
	ErrChainTooLong       = errors.New("attestation chain too long")
	ErrFeedUnavailable    = errors.New("trust feed unavailable")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
)
