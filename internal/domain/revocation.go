package domain

import (
	"context"
	"time"
)

type RevocationStatus int

const (
	RevocationStatusUnknown RevocationStatus = iota
	RevocationStatusGood
	RevocationStatusRevoked
)

// RevocationMode is the explicit policy for certificates whose revocation
// status cannot be obtained. It is configuration, never an implicit default
// buried in control flow.
type RevocationMode string

const (
	RevocationFailOpen   RevocationMode = "fail-open"
	RevocationFailClosed RevocationMode = "fail-closed"
)

// RevocationChecker reports the status of a certificate identified by its
// issuer DN and serial number. Implementations return
// RevocationStatusUnknown (or an error) when status cannot be determined;
// the validator's RevocationMode decides what that means.
type RevocationChecker interface {
	Status(ctx context.Context, issuer, serial string) (RevocationStatus, error)
}

// Revocation is one recorded revocation entry.
type Revocation struct {
	ID        string
	Issuer    string
	Serial    string
	Reason    string
	RevokedAt time.Time
}
