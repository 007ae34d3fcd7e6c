package domain

import (
	"crypto/x509"
	"time"
)

// TrustedRoot is one anchor certificate in a trust snapshot. RawSubject and
// SubjectPublicKeyInfo are kept as DER so chain anchoring is a byte
// comparison, not a re-parse.
type TrustedRoot struct {
	Subject              string
	RawSubject           []byte
	SubjectPublicKeyInfo []byte
	NotBefore            time.Time
	NotAfter             time.Time
	Certificate          *x509.Certificate
}

// TrustSnapshot is an immutable, versioned set of trusted roots. A
// verification captures one snapshot reference at call start and uses it for
// its whole run; publishing a new snapshot never touches an old one.
type TrustSnapshot struct {
	Version   uint64
	FetchedAt time.Time
	Roots     []TrustedRoot
}
