// Package attestation validates hardware attestation chains. The validator is
// an explicit state machine (ParseChain, VerifySignatures, CheckValidity,
// CheckRevocation, CheckAttestationExtension, MatchLeafKey) so every
// rejection reason is independently testable and the revocation-unavailable
// policy is a configuration decision rather than a fallthrough.
package attestation

import (
	"bytes"
	"context"
	"crypto/x509"
	"log"
	"time"

	"veritas/internal/domain"
)

const DefaultMaxChainLength = 8

// Request carries one chain validation. Chain is DER certificates, leaf
// first, root last or absent. SigningKey is the DER SPKI key the signature
// verifier used; Challenge, when non-nil, must match the leaf attestation
// record exactly.
type Request struct {
	Chain      [][]byte
	Snapshot   *domain.TrustSnapshot
	SigningKey []byte
	Challenge  []byte
}

// Validator runs the chain state machine. Revocations may be nil, in which
// case status is unavailable for every certificate and Mode decides the
// outcome.
type Validator struct {
	Revocations    domain.RevocationChecker
	Mode           domain.RevocationMode
	MaxChainLength int
	Now            func() time.Time
}

func NewValidator(revocations domain.RevocationChecker, mode domain.RevocationMode, maxChainLength int) *Validator {
	if maxChainLength <= 0 {
		maxChainLength = DefaultMaxChainLength
	}
	return &Validator{
		Revocations:    revocations,
		Mode:           mode,
		MaxChainLength: maxChainLength,
	}
}

type chainRun struct {
	ctx   context.Context
	req   Request
	now   time.Time
	certs []*x509.Certificate
}

// Validate drives the state machine to Accepted or Rejected(reason). A panic
// anywhere in certificate or extension parsing is recovered into
// Rejected(InternalValidationError); the validator never crashes its caller.
func (v *Validator) Validate(ctx context.Context, req Request) (outcome domain.ChainOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("attestation: recovered panic during chain validation: %v", r)
			outcome = domain.ChainOutcome{Reason: domain.ReasonInternalValidationError}
		}
	}()

	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	run := &chainRun{ctx: ctx, req: req, now: now}

	steps := []func(*chainRun) domain.Reason{
		v.parseChain,
		v.verifySignatures,
		v.checkValidity,
		v.checkRevocation,
		v.checkAttestationExtension,
		v.matchLeafKey,
	}
	for _, step := range steps {
		if reason := step(run); reason != domain.ReasonNone {
			return domain.ChainOutcome{Reason: reason}
		}
	}
	return domain.ChainOutcome{Accepted: true, HardwareBacked: true}
}

// ValidateChain adapts Validate to the orchestrator's call shape.
func (v *Validator) ValidateChain(ctx context.Context, chain [][]byte, snapshot *domain.TrustSnapshot, signingKey, challenge []byte) domain.ChainOutcome {
	return v.Validate(ctx, Request{
		Chain:      chain,
		Snapshot:   snapshot,
		SigningKey: signingKey,
		Challenge:  challenge,
	})
}

func (v *Validator) parseChain(run *chainRun) domain.Reason {
	chain := run.req.Chain
	if len(chain) == 0 {
		return domain.ReasonMalformedCertificate
	}
	limit := v.MaxChainLength
	if limit <= 0 {
		limit = DefaultMaxChainLength
	}
	if len(chain) > limit {
		return domain.ReasonChainTooLong
	}
	certs := make([]*x509.Certificate, 0, len(chain))
	for i, der := range chain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			log.Printf("attestation: certificate %d failed to parse: %v", i, err)
			return domain.ReasonMalformedCertificate
		}
		certs = append(certs, cert)
	}
	run.certs = certs
	return domain.ReasonNone
}

func (v *Validator) verifySignatures(run *chainRun) domain.Reason {
	certs := run.certs
	for i := 0; i+1 < len(certs); i++ {
		if !bytes.Equal(certs[i].RawIssuer, certs[i+1].RawSubject) {
			log.Printf("attestation: certificate %d issuer does not match certificate %d subject", i, i+1)
			return domain.ReasonUntrustedRoot
		}
		if err := certs[i].CheckSignatureFrom(certs[i+1]); err != nil {
			log.Printf("attestation: certificate %d signature invalid under certificate %d: %v", i, i+1, err)
			return domain.ReasonUntrustedRoot
		}
	}
	if run.req.Snapshot == nil || !anchoredInSnapshot(certs[len(certs)-1], run.req.Snapshot) {
		return domain.ReasonUntrustedRoot
	}
	return domain.ReasonNone
}

// anchoredInSnapshot accepts the last chain certificate either as a trust
// anchor itself (subject and public key byte-equal to a stored root) or as a
// certificate issued and signed by a stored root.
func anchoredInSnapshot(last *x509.Certificate, snapshot *domain.TrustSnapshot) bool {
	for _, root := range snapshot.Roots {
		if bytes.Equal(last.RawSubject, root.RawSubject) &&
			bytes.Equal(last.RawSubjectPublicKeyInfo, root.SubjectPublicKeyInfo) {
			return true
		}
		if !bytes.Equal(last.RawIssuer, root.RawSubject) {
			continue
		}
		if root.Certificate == nil {
			continue
		}
		if err := last.CheckSignatureFrom(root.Certificate); err == nil {
			return true
		}
	}
	return false
}

func (v *Validator) checkValidity(run *chainRun) domain.Reason {
	for i, cert := range run.certs {
		if run.now.Before(cert.NotBefore) || run.now.After(cert.NotAfter) {
			log.Printf("attestation: certificate %d outside validity window", i)
			return domain.ReasonExpiredCertificate
		}
	}
	return domain.ReasonNone
}

func (v *Validator) checkRevocation(run *chainRun) domain.Reason {
	for i, cert := range run.certs {
		status := domain.RevocationStatusUnknown
		if v.Revocations != nil {
			var err error
			status, err = v.Revocations.Status(run.ctx, cert.Issuer.String(), cert.SerialNumber.String())
			if err != nil {
				log.Printf("attestation: revocation lookup failed for certificate %d: %v", i, err)
				status = domain.RevocationStatusUnknown
			}
		}
		switch status {
		case domain.RevocationStatusRevoked:
			return domain.ReasonRevokedCertificate
		case domain.RevocationStatusUnknown:
			if v.Mode == domain.RevocationFailClosed {
				return domain.ReasonRevocationUnavailable
			}
		}
	}
	return domain.ReasonNone
}

func (v *Validator) checkAttestationExtension(run *chainRun) domain.Reason {
	leaf := run.certs[0]
	desc, err := ExtractKeyDescription(leaf)
	if err != nil {
		log.Printf("attestation: leaf attestation extension malformed: %v", err)
		return domain.ReasonAttestationMismatch
	}
	if desc == nil {
		return domain.ReasonAttestationMismatch
	}
	if !desc.AttestationSecurityLevel.HardwareEnforced() {
		return domain.ReasonAttestationMismatch
	}
	if run.req.Challenge != nil && !bytes.Equal(desc.AttestationChallenge, run.req.Challenge) {
		return domain.ReasonAttestationMismatch
	}
	return domain.ReasonNone
}

func (v *Validator) matchLeafKey(run *chainRun) domain.Reason {
	if !bytes.Equal(run.certs[0].RawSubjectPublicKeyInfo, run.req.SigningKey) {
		return domain.ReasonKeyMismatch
	}
	return domain.ReasonNone
}
