package attestation

import (
	"context"
	"crypto/x509"
	"testing"

	"veritas/internal/domain"
	"veritas/internal/infra/attestation/attesttest"
	"veritas/internal/infra/revocation"
)

type staticChecker struct {
	status domain.RevocationStatus
	err    error
}

func (c staticChecker) Status(_ context.Context, _, _ string) (domain.RevocationStatus, error) {
	return c.status, c.err
}

func newTestValidator() *Validator {
	return NewValidator(staticChecker{status: domain.RevocationStatusGood}, domain.RevocationFailOpen, 0)
}

func TestValidateAcceptsWellFormedChain(t *testing.T) {
	challenge := []byte("challenge-001")
	chain := attesttest.NewChain(attesttest.ChainOptions{Challenge: challenge})
	v := newTestValidator()

	outcome := v.Validate(context.Background(), Request{
		Chain:      chain.DER(),
		Snapshot:   attesttest.Snapshot(1, chain.Root),
		SigningKey: chain.LeafKeyDER,
		Challenge:  challenge,
	})
	if !outcome.Accepted {
		t.Fatalf("expected acceptance, got reason %s", outcome.Reason)
	}
	if !outcome.HardwareBacked {
		t.Fatal("accepted chain must set hardware_backed")
	}
}

func TestValidateAcceptsChainIncludingRoot(t *testing.T) {
	chain := attesttest.NewChain(attesttest.ChainOptions{})
	v := newTestValidator()

	outcome := v.Validate(context.Background(), Request{
		Chain:      chain.DERWithRoot(),
		Snapshot:   attesttest.Snapshot(1, chain.Root),
		SigningKey: chain.LeafKeyDER,
	})
	if !outcome.Accepted {
		t.Fatalf("expected acceptance, got reason %s", outcome.Reason)
	}
}

func TestValidateRejectsUntrustedRoot(t *testing.T) {
	chain := attesttest.NewChain(attesttest.ChainOptions{})
	other := attesttest.NewChain(attesttest.ChainOptions{})
	v := newTestValidator()

	outcome := v.Validate(context.Background(), Request{
		Chain:      chain.DER(),
		Snapshot:   attesttest.Snapshot(1, other.Root),
		SigningKey: chain.LeafKeyDER,
	})
	if outcome.Accepted || outcome.Reason != domain.ReasonUntrustedRoot {
		t.Fatalf("expected UNTRUSTED_ROOT, got accepted=%v reason=%s", outcome.Accepted, outcome.Reason)
	}
}

func TestValidateRejectsKeyMismatch(t *testing.T) {
	chain := attesttest.NewChain(attesttest.ChainOptions{})
	other := attesttest.NewChain(attesttest.ChainOptions{})
	v := newTestValidator()

	outcome := v.Validate(context.Background(), Request{
		Chain:      chain.DER(),
		Snapshot:   attesttest.Snapshot(1, chain.Root),
		SigningKey: other.LeafKeyDER,
	})
	if outcome.Reason != domain.ReasonKeyMismatch {
		t.Fatalf("expected KEY_MISMATCH, got %s", outcome.Reason)
	}
}

func TestValidateRejectsExpiredIntermediate(t *testing.T) {
	chain := attesttest.NewChain(attesttest.ChainOptions{IntermediateExpired: true})
	v := newTestValidator()

	outcome := v.Validate(context.Background(), Request{
		Chain:      chain.DER(),
		Snapshot:   attesttest.Snapshot(1, chain.Root),
		SigningKey: chain.LeafKeyDER,
	})
	if outcome.Reason != domain.ReasonExpiredCertificate {
		t.Fatalf("expected EXPIRED_CERTIFICATE, got %s", outcome.Reason)
	}
}

func TestValidateRejectsMissingAttestationExtension(t *testing.T) {
	chain := attesttest.NewChain(attesttest.ChainOptions{OmitExtension: true})
	v := newTestValidator()

	outcome := v.Validate(context.Background(), Request{
		Chain:      chain.DER(),
		Snapshot:   attesttest.Snapshot(1, chain.Root),
		SigningKey: chain.LeafKeyDER,
	})
	if outcome.Reason != domain.ReasonAttestationMismatch {
		t.Fatalf("expected ATTESTATION_MISMATCH, got %s", outcome.Reason)
	}
}

func TestValidateRejectsSoftwareSecurityLevel(t *testing.T) {
	chain := attesttest.NewChain(attesttest.ChainOptions{SecurityLevel: -1})
	v := newTestValidator()

	outcome := v.Validate(context.Background(), Request{
		Chain:      chain.DER(),
		Snapshot:   attesttest.Snapshot(1, chain.Root),
		SigningKey: chain.LeafKeyDER,
	})
	if outcome.Reason != domain.ReasonAttestationMismatch {
		t.Fatalf("expected ATTESTATION_MISMATCH, got %s", outcome.Reason)
	}
}

func TestValidateRejectsChallengeMismatch(t *testing.T) {
	chain := attesttest.NewChain(attesttest.ChainOptions{Challenge: []byte("expected")})
	v := newTestValidator()

	outcome := v.Validate(context.Background(), Request{
		Chain:      chain.DER(),
		Snapshot:   attesttest.Snapshot(1, chain.Root),
		SigningKey: chain.LeafKeyDER,
		Challenge:  []byte("different"),
	})
	if outcome.Reason != domain.ReasonAttestationMismatch {
		t.Fatalf("expected ATTESTATION_MISMATCH, got %s", outcome.Reason)
	}
}

func TestValidateRevocation(t *testing.T) {
	chain := attesttest.NewChain(attesttest.ChainOptions{})
	snapshot := attesttest.Snapshot(1, chain.Root)
	req := Request{Chain: chain.DER(), Snapshot: snapshot, SigningKey: chain.LeafKeyDER}

	checker := revocation.NewMemory()
	leaf, err := x509.ParseCertificate(chain.LeafDER)
	if err != nil {
		t.Fatalf("parse leaf: %v", err)
	}
	checker.Revoke(domain.Revocation{
		Issuer: leaf.Issuer.String(),
		Serial: leaf.SerialNumber.String(),
		Reason: "key compromise",
	})
	revoked := NewValidator(checker, domain.RevocationFailOpen, 0)
	if outcome := revoked.Validate(context.Background(), req); outcome.Reason != domain.ReasonRevokedCertificate {
		t.Fatalf("expected REVOKED_CERTIFICATE, got %s", outcome.Reason)
	}

	// No checker configured: fail-open accepts, fail-closed rejects.
	open := NewValidator(nil, domain.RevocationFailOpen, 0)
	if outcome := open.Validate(context.Background(), req); !outcome.Accepted {
		t.Fatalf("fail-open without checker should accept, got %s", outcome.Reason)
	}
	closed := NewValidator(nil, domain.RevocationFailClosed, 0)
	if outcome := closed.Validate(context.Background(), req); outcome.Reason != domain.ReasonRevocationUnavailable {
		t.Fatalf("expected REVOCATION_UNAVAILABLE, got %s", outcome.Reason)
	}

	// A checker error is unavailable status, decided by mode.
	erring := NewValidator(staticChecker{err: context.DeadlineExceeded}, domain.RevocationFailClosed, 0)
	if outcome := erring.Validate(context.Background(), req); outcome.Reason != domain.ReasonRevocationUnavailable {
		t.Fatalf("expected REVOCATION_UNAVAILABLE, got %s", outcome.Reason)
	}
}

func TestValidateRejectsMalformedCertificate(t *testing.T) {
	v := newTestValidator()
	outcome := v.Validate(context.Background(), Request{
		Chain:    [][]byte{{0xba, 0xad}},
		Snapshot: &domain.TrustSnapshot{},
	})
	if outcome.Reason != domain.ReasonMalformedCertificate {
		t.Fatalf("expected MALFORMED_CERTIFICATE, got %s", outcome.Reason)
	}

	outcome = v.Validate(context.Background(), Request{Chain: nil, Snapshot: &domain.TrustSnapshot{}})
	if outcome.Reason != domain.ReasonMalformedCertificate {
		t.Fatalf("expected MALFORMED_CERTIFICATE for empty chain, got %s", outcome.Reason)
	}
}

func TestValidateRejectsOverlongChain(t *testing.T) {
	chain := attesttest.NewChain(attesttest.ChainOptions{})
	v := NewValidator(nil, domain.RevocationFailOpen, 2)

	outcome := v.Validate(context.Background(), Request{
		Chain:      chain.DERWithRoot(),
		Snapshot:   attesttest.Snapshot(1, chain.Root),
		SigningKey: chain.LeafKeyDER,
	})
	if outcome.Reason != domain.ReasonChainTooLong {
		t.Fatalf("expected CHAIN_TOO_LONG, got %s", outcome.Reason)
	}
}
